package kvgate

import (
	"github.com/kvgate/kvgate/internal"
)

// Route describes which node(s) a command should be sent to in cluster
// mode. Standalone clients ignore routes entirely. The set of routes is
// closed: RandomRoute, SlotRoute, NodeRoute and AllNodesRoute.
type Route interface {
	isRoute()
}

// SingleNodeRoute is the subset of routes naming exactly one
// destination. Pipelines only ever travel on these.
type SingleNodeRoute interface {
	Route
	isSingleNode()
}

// RandomRoute targets one node chosen arbitrarily.
type RandomRoute struct{}

// SlotRoute targets the node owning a key slot.
type SlotRoute struct {
	Slot uint16
}

// NodeRoute targets an explicit node by host:port address.
type NodeRoute struct {
	Addr string
}

// AllNodesRoute fans a single command out to every node. Only
// meaningful for single commands; pipelines downgrade it.
type AllNodesRoute struct{}

func (RandomRoute) isRoute()   {}
func (SlotRoute) isRoute()     {}
func (NodeRoute) isRoute()     {}
func (AllNodesRoute) isRoute() {}

func (RandomRoute) isSingleNode() {}
func (SlotRoute) isSingleNode()   {}
func (NodeRoute) isSingleNode()   {}

// resolveCommandRoute picks the destination for a single command.
// A caller-supplied route wins. Otherwise the route is derived from the
// command's key when one exists, falling back to an arbitrary node.
func resolveCommandRoute(cmd *Command, route Route) Route {
	if route != nil {
		return route
	}
	if key, ok := cmd.key(); ok {
		return SlotRoute{Slot: internal.HashSlot(key)}
	}
	return RandomRoute{}
}

// resolvePipelineRoute picks the destination for a pipeline. Pipelines
// cannot fan out, so anything that is not a single-node route quietly
// becomes "any node".
func resolvePipelineRoute(route Route) SingleNodeRoute {
	if single, ok := route.(SingleNodeRoute); ok {
		return single
	}
	return RandomRoute{}
}

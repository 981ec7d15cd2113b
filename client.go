// Package kvgate is a unified command-dispatch client for a RESP
// key-value store deployed either as a single node or as a sharded
// cluster. One Client hides both execution paths: it routes a command
// or an ordered batch to the right node(s), bounds every call with a
// fixed timeout, and coerces wire replies into the semantic type the
// issuing command calls for.
package kvgate

import (
	"context"
	"time"

	"github.com/kvgate/kvgate/resp"
)

// StandaloneConn is the single-node connection collaborator. It already
// knows how to deliver commands to its one node; connection
// establishment, reconnection and multiplexing are its business.
// Implementations must be safe for concurrent use.
type StandaloneConn interface {
	Send(ctx context.Context, cmd *Command) (resp.Value, error)
	SendPipeline(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error)
	Close() error
}

// ClusterConn is the cluster connection collaborator. It owns the
// node map and delivers commands to the destination a Route names.
// RoutePipeline is only ever called with a single-node route.
// Implementations must be safe for concurrent use.
type ClusterConn interface {
	RouteCommand(ctx context.Context, cmd *Command, route Route) (resp.Value, error)
	RoutePipeline(ctx context.Context, cmds []*Command, offset, count int, route SingleNodeRoute) ([]resp.Value, error)
	Close() error
}

// Client is the topology dispatcher. It holds exactly one of a
// standalone or a cluster connection, fixed at construction together
// with the request timeout; neither ever changes afterwards, so
// concurrent calls share no mutable client state.
//
// A Client is a cheap handle: copying it shares the underlying
// connection rather than duplicating it.
type Client struct {
	standalone StandaloneConn
	cluster    ClusterConn

	requestTimeout time.Duration
	stats          *clientStatsCollector
}

// SendCommand dispatches one command and returns its coerced reply.
//
// The caller-supplied route takes precedence; otherwise cluster clients
// derive the destination from the command's key, falling back to an
// arbitrary node. Standalone clients ignore routing. The whole exchange
// is bounded by the client's request timeout; a timeout is returned as
// ErrRequestTimeout and leaves the client fully usable.
func (c *Client) SendCommand(ctx context.Context, cmd *Command, route Route) (resp.Value, error) {
	expected := expectedTypeForCommand(cmd)

	value, err := runWithTimeout(ctx, c.requestTimeout, func(ctx context.Context) (resp.Value, error) {
		if c.cluster != nil {
			return c.cluster.RouteCommand(ctx, cmd, resolveCommandRoute(cmd, route))
		}
		return c.standalone.Send(ctx, cmd)
	})
	if err != nil {
		c.stats.recordCommand(err)
		return resp.Value{}, err
	}

	coerced, err := coerceValue(value, expected)
	c.stats.recordCommand(err)
	if err != nil {
		return resp.Value{}, err
	}
	return coerced, nil
}

// SendPipeline dispatches an ordered batch and returns the coerced
// replies for the offset/count window, in original order.
//
// Pipelines travel to exactly one destination: a single-node route is
// honored, anything else quietly becomes "any node". Each reply is
// coerced according to its own command's classification; one failing
// coercion fails the whole pipeline rather than returning partial data.
func (c *Client) SendPipeline(ctx context.Context, pipeline *Pipeline, offset, count int, route Route) ([]resp.Value, error) {
	cmds := pipeline.Commands()

	values, err := runWithTimeout(ctx, c.requestTimeout, func(ctx context.Context) ([]resp.Value, error) {
		if c.cluster != nil {
			return c.cluster.RoutePipeline(ctx, cmds, offset, count, resolvePipelineRoute(route))
		}
		return c.standalone.SendPipeline(ctx, cmds, offset, count)
	})
	if err != nil {
		c.stats.recordPipeline(err)
		return nil, err
	}

	coerced := make([]resp.Value, len(values))
	for i, value := range values {
		expected := ExpectNone
		if i < len(cmds) {
			expected = expectedTypeForCommand(cmds[i])
		}
		if coerced[i], err = coerceValue(value, expected); err != nil {
			c.stats.recordPipeline(err)
			return nil, err
		}
	}

	c.stats.recordPipeline(nil)
	return coerced, nil
}

// Stats returns a snapshot of the client's operation counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// Close releases the underlying connection. Calls in flight on other
// copies of the client will fail once their connection is gone.
func (c *Client) Close() error {
	if c.cluster != nil {
		return c.cluster.Close()
	}
	return c.standalone.Close()
}

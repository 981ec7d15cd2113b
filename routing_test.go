package kvgate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kvgate/kvgate/internal"
)

func TestResolveCommandRoute(t *testing.T) {
	t.Run("caller route wins", func(t *testing.T) {
		route := resolveCommandRoute(NewCommand("GET", "k"), NodeRoute{Addr: "10.0.0.1:6379"})
		assert.Equal(t, NodeRoute{Addr: "10.0.0.1:6379"}, route)
	})

	t.Run("keyed command derives a slot", func(t *testing.T) {
		route := resolveCommandRoute(NewCommand("GET", "foo"), nil)
		assert.Equal(t, SlotRoute{Slot: internal.HashSlot([]byte("foo"))}, route)
	})

	t.Run("hash tags group keys", func(t *testing.T) {
		a := resolveCommandRoute(NewCommand("GET", "{user1}.a"), nil)
		b := resolveCommandRoute(NewCommand("SET", "{user1}.b", "v"), nil)
		assert.Equal(t, a, b)
	})

	t.Run("keyless command goes anywhere", func(t *testing.T) {
		assert.Equal(t, RandomRoute{}, resolveCommandRoute(NewCommand("PING"), nil))
		assert.Equal(t, RandomRoute{}, resolveCommandRoute(NewCommand("INFO", "server"), nil))
		assert.Equal(t, RandomRoute{}, resolveCommandRoute(NewCommand("CONFIG", "GET", "maxmemory"), nil))
	})
}

func TestResolvePipelineRoute(t *testing.T) {
	t.Run("single-node routes are honored", func(t *testing.T) {
		assert.Equal(t, SingleNodeRoute(NodeRoute{Addr: "a:1"}), resolvePipelineRoute(NodeRoute{Addr: "a:1"}))
		assert.Equal(t, SingleNodeRoute(SlotRoute{Slot: 42}), resolvePipelineRoute(SlotRoute{Slot: 42}))
		assert.Equal(t, SingleNodeRoute(RandomRoute{}), resolvePipelineRoute(RandomRoute{}))
	})

	t.Run("multi-node request downgrades silently", func(t *testing.T) {
		assert.Equal(t, SingleNodeRoute(RandomRoute{}), resolvePipelineRoute(AllNodesRoute{}))
	})

	t.Run("unspecified downgrades to any node", func(t *testing.T) {
		assert.Equal(t, SingleNodeRoute(RandomRoute{}), resolvePipelineRoute(nil))
	})
}

package kvgate

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"github.com/jackc/puddle/v2"
	"github.com/zeebo/xxh3"

	"github.com/kvgate/kvgate/internal"
	"github.com/kvgate/kvgate/resp"
)

// defaultPoolSize is the per-node connection pool size when the request
// does not set one.
const defaultPoolSize = 4

// ClusterConnection implements the cluster collaborator over the
// request's configured nodes. Each node gets a lazily-created
// connection pool and, when configured, a circuit breaker.
//
// Slot placement is static: the owner of a slot is chosen by jump
// hashing the slot over the configured node list. There is no topology
// discovery and no slot-map cache; redirection replies (MOVED/ASK) are
// passed through to the caller verbatim.
type ClusterConnection struct {
	addrs    []string
	cfgFor   func(addr string) nodeConfig
	poolSize int32

	newBreaker func(addr string) CircuitBreaker

	mu    sync.RWMutex
	pools map[string]*nodePool
}

var _ ClusterConn = (*ClusterConnection)(nil)

// nodePool ties one node's connection pool to its circuit breaker.
type nodePool struct {
	addr    string
	pool    *puddle.Pool[*Connection]
	breaker CircuitBreaker // nil if not configured
}

// NewClusterConnection builds the cluster connection and verifies that
// the first node is reachable, so a dead cluster fails at construction
// rather than on the first call.
func NewClusterConnection(ctx context.Context, request *ConnectionRequest) (*ClusterConnection, error) {
	addrs := make([]string, len(request.Addresses))
	byAddr := make(map[string]NodeAddress, len(request.Addresses))
	for i, address := range request.Addresses {
		addrs[i] = address.addr()
		byAddr[addrs[i]] = address
	}

	poolSize := request.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	cc := &ClusterConnection{
		addrs:      addrs,
		poolSize:   poolSize,
		newBreaker: request.NewCircuitBreaker,
		pools:      make(map[string]*nodePool),
		cfgFor: func(addr string) nodeConfig {
			if address, ok := byAddr[addr]; ok {
				return nodeConfigFor(request, address)
			}
			cfg := nodeConfigFor(request, NodeAddress{})
			cfg.addr = addr
			return cfg
		},
	}

	np, err := cc.getOrCreatePool(addrs[0])
	if err != nil {
		return nil, err
	}
	res, err := np.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	res.Release()

	return cc, nil
}

func (cc *ClusterConnection) RouteCommand(ctx context.Context, cmd *Command, route Route) (resp.Value, error) {
	if _, multi := route.(AllNodesRoute); multi {
		return cc.fanOut(ctx, cmd)
	}

	values, err := cc.execNode(ctx, cc.routeAddr(route), []*Command{cmd})
	if err != nil {
		return resp.Value{}, err
	}
	return values[0], nil
}

func (cc *ClusterConnection) RoutePipeline(ctx context.Context, cmds []*Command, offset, count int, route SingleNodeRoute) ([]resp.Value, error) {
	values, err := cc.execNode(ctx, cc.routeAddr(route), cmds)
	if err != nil {
		return nil, err
	}
	return windowValues(values, offset, count)
}

// fanOut sends one command to every node and aggregates the replies
// into a map keyed by node address, in configuration order.
func (cc *ClusterConnection) fanOut(ctx context.Context, cmd *Command) (resp.Value, error) {
	entries := make([]resp.MapEntry, len(cc.addrs))
	for i, addr := range cc.addrs {
		values, err := cc.execNode(ctx, addr, []*Command{cmd})
		if err != nil {
			return resp.Value{}, fmt.Errorf("node %s: %w", addr, err)
		}
		entries[i] = resp.MapEntry{
			Key:   resp.NewBulkString(addr),
			Value: values[0],
		}
	}
	return resp.NewMap(entries), nil
}

// routeAddr resolves a route to one node address. Anything that is not
// an explicit or slot-derived destination lands on an arbitrary node.
func (cc *ClusterConnection) routeAddr(route Route) string {
	switch r := route.(type) {
	case NodeRoute:
		return r.Addr
	case SlotRoute:
		return cc.slotOwner(r.Slot)
	}
	return cc.addrs[rand.Intn(len(cc.addrs))]
}

// slotOwner maps a key slot onto a node. The slot is mixed through
// xxh3 before jump hashing so consecutive slots spread evenly.
func (cc *ClusterConnection) slotOwner(slot uint16) string {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], slot)
	return cc.addrs[internal.JumpHash(xxh3.Hash(buf[:]), len(cc.addrs))]
}

// execNode runs one batch on a node, through its circuit breaker when
// one is configured.
func (cc *ClusterConnection) execNode(ctx context.Context, addr string, cmds []*Command) ([]resp.Value, error) {
	np, err := cc.getOrCreatePool(addr)
	if err != nil {
		return nil, err
	}

	if np.breaker == nil {
		return cc.execNodeDirect(ctx, np, cmds)
	}

	var values []resp.Value
	err = np.breaker.Execute(func() error {
		var execErr error
		values, execErr = cc.execNodeDirect(ctx, np, cmds)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (cc *ClusterConnection) execNodeDirect(ctx context.Context, np *nodePool, cmds []*Command) ([]resp.Value, error) {
	res, err := np.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	values, err := res.Value().Exec(ctx, cmds)
	if err != nil {
		if shouldCloseConnection(err) {
			res.Destroy()
		} else {
			res.Release()
		}
		return nil, err
	}

	res.Release()
	return values, nil
}

// getOrCreatePool returns the pool for a node, creating it on first use.
func (cc *ClusterConnection) getOrCreatePool(addr string) (*nodePool, error) {
	cc.mu.RLock()
	np, exists := cc.pools[addr]
	cc.mu.RUnlock()
	if exists {
		return np, nil
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if np, exists := cc.pools[addr]; exists {
		return np, nil
	}

	pool, err := puddle.NewPool(&puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			return dialNode(ctx, cc.cfgFor(addr))
		},
		Destructor: func(conn *Connection) {
			_ = conn.Close()
		},
		MaxSize: cc.poolSize,
	})
	if err != nil {
		return nil, err
	}

	np = &nodePool{addr: addr, pool: pool}
	if cc.newBreaker != nil {
		np.breaker = cc.newBreaker(addr)
	}
	cc.pools[addr] = np
	return np, nil
}

// Close destroys every node pool.
func (cc *ClusterConnection) Close() error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	for _, np := range cc.pools {
		np.pool.Close()
	}
	cc.pools = make(map[string]*nodePool)
	return nil
}

package kvgate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvgate/kvgate/internal"
	"github.com/kvgate/kvgate/resp"
)

// fakeStandalone scripts the single-node collaborator.
type fakeStandalone struct {
	send     func(ctx context.Context, cmd *Command) (resp.Value, error)
	pipeline func(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error)
	closed   bool
}

func (f *fakeStandalone) Send(ctx context.Context, cmd *Command) (resp.Value, error) {
	return f.send(ctx, cmd)
}

func (f *fakeStandalone) SendPipeline(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error) {
	return f.pipeline(ctx, cmds, offset, count)
}

func (f *fakeStandalone) Close() error {
	f.closed = true
	return nil
}

// fakeCluster scripts the cluster collaborator and records the routes
// it was handed.
type fakeCluster struct {
	route    func(ctx context.Context, cmd *Command, route Route) (resp.Value, error)
	pipeline func(ctx context.Context, cmds []*Command, offset, count int, route SingleNodeRoute) ([]resp.Value, error)
	closed   bool
}

func (f *fakeCluster) RouteCommand(ctx context.Context, cmd *Command, route Route) (resp.Value, error) {
	return f.route(ctx, cmd, route)
}

func (f *fakeCluster) RoutePipeline(ctx context.Context, cmds []*Command, offset, count int, route SingleNodeRoute) ([]resp.Value, error) {
	return f.pipeline(ctx, cmds, offset, count, route)
}

func (f *fakeCluster) Close() error {
	f.closed = true
	return nil
}

func newStandaloneTestClient(conn StandaloneConn, timeout time.Duration) *Client {
	return &Client{standalone: conn, requestTimeout: timeout, stats: newClientStatsCollector()}
}

func newClusterTestClient(conn ClusterConn, timeout time.Duration) *Client {
	return &Client{cluster: conn, requestTimeout: timeout, stats: newClientStatsCollector()}
}

func constValue(v resp.Value) func(ctx context.Context, cmd *Command) (resp.Value, error) {
	return func(ctx context.Context, cmd *Command) (resp.Value, error) {
		return v, nil
	}
}

func TestSendCommandPassThrough(t *testing.T) {
	raw := resp.NewBulkString("value")
	client := newStandaloneTestClient(&fakeStandalone{send: constValue(raw)}, time.Second)

	got, err := client.SendCommand(context.Background(), NewCommand("GET", "k"), nil)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestSendCommandCoercesMap(t *testing.T) {
	raw := resp.NewArray(
		resp.NewBulkString("k1"),
		resp.NewBulkString("v1"),
		resp.NewBulkString("k2"),
		resp.NewBulkString("v2"),
	)
	client := newStandaloneTestClient(&fakeStandalone{send: constValue(raw)}, time.Second)

	got, err := client.SendCommand(context.Background(), NewCommand("HGETALL", "h"), nil)
	require.NoError(t, err)
	assert.Equal(t, resp.NewMap([]resp.MapEntry{
		{Key: resp.NewBulkString("k1"), Value: resp.NewBulkString("v1")},
		{Key: resp.NewBulkString("k2"), Value: resp.NewBulkString("v2")},
	}), got)
}

func TestSendCommandCoercesBoolean(t *testing.T) {
	client := newStandaloneTestClient(&fakeStandalone{send: constValue(resp.NewInt(1))}, time.Second)
	got, err := client.SendCommand(context.Background(), NewCommand("EXPIRE", "k", "10"), nil)
	require.NoError(t, err)
	assert.Equal(t, resp.NewBool(true), got)

	client = newStandaloneTestClient(&fakeStandalone{send: constValue(resp.NewInt(0))}, time.Second)
	got, err = client.SendCommand(context.Background(), NewCommand("EXPIRE", "k", "10"), nil)
	require.NoError(t, err)
	assert.Equal(t, resp.NewBool(false), got)
}

func TestSendCommandCoercesDouble(t *testing.T) {
	client := newStandaloneTestClient(&fakeStandalone{send: constValue(resp.NewBulkString("3.0"))}, time.Second)
	got, err := client.SendCommand(context.Background(), NewCommand("INCRBYFLOAT", "k", "1.5"), nil)
	require.NoError(t, err)
	assert.Equal(t, resp.NewDouble(3.0), got)
}

func TestSendCommandCoercionFailure(t *testing.T) {
	// Odd-length array for a map-shaped command.
	raw := resp.NewArray(
		resp.NewBulkString("k1"),
		resp.NewBulkString("v1"),
		resp.NewBulkString("k2"),
	)
	client := newStandaloneTestClient(&fakeStandalone{send: constValue(raw)}, time.Second)

	_, err := client.SendCommand(context.Background(), NewCommand("HGETALL", "h"), nil)
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)

	stats := client.Stats()
	assert.Equal(t, uint64(1), stats.ConversionErrors)
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestSendCommandClusterRouting(t *testing.T) {
	var seen Route
	cluster := &fakeCluster{
		route: func(ctx context.Context, cmd *Command, route Route) (resp.Value, error) {
			seen = route
			return resp.NewStatus("OK"), nil
		},
	}
	client := newClusterTestClient(cluster, time.Second)

	// Derived from the key when the caller supplies nothing.
	_, err := client.SendCommand(context.Background(), NewCommand("SET", "foo", "v"), nil)
	require.NoError(t, err)
	assert.Equal(t, SlotRoute{Slot: internal.HashSlot([]byte("foo"))}, seen)

	// Caller-supplied routing takes precedence.
	_, err = client.SendCommand(context.Background(), NewCommand("SET", "foo", "v"), AllNodesRoute{})
	require.NoError(t, err)
	assert.Equal(t, AllNodesRoute{}, seen)

	// Keyless commands land on an arbitrary node.
	_, err = client.SendCommand(context.Background(), NewCommand("PING"), nil)
	require.NoError(t, err)
	assert.Equal(t, RandomRoute{}, seen)
}

func TestSendPipeline(t *testing.T) {
	// GET, HGETALL and EXPIRE in one batch: each reply is coerced by
	// its own command's classification, in order.
	replies := []resp.Value{
		resp.NewBulkString("raw-a"),
		resp.NewArray(resp.NewBulkString("k"), resp.NewBulkString("v")),
		resp.NewInt(1),
	}
	var gotOffset, gotCount int
	standalone := &fakeStandalone{
		pipeline: func(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error) {
			gotOffset, gotCount = offset, count
			return replies, nil
		},
	}
	client := newStandaloneTestClient(standalone, time.Second)

	pipeline := NewPipeline().Add(
		NewCommand("GET", "a"),
		NewCommand("HGETALL", "b"),
		NewCommand("EXPIRE", "c", "5"),
	)
	got, err := client.SendPipeline(context.Background(), pipeline, 0, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, 3, gotCount)
	assert.Equal(t, []resp.Value{
		resp.NewBulkString("raw-a"),
		resp.NewMap([]resp.MapEntry{{Key: resp.NewBulkString("k"), Value: resp.NewBulkString("v")}}),
		resp.NewBool(true),
	}, got)
}

func TestSendPipelineAllOrNothing(t *testing.T) {
	replies := []resp.Value{
		resp.NewBulkString("fine"),
		resp.NewArray(resp.NewBulkString("odd")), // fails map coercion
	}
	standalone := &fakeStandalone{
		pipeline: func(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error) {
			return replies, nil
		},
	}
	client := newStandaloneTestClient(standalone, time.Second)

	pipeline := NewPipeline().Add(NewCommand("GET", "a"), NewCommand("HGETALL", "b"))
	got, err := client.SendPipeline(context.Background(), pipeline, 0, 2, nil)

	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Nil(t, got, "a failing coercion must not return partial data")
}

func TestSendPipelineDowngradesMultiNodeRoute(t *testing.T) {
	var seen SingleNodeRoute
	cluster := &fakeCluster{
		pipeline: func(ctx context.Context, cmds []*Command, offset, count int, route SingleNodeRoute) ([]resp.Value, error) {
			seen = route
			return []resp.Value{resp.NewStatus("OK")}, nil
		},
	}
	client := newClusterTestClient(cluster, time.Second)
	pipeline := NewPipeline().Add(NewCommand("SET", "k", "v"))

	// An explicit multi-node request downgrades, silently.
	_, err := client.SendPipeline(context.Background(), pipeline, 0, 1, AllNodesRoute{})
	require.NoError(t, err)
	assert.Equal(t, SingleNodeRoute(RandomRoute{}), seen)

	// A single-node request is honored.
	_, err = client.SendPipeline(context.Background(), pipeline, 0, 1, NodeRoute{Addr: "n1:6379"})
	require.NoError(t, err)
	assert.Equal(t, SingleNodeRoute(NodeRoute{Addr: "n1:6379"}), seen)
}

func TestSendCommandTimeoutDoesNotPoisonClient(t *testing.T) {
	block := make(chan struct{})
	calls := 0
	standalone := &fakeStandalone{
		send: func(ctx context.Context, cmd *Command) (resp.Value, error) {
			calls++
			if calls == 1 {
				<-block
			}
			return resp.NewStatus("OK"), nil
		},
	}
	client := newStandaloneTestClient(standalone, 50*time.Millisecond)

	start := time.Now()
	_, err := client.SendCommand(context.Background(), NewCommand("GET", "k"), nil)
	require.ErrorIs(t, err, ErrRequestTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// The client stays fully usable after a timeout.
	got, err := client.SendCommand(context.Background(), NewCommand("GET", "k"), nil)
	require.NoError(t, err)
	assert.Equal(t, resp.NewStatus("OK"), got)

	close(block)

	stats := client.Stats()
	assert.Equal(t, uint64(2), stats.Commands)
	assert.Equal(t, uint64(1), stats.Timeouts)
}

func TestSendPipelineTimeout(t *testing.T) {
	standalone := &fakeStandalone{
		pipeline: func(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	client := newStandaloneTestClient(standalone, 50*time.Millisecond)

	pipeline := NewPipeline().Add(NewCommand("GET", "a"))
	_, err := client.SendPipeline(context.Background(), pipeline, 0, 1, nil)
	require.ErrorIs(t, err, ErrRequestTimeout)
}

func TestClientClose(t *testing.T) {
	standalone := &fakeStandalone{}
	client := newStandaloneTestClient(standalone, time.Second)
	require.NoError(t, client.Close())
	assert.True(t, standalone.closed)

	cluster := &fakeCluster{}
	client = newClusterTestClient(cluster, time.Second)
	require.NoError(t, client.Close())
	assert.True(t, cluster.closed)
}

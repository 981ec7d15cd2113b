package kvgate

import (
	"context"
	"errors"

	"github.com/jackc/puddle/v2"

	"github.com/kvgate/kvgate/resp"
)

// StandaloneConnection implements the single-node collaborator. The
// node is reached through a single-connection pool: a connection lost
// to a fatal error (a timed-out round-trip desynchronizes the reply
// stream, so the socket must die) is destroyed and redialed on the
// next call, keeping the client usable after a timeout.
type StandaloneConnection struct {
	pool *puddle.Pool[*Connection]
}

var _ StandaloneConn = (*StandaloneConnection)(nil)

// NewStandaloneConnection builds the pool for the node named by the
// request's first address and verifies the node is reachable, so a dead
// node fails at construction rather than on the first call.
func NewStandaloneConnection(ctx context.Context, request *ConnectionRequest) (*StandaloneConnection, error) {
	cfg := nodeConfigFor(request, request.Addresses[0])
	pool, err := puddle.NewPool(&puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			return dialNode(ctx, cfg)
		},
		Destructor: func(conn *Connection) {
			_ = conn.Close()
		},
		MaxSize: 1,
	})
	if err != nil {
		return nil, err
	}

	res, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	res.Release()

	return &StandaloneConnection{pool: pool}, nil
}

func (s *StandaloneConnection) Send(ctx context.Context, cmd *Command) (resp.Value, error) {
	values, err := s.exec(ctx, []*Command{cmd})
	if err != nil {
		return resp.Value{}, err
	}
	return values[0], nil
}

func (s *StandaloneConnection) SendPipeline(ctx context.Context, cmds []*Command, offset, count int) ([]resp.Value, error) {
	values, err := s.exec(ctx, cmds)
	if err != nil {
		return nil, err
	}
	return windowValues(values, offset, count)
}

func (s *StandaloneConnection) exec(ctx context.Context, cmds []*Command) ([]resp.Value, error) {
	res, err := s.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrClosed
		}
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

func (s *StandaloneConnection) Close() error {
	s.pool.Close()
	return nil
}

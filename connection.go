package kvgate

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/kvgate/kvgate/resp"
)

// Connection is a single socket to one node. Round-trips are serialized
// by a mutex; a batch is written in full before any reply is read, so a
// pipeline costs one network round-trip.
type Connection struct {
	addr   string
	conn   net.Conn
	reader *resp.Reader
	writer *bufio.Writer

	mu     sync.Mutex
	closed bool
}

// dialNode establishes and handshakes one connection. The dial and TLS
// handshake are bounded by the per-attempt timeout; the protocol
// handshake runs under the caller's context.
func dialNode(ctx context.Context, cfg nodeConfig) (*Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectionAttemptTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	netConn, err := dialer.DialContext(dialCtx, "tcp", cfg.addr)
	if err != nil {
		return nil, err
	}

	if cfg.tlsMode != TLSModeNone {
		host, _, err := net.SplitHostPort(cfg.addr)
		if err != nil {
			host = cfg.addr
		}
		tlsConf := &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: cfg.tlsMode == TLSModeInsecure,
		}
		tlsConn := tls.Client(netConn, tlsConf)
		if err := tlsConn.HandshakeContext(dialCtx); err != nil {
			netConn.Close()
			return nil, err
		}
		netConn = tlsConn
	}

	conn := newConnection(cfg.addr, netConn)
	if err := conn.handshake(ctx, cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake with %s: %w", cfg.addr, err)
	}
	return conn, nil
}

func newConnection(addr string, netConn net.Conn) *Connection {
	return &Connection{
		addr:   addr,
		conn:   netConn,
		reader: resp.NewReader(bufio.NewReader(netConn)),
		writer: bufio.NewWriter(netConn),
	}
}

// handshake negotiates protocol version, credentials, logical database
// and replica-read mode, in that order.
func (c *Connection) handshake(ctx context.Context, cfg nodeConfig) error {
	var cmds []*Command

	auth := cfg.auth
	if auth != nil && auth.Password == "" {
		auth = nil
	}

	if cfg.useRESP3 {
		hello := []string{"3"}
		if auth != nil {
			username := auth.Username
			if username == "" {
				username = "default"
			}
			hello = append(hello, "AUTH", username, auth.Password)
		}
		cmds = append(cmds, NewCommand("HELLO", hello...))
	} else if auth != nil {
		if auth.Username != "" {
			cmds = append(cmds, NewCommand("AUTH", auth.Username, auth.Password))
		} else {
			cmds = append(cmds, NewCommand("AUTH", auth.Password))
		}
	}

	if cfg.database > 0 {
		cmds = append(cmds, NewCommand("SELECT", strconv.FormatUint(uint64(cfg.database), 10)))
	}
	if cfg.readOnly {
		cmds = append(cmds, NewCommand("READONLY"))
	}

	if len(cmds) == 0 {
		return nil
	}
	_, err := c.Exec(ctx, cmds)
	return err
}

// Exec sends the commands as one batch and returns one reply per
// command, in order.
//
// Error replies from the store do not desynchronize the stream: every
// remaining reply is still consumed, and the first error reply is
// returned. I/O and parse errors mark the connection closed.
func (c *Connection) Exec(ctx context.Context, cmds []*Command) ([]resp.Value, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Time{})
	}

	for _, cmd := range cmds {
		if err := resp.WriteCommand(c.writer, cmd.Args()...); err != nil {
			c.markClosed()
			return nil, err
		}
	}
	if err := c.writer.Flush(); err != nil {
		c.markClosed()
		return nil, err
	}

	values := make([]resp.Value, len(cmds))
	var replyErr error
	for i := range cmds {
		value, err := c.reader.ReadValue()
		if err != nil {
			var serverErr *resp.ServerError
			if !errors.As(err, &serverErr) {
				c.markClosed()
				return nil, err
			}
			if replyErr == nil {
				replyErr = err
			}
			continue
		}
		values[i] = value
	}
	if replyErr != nil {
		return nil, replyErr
	}
	return values, nil
}

// markClosed must be called with the mutex held.
func (c *Connection) markClosed() {
	if !c.closed {
		c.closed = true
		c.conn.Close()
	}
}

// Addr returns the node address this connection is bound to.
func (c *Connection) Addr() string {
	return c.addr
}

// Close shuts the socket down. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markClosed()
	return nil
}

// shouldCloseConnection reports whether an error leaves the connection
// in an unusable state. Error replies from the store keep the stream
// aligned; anything unknown is treated as fatal.
func shouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}
	var stateful interface{ ShouldCloseConnection() bool }
	if errors.As(err, &stateful) {
		return stateful.ShouldCloseConnection()
	}
	return true
}

// windowValues trims a reply sequence to the offset/count window of
// user-visible results.
func windowValues(values []resp.Value, offset, count int) ([]resp.Value, error) {
	if offset < 0 || count < 0 || offset+count > len(values) {
		return nil, fmt.Errorf("kvgate: reply window %d+%d out of range for %d replies", offset, count, len(values))
	}
	return values[offset : offset+count], nil
}

package kvgate

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	// DefaultPort is used for addresses that leave the port unset.
	DefaultPort = 6379

	// DefaultRequestTimeout bounds every call when the request does not
	// specify its own timeout.
	DefaultRequestTimeout = 250 * time.Millisecond

	// connectionAttemptTimeout bounds each individual node dial inside
	// the built-in connections. The overall construction deadline is
	// separate (see clientCreationTimeout).
	connectionAttemptTimeout = 250 * time.Millisecond

	// clientCreationTimeout is the aggregate deadline for building a
	// client, covering the whole bootstrap sequence of either topology.
	clientCreationTimeout = 10 * time.Second
)

// TLSMode selects how node connections are secured.
type TLSMode uint8

const (
	TLSModeNone     TLSMode = iota // plain TCP
	TLSModeSecure                  // TLS with certificate verification
	TLSModeInsecure                // TLS without certificate verification
)

func (m TLSMode) String() string {
	switch m {
	case TLSModeNone:
		return "none"
	case TLSModeSecure:
		return "secure"
	case TLSModeInsecure:
		return "insecure"
	}
	return "unknown"
}

// ReadFrom selects which nodes may serve reads. Only the binary
// primary/replica toggle is implemented: any finer-grained strategy
// value accepted by the request schema collapses to PreferReplica.
type ReadFrom uint8

const (
	ReadFromPrimary ReadFrom = iota
	ReadFromPreferReplica
)

func (r ReadFrom) String() string {
	if r == ReadFromPrimary {
		return "primary"
	}
	return "prefer-replica"
}

// NodeAddress locates one store node. A zero Port means DefaultPort.
type NodeAddress struct {
	Host string
	Port uint16
}

func (a NodeAddress) port() uint16 {
	if a.Port == 0 {
		return DefaultPort
	}
	return a.Port
}

func (a NodeAddress) addr() string {
	return net.JoinHostPort(a.Host, fmt.Sprint(a.port()))
}

// AuthInfo carries credentials for the authentication handshake.
// Empty strings mean "not provided".
type AuthInfo struct {
	Username string
	Password string
}

// RetryStrategy parameterizes the reconnection backoff of the
// connection collaborators. The client core itself never retries; the
// values are passed through opaquely.
type RetryStrategy struct {
	NumberOfRetries uint32
	ExponentBase    uint32
	Factor          uint32
}

// ConnectionRequest is the immutable configuration a Client is built
// from. It is consumed exactly once by NewClient.
type ConnectionRequest struct {
	// Addresses lists the initial nodes, in order. Standalone clients
	// use the first address; cluster clients use all of them.
	Addresses []NodeAddress

	// TLSMode secures node connections. Applies to every node alike.
	TLSMode TLSMode

	// ClusterModeEnabled selects the cluster topology. The topology is
	// fixed for the client's entire lifetime.
	ClusterModeEnabled bool

	// Auth holds optional credentials.
	Auth *AuthInfo

	// DatabaseID selects the logical database. Standalone only; cluster
	// deployments always use database 0.
	DatabaseID uint32

	// UseRESP3 negotiates the protocol version with native map, double
	// and boolean replies. Reply coercion is correct either way.
	UseRESP3 bool

	// ReadFrom toggles replica reads.
	ReadFrom ReadFrom

	// RequestTimeout bounds every call on the client. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// ConnectionRetryStrategy is handed to the connection collaborators
	// for their reconnection backoff. Unused by the client core.
	ConnectionRetryStrategy *RetryStrategy

	// PoolSize is the per-node connection pool size of the built-in
	// cluster connection. Zero means a small default.
	PoolSize int32

	// NewCircuitBreaker, when set, creates a circuit breaker per node
	// inside the built-in cluster connection. See NewCircuitBreakerConfig.
	NewCircuitBreaker func(nodeAddr string) CircuitBreaker

	// Logger receives the one-time sanitized configuration summary at
	// construction. Nil means slog.Default().
	Logger *slog.Logger

	// test hooks, overriding the built-in connection collaborators
	standaloneConnect func(ctx context.Context, request *ConnectionRequest) (StandaloneConn, error)
	clusterConnect    func(ctx context.Context, request *ConnectionRequest) (ClusterConn, error)
}

// effectiveTimeout applies the zero-means-default rule.
func effectiveTimeout(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// sanitizedRequestString renders the request for the construction log
// line. The password never appears in it.
func sanitizedRequestString(request *ConnectionRequest) string {
	addrs := make([]string, len(request.Addresses))
	for i, a := range request.Addresses {
		addrs[i] = fmt.Sprintf("%s:%d", a.Host, a.Port)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\naddresses: %s", strings.Join(addrs, ", "))
	fmt.Fprintf(&b, "\nTLS mode: %s", request.TLSMode)
	fmt.Fprintf(&b, "\ncluster mode: %t", request.ClusterModeEnabled)
	if request.RequestTimeout > 0 {
		fmt.Fprintf(&b, "\nresponse timeout: %s", request.RequestTimeout)
	}
	fmt.Fprintf(&b, "\nread from: %s", request.ReadFrom)
	if request.DatabaseID > 0 {
		fmt.Fprintf(&b, "\ndatabase ID: %d", request.DatabaseID)
	}
	if s := request.ConnectionRetryStrategy; s != nil {
		fmt.Fprintf(&b, "\nreconnect backoff strategy: retries: %d, base: %d, factor: %d",
			s.NumberOfRetries, s.ExponentBase, s.Factor)
	}
	return b.String()
}

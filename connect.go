package kvgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// NewClient builds a client from a connection request, fixing the
// topology and the request timeout for the client's lifetime.
//
// The whole bootstrap runs under a single aggregate deadline; exceeding
// it supersedes any partial failure. Failures on either topology path
// come back as a *ConnectionError.
func NewClient(ctx context.Context, request *ConnectionRequest) (*Client, error) {
	if len(request.Addresses) == 0 {
		return nil, &ConnectionError{
			Kind: connectionErrorKindFor(request),
			Err:  errors.New("no addresses provided"),
		}
	}

	logger := request.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connection configuration", "config", sanitizedRequestString(request))

	requestTimeout := effectiveTimeout(request.RequestTimeout, DefaultRequestTimeout)

	client, err := runWithTimeout(ctx, clientCreationTimeout, func(ctx context.Context) (*Client, error) {
		client := &Client{
			requestTimeout: requestTimeout,
			stats:          newClientStatsCollector(),
		}

		if request.ClusterModeEnabled {
			conn, err := connectCluster(ctx, request)
			if err != nil {
				return nil, &ConnectionError{Kind: ConnectionErrorCluster, Err: err}
			}
			client.cluster = conn
			return client, nil
		}

		conn, err := connectStandalone(ctx, request)
		if err != nil {
			return nil, &ConnectionError{Kind: ConnectionErrorStandalone, Err: err}
		}
		client.standalone = conn
		return client, nil
	})
	if errors.Is(err, ErrRequestTimeout) {
		return nil, &ConnectionError{Kind: ConnectionErrorTimeout, Err: err}
	}
	return client, err
}

func connectionErrorKindFor(request *ConnectionRequest) ConnectionErrorKind {
	if request.ClusterModeEnabled {
		return ConnectionErrorCluster
	}
	return ConnectionErrorStandalone
}

func connectStandalone(ctx context.Context, request *ConnectionRequest) (StandaloneConn, error) {
	if request.standaloneConnect != nil {
		return request.standaloneConnect(ctx, request)
	}
	return NewStandaloneConnection(ctx, request)
}

func connectCluster(ctx context.Context, request *ConnectionRequest) (ClusterConn, error) {
	if request.clusterConnect != nil {
		return request.clusterConnect(ctx, request)
	}
	return NewClusterConnection(ctx, request)
}

// nodeConfig is the per-node dial configuration the construction glue
// derives from a connection request.
type nodeConfig struct {
	addr     string
	tlsMode  TLSMode
	auth     *AuthInfo
	database uint32
	useRESP3 bool
	readOnly bool
}

// nodeConfigFor translates one address plus the request-wide settings
// into the dial configuration of the built-in connections.
func nodeConfigFor(request *ConnectionRequest, address NodeAddress) nodeConfig {
	cfg := nodeConfig{
		addr:     address.addr(),
		tlsMode:  request.TLSMode,
		auth:     request.Auth,
		useRESP3: request.UseRESP3,
		readOnly: request.ClusterModeEnabled && request.ReadFrom != ReadFromPrimary,
	}
	if !request.ClusterModeEnabled {
		cfg.database = request.DatabaseID
	}
	return cfg
}

func (c nodeConfig) String() string {
	return fmt.Sprintf("%s (tls=%s resp3=%t)", c.addr, c.tlsMode, c.useRESP3)
}

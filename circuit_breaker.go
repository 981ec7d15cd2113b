package kvgate

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards round-trips to a single node. When the breaker
// is open, calls fail immediately without touching the network.
type CircuitBreaker interface {
	Execute(op func() error) error
}

// NewCircuitBreakerConfig returns a factory creating one circuit
// breaker per node address, for use as ConnectionRequest.NewCircuitBreaker.
// The breaker trips once at least 3 requests have been seen in the
// rolling interval and 60% of them failed.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(nodeAddr string) CircuitBreaker {
	return func(nodeAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        nodeAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return &gobreakerAdapter{cb: gobreaker.NewCircuitBreaker[bool](settings)}
	}
}

// gobreakerAdapter narrows gobreaker's generic API to the error-only
// shape both single and batch round-trips share.
type gobreakerAdapter struct {
	cb *gobreaker.CircuitBreaker[bool]
}

func (a *gobreakerAdapter) Execute(op func() error) error {
	_, err := a.cb.Execute(func() (bool, error) {
		return true, op()
	})
	return err
}

package kvgate

import (
	"errors"
	"sync/atomic"
)

// ClientStats contains counters for client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as counters with an
// operation label; derive an error rate from Errors over
// Commands+Pipelines.
type ClientStats struct {
	Commands         uint64 // total single commands dispatched
	Pipelines        uint64 // total pipelines dispatched
	Timeouts         uint64 // calls that hit the request timeout
	ConversionErrors uint64 // replies that failed type coercion
	Errors           uint64 // total failed calls of any kind
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordCommand(err error) {
	atomic.AddUint64(&c.stats.Commands, 1)
	c.recordOutcome(err)
}

func (c *clientStatsCollector) recordPipeline(err error) {
	atomic.AddUint64(&c.stats.Pipelines, 1)
	c.recordOutcome(err)
}

func (c *clientStatsCollector) recordOutcome(err error) {
	if err == nil {
		return
	}
	atomic.AddUint64(&c.stats.Errors, 1)
	if errors.Is(err, ErrRequestTimeout) {
		atomic.AddUint64(&c.stats.Timeouts, 1)
	}
	var typeErr *TypeError
	if errors.As(err, &typeErr) {
		atomic.AddUint64(&c.stats.ConversionErrors, 1)
	}
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:         atomic.LoadUint64(&c.stats.Commands),
		Pipelines:        atomic.LoadUint64(&c.stats.Pipelines),
		Timeouts:         atomic.LoadUint64(&c.stats.Timeouts),
		ConversionErrors: atomic.LoadUint64(&c.stats.ConversionErrors),
		Errors:           atomic.LoadUint64(&c.stats.Errors),
	}
}

// Package statuspoll implements StatusStreamProvider (spec.md §4.9) by
// polling a statusstream.Source at a fixed interval. Grounded on
// pkg/intent/discovery.go's monitoringLoop: a ticker-driven poll loop
// over external chain state, generalized from block-height polling to
// per-commitment status polling, with the same dedup-by-last-seen-value
// discipline pkg/monitor already uses for commitments.
package statuspoll

import (
	"context"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/internal/fillerlog"
	"github.com/hyperfill/intent-filler/pkg/bridgehost"
	"github.com/hyperfill/intent-filler/pkg/metrics"
	"github.com/hyperfill/intent-filler/pkg/statusstream"
)

// DefaultPollInterval matches spec.md §4.9's default.
const DefaultPollInterval = 1 * time.Second

// Poller implements statusstream.Provider.
type Poller struct {
	source       statusstream.Source
	pollInterval time.Duration
	logger       *log.Logger
	metrics      *metrics.Registry
}

// SetMetrics attaches a metrics.Registry to report poll counters into. A
// nil Poller.metrics (the default) is a silent no-op.
func (p *Poller) SetMetrics(m *metrics.Registry) {
	p.metrics = m
}

// New builds a Poller. pollInterval <= 0 falls back to DefaultPollInterval.
func New(source statusstream.Source, pollInterval time.Duration) *Poller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Poller{source: source, pollInterval: pollInterval, logger: fillerlog.New("StatusPoll")}
}

// Stream implements statusstream.Provider.Stream: a buffered channel fed
// by a background poll loop, emitting only strictly-increasing, non-
// duplicate statuses and closing once a terminal status is reached.
func (p *Poller) Stream(ctx context.Context, commitment common.Hash) (<-chan bridgehost.RequestStatusWithMetadata, error) {
	out := make(chan bridgehost.RequestStatusWithMetadata, 8)
	go p.run(ctx, commitment, out)
	return out, nil
}

func (p *Poller) run(ctx context.Context, commitment common.Hash, out chan<- bridgehost.RequestStatusWithMetadata) {
	defer close(out)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	lastRank := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, ok, err := p.source.QueryStatus(ctx, commitment)
			if err != nil {
				p.logger.Printf("commitment %s: query status: %v", commitment, err)
				if p.metrics != nil {
					p.metrics.StatusStreamErrors.WithLabelValues().Inc()
				}
				continue
			}
			if !ok {
				continue
			}
			if status.Status.Rank() <= lastRank {
				continue // duplicate or stale, per spec.md §4.9's monotonicity contract
			}
			lastRank = status.Status.Rank()

			if p.metrics != nil {
				p.metrics.StatusStreamEvents.WithLabelValues(status.Status.String()).Inc()
			}
			select {
			case out <- status:
			case <-ctx.Done():
				return
			}

			if status.Status.IsTerminal() {
				return
			}
		}
	}
}

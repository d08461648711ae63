package mined

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/diff"
	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/stream"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

// Sink consumes diff results, emitting a Summary (and publishing it under
// com.fee.minedtxssummary) whenever a result is classified as mined
// (spec §4.4).
type Sink struct {
	publisher ports.Publisher
	logger    *zap.Logger
	metrics   *telemetry.Metrics

	broadcaster *stream.Broadcaster[Summary]

	mu        sync.Mutex
	latestIBI time.Duration
}

// NewSink creates a Sink. publisher may be nil, in which case summaries are
// only made available via Summaries() and never published.
func NewSink(publisher ports.Publisher, logger *zap.Logger, metrics *telemetry.Metrics) *Sink {
	return &Sink{
		publisher:   publisher,
		logger:      logger,
		metrics:     metrics,
		broadcaster: stream.NewBroadcaster[Summary](),
	}
}

// Summaries returns a hot subscription to computed summaries.
func (s *Sink) Summaries() (<-chan Summary, func()) {
	return s.broadcaster.Subscribe()
}

// Run consumes diff results until ctx is cancelled or results closes.
func (s *Sink) Run(ctx context.Context, results <-chan diff.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			if !result.Mined {
				continue
			}
			s.handleMined(result)
		}
	}
}

// ConsumeIntervals keeps the latest InterBlockInterval available to pair
// with the next mined event (spec §4.3, §4.4).
func (s *Sink) ConsumeIntervals(ctx context.Context, intervals <-chan time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case ibi, ok := <-intervals:
			if !ok {
				return
			}
			s.mu.Lock()
			s.latestIBI = ibi
			s.mu.Unlock()
		}
	}
}

func (s *Sink) handleMined(result diff.Result) {
	now := time.Now()
	s.mu.Lock()
	ibi := s.latestIBI
	s.mu.Unlock()

	summary := Compute(result.Removed, ibi, now)
	s.broadcaster.Publish(summary)

	if s.metrics != nil {
		s.metrics.MinedEvents.Inc()
	}

	if s.logger != nil {
		s.logger.Info("mined block detected",
			zap.Int("removed_txs", summary.Txs),
			zap.Float64("block_size_mb", summary.BlockSize),
			zap.Float64("ibi_minutes", summary.IBI),
			zap.String("block_hash", result.BlockHash),
		)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ports.TopicMinedSummary, summary); err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to publish mined summary", zap.Error(err))
		}
	}
}

// Package interval tracks InterBlockInterval (spec §4.3): the elapsed
// wall-clock time between adjacent block-hash notifications. It is a
// standalone stage subscribing directly to ports.BlockHashFeed, not a
// byproduct of mempool polling or mined-event classification, mirroring
// the direct BlockHashFeed -> InterBlockInterval edge in the pipeline
// diagram.
package interval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/stream"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

// Tracker computes the elapsed duration between consecutive real
// block-hash events and broadcasts it hot, the same fan-out shape the
// rest of the pipeline's stages use.
type Tracker struct {
	feed    ports.BlockHashFeed
	logger  *zap.Logger
	metrics *telemetry.Metrics

	broadcaster *stream.Broadcaster[time.Duration]
}

// NewTracker creates a Tracker over feed.
func NewTracker(feed ports.BlockHashFeed, logger *zap.Logger, metrics *telemetry.Metrics) *Tracker {
	return &Tracker{
		feed:        feed,
		logger:      logger,
		metrics:     metrics,
		broadcaster: stream.NewBroadcaster[time.Duration](),
	}
}

// Intervals returns a hot subscription to inter-block intervals. Each
// caller must obtain its own subscription; the returned channel must
// never be shared between two consumer goroutines.
func (t *Tracker) Intervals() (<-chan time.Duration, func()) {
	return t.broadcaster.Subscribe()
}

// Run subscribes to the block-hash feed and publishes the elapsed time
// between adjacent real (non-"open") events until ctx is cancelled or the
// feed closes.
func (t *Tracker) Run(ctx context.Context) error {
	events, err := t.feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	var lastAt time.Time
	var hasLast bool
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Hash == "" {
				// The feed's initial "open" signal carries no real block.
				continue
			}
			if hasLast {
				ibi := ev.At.Sub(lastAt)
				t.broadcaster.Publish(ibi)
				if t.metrics != nil {
					t.metrics.InterBlockIntervalSeconds.Set(ibi.Seconds())
				}
			}
			lastAt = ev.At
			hasLast = true
		}
	}
}

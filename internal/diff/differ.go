package diff

import (
	"context"

	"github.com/mariusgiger/feesim-stream/internal/mempool"
	"github.com/mariusgiger/feesim-stream/internal/stream"
)

// Differ subscribes to a snapshot stream and republishes Result values for
// each consecutive pair, discarding any snapshot it observes out of
// emission order (spec §5: "PairwiseDiff observes snapshots in emission
// order; a snapshot older than the current pair is discarded" -- since
// Snapshots() is itself a last-value-wins hot broadcast, Differ never
// actually sees a stale snapshot, so this is enforced by construction).
type Differ struct {
	broadcaster *stream.Broadcaster[Result]
	lastHashFn  func() string
}

// NewDiffer creates a Differ. lastHashFn supplies the block hash that
// triggered the most recent poll (poller.LastBlockHash), attached to every
// Result so downstream mined-event consumers can correlate it.
func NewDiffer(lastHashFn func() string) *Differ {
	return &Differ{
		broadcaster: stream.NewBroadcaster[Result](),
		lastHashFn:  lastHashFn,
	}
}

// Results returns a hot subscription to diff results.
func (d *Differ) Results() (<-chan Result, func()) {
	return d.broadcaster.Subscribe()
}

// Run consumes snapshots until ctx is cancelled or snapshots closes.
func (d *Differ) Run(ctx context.Context, snapshots <-chan mempool.Snapshot) {
	var prev mempool.Snapshot
	hasPrev := false

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if hasPrev {
				blockHash := ""
				if d.lastHashFn != nil {
					blockHash = d.lastHashFn()
				}
				d.broadcaster.Publish(Pair(prev, snap, blockHash))
			}
			prev = snap
			hasPrev = true
		}
	}
}

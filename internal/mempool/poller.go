package mempool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/stream"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

// Poller polls the node's raw mempool at a fixed period and on every
// block-hash notification, packing and deduplicating the result into a
// hot Snapshot broadcast (spec §4.1).
type Poller struct {
	rpc      ports.MempoolRPC
	blocks   ports.BlockHashFeed
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	timeRes            time.Duration
	blockEffectiveSize float64

	broadcaster *stream.Broadcaster[Snapshot]
	lastHash    uint64
	hasLast     bool

	// lastBlockHash records which block-hash notification most recently
	// triggered a poll; diff.Differ attaches it to each diff.Result
	// (DESIGN.md Open Question #2). Guarded by hashMu since it's written
	// from Run's loop and read from LastBlockHash by another goroutine.
	hashMu        sync.Mutex
	lastBlockHash string
}

// NewPoller constructs a Poller. blockEffectiveSize is
// blockSize*(1-minersReservedBlockRatio) (spec §3).
func NewPoller(rpc ports.MempoolRPC, blocks ports.BlockHashFeed, logger *zap.Logger, metrics *telemetry.Metrics, timeRes time.Duration, blockEffectiveSize float64) *Poller {
	return &Poller{
		rpc:                rpc,
		blocks:             blocks,
		logger:             logger,
		metrics:            metrics,
		timeRes:            timeRes,
		blockEffectiveSize: blockEffectiveSize,
		broadcaster:        stream.NewBroadcaster[Snapshot](),
	}
}

// Snapshots returns a hot, multicast subscription to packed snapshots,
// emitted only when they differ structurally from the previous one
// (spec §4.1 step 4).
func (p *Poller) Snapshots() (<-chan Snapshot, func()) {
	return p.broadcaster.Subscribe()
}

// LastBlockHash returns the block hash that triggered the most recent
// poll, or "" if the poller hasn't observed a block-hash notification yet.
func (p *Poller) LastBlockHash() string {
	p.hashMu.Lock()
	defer p.hashMu.Unlock()
	return p.lastBlockHash
}

// Run drives the poll loop until ctx is cancelled or the block-hash feed
// terminates. RPC failures are returned to the caller per spec §4.1's
// "surface the error to the subscriber" policy; the outer supervisor
// (internal/pipeline) is responsible for restart-with-backoff.
func (p *Poller) Run(ctx context.Context) error {
	blockEvents, err := p.blocks.Subscribe(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.timeRes)
	defer ticker.Stop()

	if err := p.poll(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-blockEvents:
			if !ok {
				return nil
			}
			if ev.Hash != "" {
				p.hashMu.Lock()
				p.lastBlockHash = ev.Hash
				p.hashMu.Unlock()
			}
			if err := p.poll(ctx); err != nil {
				return err
			}
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	raw, err := p.rpc.GetRawMempool(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RPCErrors.Inc()
		}
		return err
	}

	txs := make([]Tx, 0, len(raw))
	for txid, entry := range raw {
		tx, ok := FromRawEntry(txid, entry)
		if !ok {
			if p.metrics != nil {
				p.metrics.ParseErrors.Inc()
			}
			continue
		}
		txs = append(txs, tx)
	}

	snap := NewSnapshot(txs, p.blockEffectiveSize)
	if p.hasLast && snap.Hash == p.lastHash {
		if p.metrics != nil {
			p.metrics.SnapshotsDeduped.Inc()
		}
		return nil
	}
	p.lastHash = snap.Hash
	p.hasLast = true

	p.broadcaster.Publish(snap)
	return nil
}

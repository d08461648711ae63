// Package kinematics tracks the mempool's Added/Removed flow as a 1-D
// trajectory over block-time and projects it backward to estimate, for
// each target confirmation horizon, the fee rate a transaction needs
// today (spec §4.5, §4.6).
package kinematics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/config"
	"github.com/mariusgiger/feesim-stream/internal/diff"
	"github.com/mariusgiger/feesim-stream/internal/mempool"
	"github.com/mariusgiger/feesim-stream/internal/stream"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

// feeEstimateSafetyFactor deliberately undershoots the selected tx's fee
// rate to avoid pathological minima under heavy competitive use (spec §4.6).
const feeEstimateSafetyFactor = 0.999

// MinedBuffer pairs one mined event's Removed set with the inter-block
// interval it was observed under, the unit RemovedBytesAhead coalesces
// over the last intBlocksRemoved events (spec §4.5).
type MinedBuffer struct {
	Removed []mempool.Tx
	IBI     time.Duration
}

// Estimate is a single FeeEstimate sample (spec §4.6).
type Estimate struct {
	TargetBlock int
	FeeRate     float64
	Timestamp   time.Time
}

// Engine is the per-process kinematics tracker: one Added-window shared
// across all targets (the target-dependent filter is applied at query
// time against each tx's already-packed CumSize), one mined-event
// ring buffer for the Removed side, and per-target velocity history for
// Acceleration's discrete difference.
type Engine struct {
	constants          config.Constants
	blockEffectiveSize float64
	logger             *zap.Logger
	metrics            *telemetry.Metrics

	addedWindow  *stream.TimeWindow[mempool.Tx]
	minedBuffers *stream.CountWindow[MinedBuffer]

	mu             sync.Mutex
	latestSnapshot mempool.Snapshot
	hasSnapshot    bool
	latestIBI      time.Duration
	prevVelocity   map[int]float64
}

// NewEngine creates an Engine sized from the configured constants.
func NewEngine(constants config.Constants, logger *zap.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		constants:          constants,
		blockEffectiveSize: constants.BlockEffectiveSize(),
		logger:             logger,
		metrics:            metrics,
		addedWindow:        stream.NewTimeWindow[mempool.Tx](constants.IntTimeAddedDuration()),
		minedBuffers:       stream.NewCountWindow[MinedBuffer](constants.IntBlocksRemoved),
		prevVelocity:       make(map[int]float64),
	}
}

// ConsumeSnapshots keeps the latest SortedMempoolSnapshot available for
// FinalPosition/FeeEstimateTx lookups.
func (e *Engine) ConsumeSnapshots(ctx context.Context, snapshots <-chan mempool.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			e.mu.Lock()
			e.latestSnapshot = snap
			e.hasSnapshot = true
			e.mu.Unlock()
		}
	}
}

// ConsumeDiffs feeds every PairwiseDiff result into the Added window and,
// for mined events, the Removed ring buffer.
func (e *Engine) ConsumeDiffs(ctx context.Context, results <-chan diff.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			e.observeDiff(result)
		}
	}
}

// ConsumeIntervals keeps the latest InterBlockInterval available for
// RemovedBytesAhead's rescale denominator (spec §4.3, §4.5).
func (e *Engine) ConsumeIntervals(ctx context.Context, intervals <-chan time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case ibi, ok := <-intervals:
			if !ok {
				return
			}
			e.mu.Lock()
			e.latestIBI = ibi
			e.mu.Unlock()
		}
	}
}

func (e *Engine) observeDiff(result diff.Result) {
	now := time.Now()
	for _, tx := range result.Added {
		e.addedWindow.Add(now, tx)
	}
	if !result.Mined {
		return
	}

	e.mu.Lock()
	ibi := e.latestIBI
	e.mu.Unlock()

	e.minedBuffers.Add(MinedBuffer{Removed: result.Removed, IBI: ibi})
}

// AddedBytesAhead sums the size of buffered Added transactions ahead of
// target, rescaled to bytes per 10 minutes (spec §4.5).
func (e *Engine) AddedBytesAhead(target int) float64 {
	threshold := float64(target) * e.blockEffectiveSize
	sum := e.addedWindow.Sum(time.Now(), func(tx mempool.Tx) float64 {
		if tx.CumSize < threshold {
			return tx.Size
		}
		return 0
	})

	intTimeAdded := e.constants.IntTimeAdded
	if intTimeAdded <= 0 {
		return 0
	}
	return (sum / float64(intTimeAdded)) * 600000
}

// RemovedBytesAhead coalesces the last intBlocksRemoved mined buffers'
// Removed transactions ahead of target, rescaled to bytes per 10 minutes
// (spec §4.5).
func (e *Engine) RemovedBytesAhead(target int) float64 {
	threshold := float64(target) * e.blockEffectiveSize

	var sumSize float64
	var sumIBIms float64
	for _, buf := range e.minedBuffers.Items() {
		for _, tx := range buf.Removed {
			if tx.CumSize < threshold {
				sumSize += tx.Size
			}
		}
		sumIBIms += float64(buf.IBI.Milliseconds())
	}
	if sumIBIms <= 0 {
		return 0
	}
	sumIBIMinutes := sumIBIms / 60000
	return sumSize / sumIBIMinutes * 10
}

// Velocity is the net queue-position rate of change for target (spec §4.5).
func (e *Engine) Velocity(target int) float64 {
	return e.AddedBytesAhead(target) - e.RemovedBytesAhead(target)
}

// Acceleration is the first discrete difference of Velocity(target); the
// first call for a given target seeds the history and returns the seed
// itself (spec §4.5). Intended to be sampled once per poll tick.
func (e *Engine) Acceleration(target int) float64 {
	v := e.Velocity(target)

	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.prevVelocity[target]
	e.prevVelocity[target] = v
	if !ok {
		return v
	}
	return v - prev
}

// FinalPosition delegates to the latest snapshot's boundary lookup (spec §4.6).
func (e *Engine) FinalPosition(target int) (float64, bool) {
	e.mu.Lock()
	snap, has := e.latestSnapshot, e.hasSnapshot
	e.mu.Unlock()
	if !has {
		return 0, false
	}
	return snap.FinalPosition(target)
}

// InitialPosition kinematically back-projects the queue position a
// transaction must occupy today to clear target blocks from now
// (spec §4.6). Suppressed (ok=false) until a FinalPosition boundary exists.
func (e *Engine) InitialPosition(target int) (float64, bool) {
	xFinal, ok := e.FinalPosition(target)
	if !ok {
		return 0, false
	}
	v := e.Velocity(target)
	a := e.Acceleration(target)
	t := float64(target)
	x0 := xFinal - (v*t + 0.5*a*t*t)
	return x0, true
}

// FeeEstimateTx selects the transaction nearest the back-projected
// position (spec §4.6).
func (e *Engine) FeeEstimateTx(target int) (mempool.Tx, bool) {
	x0, ok := e.InitialPosition(target)
	if !ok {
		return mempool.Tx{}, false
	}
	e.mu.Lock()
	snap, has := e.latestSnapshot, e.hasSnapshot
	e.mu.Unlock()
	if !has {
		return mempool.Tx{}, false
	}
	return snap.NearestTx(x0)
}

// FeeEstimate returns the fee rate recommendation for target, undershot
// by feeEstimateSafetyFactor (spec §4.6).
func (e *Engine) FeeEstimate(target int) (Estimate, bool) {
	tx, ok := e.FeeEstimateTx(target)
	if !ok {
		if e.metrics != nil {
			e.metrics.ArithmeticSkips.Inc()
		}
		return Estimate{}, false
	}
	return Estimate{
		TargetBlock: target,
		FeeRate:     tx.FeeRate * feeEstimateSafetyFactor,
		Timestamp:   time.Now(),
	}, true
}

// Package pipeline wires the estimation DAG end to end: MempoolPoller ->
// PairwiseDiff -> {MinedSummary, Velocity/Acceleration/FeeEstimate} ->
// FeeDiff/Recommendation, and supervises the whole thing with the
// restart-with-backoff policy spec §7 assigns to a "root supervisor"
// (modeled on the teacher's rootCommand.go background goroutine that
// restarts the mempool cache on fatal error, generalized from a single
// log.Fatal into a restart loop that runs until the context is cancelled).
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/config"
	"github.com/mariusgiger/feesim-stream/internal/diff"
	"github.com/mariusgiger/feesim-stream/internal/interval"
	"github.com/mariusgiger/feesim-stream/internal/kinematics"
	"github.com/mariusgiger/feesim-stream/internal/mempool"
	"github.com/mariusgiger/feesim-stream/internal/mined"
	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/recommend"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

// supervisorBackoff is the root supervisor's fixed retry delay (spec §7:
// "retries after a fixed backoff (≈20 s)").
const supervisorBackoff = 20 * time.Second

// Pipeline bundles every stage's constructor output so Run can wire them
// and MinedSummaries()/Engine() can be used from the CLI or tests.
type Pipeline struct {
	cfg     config.Config
	rpc     ports.MempoolRPC
	blocks  ports.BlockHashFeed
	pub     ports.Publisher
	logger  *zap.Logger
	metrics *telemetry.Metrics

	poller     *mempool.Poller
	differ     *diff.Differ
	minedSink  *mined.Sink
	engine     *kinematics.Engine
	ibiTracker *interval.Tracker
}

// New builds a Pipeline from its external collaborators. pub may be nil
// to run without publishing (e.g. local testing/CLI dry-run).
func New(cfg config.Config, rpc ports.MempoolRPC, blocks ports.BlockHashFeed, pub ports.Publisher, logger *zap.Logger, metrics *telemetry.Metrics) *Pipeline {
	poller := mempool.NewPoller(rpc, blocks, logger, metrics, cfg.Constants.TimeResDuration(), cfg.Constants.BlockEffectiveSize())
	differ := diff.NewDiffer(poller.LastBlockHash)
	minedSink := mined.NewSink(pub, logger, metrics)
	engine := kinematics.NewEngine(cfg.Constants, logger, metrics)
	ibiTracker := interval.NewTracker(blocks, logger, metrics)

	return &Pipeline{
		cfg:        cfg,
		rpc:        rpc,
		blocks:     blocks,
		pub:        pub,
		logger:     logger,
		metrics:    metrics,
		poller:     poller,
		differ:     differ,
		minedSink:  minedSink,
		engine:     engine,
		ibiTracker: ibiTracker,
	}
}

// Engine exposes the kinematics engine so the recommendation ticker (or
// tests) can query FeeEstimate/InitialPosition directly.
func (p *Pipeline) Engine() *kinematics.Engine { return p.engine }

// MinedSummaries returns a hot subscription to mined-block summaries.
func (p *Pipeline) MinedSummaries() (<-chan mined.Summary, func()) {
	return p.minedSink.Summaries()
}

// Run drives the pipeline's internal wiring (poller -> differ -> sinks)
// until ctx is cancelled, restarting the poller stage and the inter-block
// interval tracker stage with supervisorBackoff whenever either returns
// (spec §7). The differ and sink goroutines are started once and are not
// restarted.
func (p *Pipeline) Run(ctx context.Context) {
	// Each consumer gets its own Subscribe call: the broadcaster is a
	// fan-out, but a channel handed to more than one goroutine would
	// split (not duplicate) its values between them.
	snapshotsForEngine, unsubSnapEngine := p.poller.Snapshots()
	defer unsubSnapEngine()
	snapshotsForDiff, unsubSnapDiff := p.poller.Snapshots()
	defer unsubSnapDiff()

	resultsForEngine, unsubResultsEngine := p.differ.Results()
	defer unsubResultsEngine()
	resultsForMined, unsubResultsMined := p.differ.Results()
	defer unsubResultsMined()

	intervalsForEngine, unsubIntervalsEngine := p.ibiTracker.Intervals()
	defer unsubIntervalsEngine()
	intervalsForMined, unsubIntervalsMined := p.ibiTracker.Intervals()
	defer unsubIntervalsMined()

	go p.engine.ConsumeSnapshots(ctx, snapshotsForEngine)
	go p.engine.ConsumeDiffs(ctx, resultsForEngine)
	go p.engine.ConsumeIntervals(ctx, intervalsForEngine)
	go p.minedSink.Run(ctx, resultsForMined)
	go p.minedSink.ConsumeIntervals(ctx, intervalsForMined)
	go p.differ.Run(ctx, snapshotsForDiff)

	go p.runSupervised(ctx, "ibi tracker stage", p.ibiTracker.Run)
	p.runSupervised(ctx, "poller stage", p.poller.Run)
}

// runSupervised restarts fn with supervisorBackoff between attempts until
// ctx is cancelled (spec §7's root-supervisor restart-with-backoff policy).
func (p *Pipeline) runSupervised(ctx context.Context, stage string, fn func(context.Context) error) {
	for {
		err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		if p.logger != nil {
			p.logger.Error(stage+" failed, restarting after backoff",
				zap.Error(err), zap.Duration("backoff", supervisorBackoff))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(supervisorBackoff):
		}
	}
}

// RecommendationTick samples the kinematics engine over recommend.Targets
// and returns the FeeDiff/Recommendation pair for this instant (spec §4.7).
// Intended to be called by a ticker in cmd/feesim at constants.timeRes
// cadence and published to com.fee.feediff / com.fee.mindiff.
func (p *Pipeline) RecommendationTick() ([]recommend.DiffEntry, []recommend.RecommendationEntry) {
	estimates := make([]kinematics.Estimate, 0, len(recommend.Targets))
	for _, target := range recommend.Targets {
		if e, ok := p.engine.FeeEstimate(target); ok {
			estimates = append(estimates, e)
		}
	}

	series := recommend.FeeDiff(estimates)
	ranked := recommend.Recommendations(series, p.cfg.Constants.MinSavingsRate)

	if p.pub != nil {
		if err := p.pub.Publish(ports.TopicFeeDiff, series); err != nil && p.logger != nil {
			p.logger.Warn("failed to publish fee diff", zap.Error(err))
		}
		if err := p.pub.Publish(ports.TopicMinDiff, ranked); err != nil {
			if p.logger != nil {
				p.logger.Warn("failed to publish recommendation", zap.Error(err))
			}
		} else if p.metrics != nil {
			p.metrics.RecommendationsOK.Inc()
		}
	}

	return series, ranked
}

// Package telemetry exposes the Prometheus counters that the pipeline's
// local error-handling policy (spec §7) increments instead of propagating,
// plus an HTTP handler to serve them. Modeled on the
// prometheus.Collector wiring used for bitcoind mempool introspection in
// the retrieval pack (jmanero/bitcoind-exporter): a small struct of
// pre-registered metrics, no custom Collector needed here since these are
// plain counters rather than scrape-time RPC calls.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every counter the pipeline increments.
type Metrics struct {
	ParseErrors       prometheus.Counter
	ArithmeticSkips   prometheus.Counter
	RPCErrors         prometheus.Counter
	ZMQReconnects     prometheus.Counter
	MinedEvents       prometheus.Counter
	SnapshotsDeduped  prometheus.Counter
	RecommendationsOK prometheus.Counter

	InterBlockIntervalSeconds prometheus.Gauge
}

// New registers and returns the pipeline's metric set against reg. Pass
// prometheus.NewRegistry() for isolated tests, or
// prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_parse_errors_total",
			Help: "Mempool entries dropped for being malformed.",
		}),
		ArithmeticSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_arithmetic_skips_total",
			Help: "Fee estimates skipped because no snapshot, block boundary or nearest transaction was available.",
		}),
		RPCErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_rpc_errors_total",
			Help: "Bitcoin node RPC call failures.",
		}),
		ZMQReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_zmq_reconnects_total",
			Help: "Block-hash feed reconnection attempts.",
		}),
		MinedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_mined_events_total",
			Help: "Snapshot-to-snapshot removals classified as a mined block.",
		}),
		SnapshotsDeduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_snapshots_deduped_total",
			Help: "Mempool polls suppressed because the packed snapshot was structurally unchanged.",
		}),
		RecommendationsOK: factory.NewCounter(prometheus.CounterOpts{
			Name: "feesim_recommendations_published_total",
			Help: "Recommendation lists successfully published.",
		}),
		InterBlockIntervalSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feesim_inter_block_interval_seconds",
			Help: "Elapsed wall-clock time between the two most recent block-hash notifications.",
		}),
	}
}

// Serve starts an HTTP server exposing /metrics on addr until ctx is
// cancelled. A blank addr disables the server (Serve returns nil
// immediately).
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

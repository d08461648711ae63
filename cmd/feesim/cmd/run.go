package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/blockfeed"
	"github.com/mariusgiger/feesim-stream/internal/pipeline"
	"github.com/mariusgiger/feesim-stream/internal/ports"
	"github.com/mariusgiger/feesim-stream/internal/pubsub"
	"github.com/mariusgiger/feesim-stream/internal/rpc"
	"github.com/mariusgiger/feesim-stream/internal/telemetry"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the mempool fee estimation stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		registry := prometheus.NewRegistry()
		metrics := telemetry.New(registry)
		go func() {
			if err := telemetry.Serve(ctx, cfg.Metrics.Addr, registry); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()

		rpcClient, err := rpc.New(cfg.RPC, logger, metrics)
		if err != nil {
			return err
		}
		defer rpcClient.Close()

		feed := blockfeed.New(cfg.ZMQSocket.URL, logger, metrics)

		var publisher ports.Publisher
		if conn, err := pubsub.New(ctx, cfg.WAMP, logger); err != nil {
			logger.Warn("failed to connect to wamp router, publishing disabled", zap.Error(err))
		} else {
			publisher = conn
		}

		pl := pipeline.New(cfg, rpcClient, feed, publisher, logger, metrics)
		go pl.Run(ctx)

		ticker := time.NewTicker(cfg.Constants.TimeResDuration())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return nil
			case <-ticker.C:
				pl.RecommendationTick()
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(runCommand)
}

// Package cmd holds the feesim cobra commands, laid out the way the
// teacher's cmd/estimator package does it: a package-level RootCmd plus
// one file per subcommand, each registering itself via init().
package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mariusgiger/feesim-stream/internal/config"
	"github.com/mariusgiger/feesim-stream/internal/logging"
)

var (
	logger *zap.Logger
	cfg    config.Config

	configPath string
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "feesim",
	Short: "Bitcoin mempool fee-rate estimation stream",
	Long:  `feesim streams mined-block summaries and fee-rate recommendations derived from live mempool velocity.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and runs it. It only
// needs to happen once in main.main().
func Execute() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a feesim YAML config file")

	if err := RootCmd.Execute(); err != nil {
		log.Printf("feesim: %v", err)
		os.Exit(1)
	}
}

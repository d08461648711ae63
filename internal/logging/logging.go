// Package logging constructs the zap logger used throughout feesim,
// following the same construction the teacher's cobra root command used
// (zap.NewDevelopment with a fatal-level stacktrace threshold), extended
// with a production mode and a configurable level.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mariusgiger/feesim-stream/internal/config"
)

// New builds a *zap.Logger from the logging section of cfg.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.Env == "production" {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err := zcfg.Build()
		if err != nil {
			return nil, errors.Wrap(err, "failed to build production logger")
		}
		return logger, nil
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build development logger")
	}
	return logger, nil
}

// Package config loads the feesim configuration from a YAML file with
// environment variable overrides, following the same precedence order as
// the upstream feesim tooling: defaults, then config file, then env vars.
package config

import (
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const envPrefix = "FEESIM_"

// RPCConfig holds connection parameters for the Bitcoin node JSON-RPC
// endpoint.
type RPCConfig struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"pass"`
	Timeout int    `yaml:"timeout"` // seconds

	// DescendantFieldStyle selects which JSON key spelling the node uses
	// for descendant size/fee fields: "descendant" (modern) or
	// "descendent" (the spelling feesim's source mempool RPC emits).
	// "auto" accepts either.
	DescendantFieldStyle string `yaml:"descendantFieldStyle"`
}

// ZMQConfig holds the block-hash subscription endpoint.
type ZMQConfig struct {
	URL string `yaml:"url"`
}

// WAMPConfig holds the pub/sub endpoint and namespace.
type WAMPConfig struct {
	URL   string `yaml:"url"`
	Realm string `yaml:"realm"`
}

// Constants holds the tunable parameters of the estimation pipeline.
type Constants struct {
	BlockSize               int64   `yaml:"blockSize"`
	MinersReservedBlockRatio float64 `yaml:"minersReservedBlockRatio"`
	TimeRes                 int64   `yaml:"timeRes"`         // ms
	IntTimeAdded            int64   `yaml:"intTimeAdded"`    // ms
	IntBlocksRemoved        int     `yaml:"intBlocksRemoved"`
	MinSavingsRate          float64 `yaml:"minSavingsRate"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"` // "development" or "production"
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Config is the fully merged, effective configuration.
type Config struct {
	RPC       RPCConfig     `yaml:"rpc"`
	ZMQSocket ZMQConfig     `yaml:"zmq_socket"`
	WAMP      WAMPConfig    `yaml:"wamp"`
	Constants Constants     `yaml:"constants"`
	Log       LogConfig     `yaml:"log"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// BlockEffectiveSize returns the portion of a block available to
// fee-paying transactions.
func (c Constants) BlockEffectiveSize() float64 {
	return float64(c.BlockSize) * (1 - c.MinersReservedBlockRatio)
}

// TimeResDuration returns the mempool polling period as a time.Duration.
func (c Constants) TimeResDuration() time.Duration {
	return time.Duration(c.TimeRes) * time.Millisecond
}

// IntTimeAddedDuration returns the added-window width as a time.Duration.
func (c Constants) IntTimeAddedDuration() time.Duration {
	return time.Duration(c.IntTimeAdded) * time.Millisecond
}

// Default returns the baseline configuration, mirroring the shape and
// values feesim ships with out of the box.
func Default() Config {
	return Config{
		RPC: RPCConfig{
			Host:                 "localhost",
			Port:                 "8332",
			Timeout:              30,
			DescendantFieldStyle: "auto",
		},
		ZMQSocket: ZMQConfig{
			URL: "tcp://127.0.0.1:28332",
		},
		WAMP: WAMPConfig{
			URL:   "ws://127.0.0.1:8080/ws",
			Realm: "feesim",
		},
		Constants: Constants{
			BlockSize:                4000000,
			MinersReservedBlockRatio: 0.02,
			TimeRes:                  5000,
			IntTimeAdded:             1800000, // 30 minutes
			IntBlocksRemoved:         3,
			MinSavingsRate:           0.05,
		},
		Log: LogConfig{
			Level: "info",
			Env:   "development",
		},
		Metrics: MetricsConfig{
			Addr: ":9191",
		},
	}
}

// Load reads the config file at path (if non-empty and it exists), merges
// it onto Default(), then applies FEESIM_-prefixed environment variable
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, errors.Wrap(err, "failed to read config file")
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Wrap(err, "failed to parse config file")
			}
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place with any recognized FEESIM_* env
// vars. Only the RPC connection settings, the ZMQ and WAMP endpoints, the
// log settings, the metrics address and constants.timeRes (FEESIM_TIME_RES)
// are wired; the other numeric tuning knobs come from the config file or
// the defaults.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "RPC_HOST"); v != "" {
		cfg.RPC.Host = v
	}
	if v := os.Getenv(envPrefix + "RPC_PORT"); v != "" {
		cfg.RPC.Port = v
	}
	if v := os.Getenv(envPrefix + "RPC_USER"); v != "" {
		cfg.RPC.User = v
	}
	if v := os.Getenv(envPrefix + "RPC_PASS"); v != "" {
		cfg.RPC.Pass = v
	}
	if v := os.Getenv(envPrefix + "ZMQ_URL"); v != "" {
		cfg.ZMQSocket.URL = v
	}
	if v := os.Getenv(envPrefix + "WAMP_URL"); v != "" {
		cfg.WAMP.URL = v
	}
	if v := os.Getenv(envPrefix + "WAMP_REALM"); v != "" {
		cfg.WAMP.Realm = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_ENV"); v != "" {
		cfg.Log.Env = v
	}
	if v := os.Getenv(envPrefix + "METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(envPrefix + "TIME_RES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Constants.TimeRes = n
		}
	}
}

// acceptsStyle reports whether the configured descendant field style
// accepts the given JSON key spelling ("descendant" or "descendent").
func (c RPCConfig) acceptsStyle(style string) bool {
	configured := strings.ToLower(c.DescendantFieldStyle)
	return configured == "" || configured == "auto" || configured == style
}

// AcceptsDescendant reports whether the modern "descendantsize"/
// "descendantfees" spelling should be accepted.
func (c RPCConfig) AcceptsDescendant() bool { return c.acceptsStyle("descendant") }

// AcceptsDescendent reports whether the legacy "descendentsize"/
// "descendentfees" spelling should be accepted.
func (c RPCConfig) AcceptsDescendent() bool { return c.acceptsStyle("descendent") }

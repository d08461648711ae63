package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	err := ioutil.WriteFile(path, []byte("rpc:\n  host: node.example.com\n  port: \"8333\"\nconstants:\n  timeRes: 2000\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "node.example.com", cfg.RPC.Host)
	assert.Equal(t, "8333", cfg.RPC.Port)
	assert.Equal(t, int64(2000), cfg.Constants.TimeRes)
	// Untouched defaults survive the merge.
	assert.Equal(t, Default().Constants.BlockSize, cfg.Constants.BlockSize)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	err := ioutil.WriteFile(path, []byte("rpc:\n  host: node.example.com\n"), 0644)
	require.NoError(t, err)

	os.Setenv("FEESIM_RPC_HOST", "env.example.com")
	defer os.Unsetenv("FEESIM_RPC_HOST")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", cfg.RPC.Host)
}

func TestBlockEffectiveSize(t *testing.T) {
	c := Constants{BlockSize: 4000000, MinersReservedBlockRatio: 0.02}
	assert.InDelta(t, 3920000, c.BlockEffectiveSize(), 0.001)
}

func TestDescendantFieldStyleAcceptance(t *testing.T) {
	auto := RPCConfig{DescendantFieldStyle: "auto"}
	assert.True(t, auto.AcceptsDescendant())
	assert.True(t, auto.AcceptsDescendent())

	legacy := RPCConfig{DescendantFieldStyle: "descendent"}
	assert.False(t, legacy.AcceptsDescendant())
	assert.True(t, legacy.AcceptsDescendent())
}

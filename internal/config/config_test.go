package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.DiskSize)
	assert.Equal(t, 10, cfg.GridCols)
	assert.False(t, cfg.StrictDealloc)
	assert.Equal(t, "human", cfg.LogFormat)
	assert.Equal(t, 4, cfg.Simulate.Devices)
	assert.Equal(t, 1000, cfg.Simulate.Ops)
	assert.Equal(t, int64(0), cfg.Simulate.Seed)
	assert.Equal(t, 10, cfg.Simulate.MaxRequest)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hybridspace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
disk_size: 128
grid_cols: 16
strict_dealloc: true
log_format: json
simulate:
  devices: 2
  seed: 99
`), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.DiskSize)
	assert.Equal(t, 16, cfg.GridCols)
	assert.True(t, cfg.StrictDealloc)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2, cfg.Simulate.Devices)
	assert.Equal(t, int64(99), cfg.Simulate.Seed)
	assert.Equal(t, 1000, cfg.Simulate.Ops, "unset keys keep defaults")
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HYBRIDSPACE_DISK_SIZE", "64")
	t.Setenv("HYBRIDSPACE_SIMULATE_OPS", "12")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.DiskSize)
	assert.Equal(t, 12, cfg.Simulate.Ops)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := AppConfig{
		DiskSize:  50,
		GridCols:  10,
		LogFormat: "human",
		Simulate:  SimulateConfig{Devices: 1, Ops: 10, MaxRequest: 5},
	}
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"negative disk size", func(c *AppConfig) { c.DiskSize = -1 }},
		{"disk size above limit", func(c *AppConfig) { c.DiskSize = spacemgr.MaxCapacity + 1 }},
		{"zero grid cols", func(c *AppConfig) { c.GridCols = 0 }},
		{"bad log format", func(c *AppConfig) { c.LogFormat = "xml" }},
		{"no devices", func(c *AppConfig) { c.Simulate.Devices = 0 }},
		{"negative ops", func(c *AppConfig) { c.Simulate.Ops = -1 }},
		{"zero max request", func(c *AppConfig) { c.Simulate.MaxRequest = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

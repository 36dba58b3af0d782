package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Backend.Kind)
	assert.Equal(t, "data", cfg.Backend.Datadir)
	assert.Equal(t, ":50051", cfg.Server.ListenAddr)
	assert.Equal(t, 9102, cfg.Server.MetricsPort)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.TTL)
	assert.Equal(t, []string{""}, cfg.Sweep.Dirs)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  kind: bolt
  db: /var/lib/commitlog/store.db
sweep:
  ttl: 1h
  dirs: ["_log", "archive/_log"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Backend.Kind)
	assert.Equal(t, "/var/lib/commitlog/store.db", cfg.Backend.DB)
	assert.Equal(t, time.Hour, cfg.Sweep.TTL)
	assert.Equal(t, []string{"_log", "archive/_log"}, cfg.Sweep.Dirs)
	// untouched keys keep their defaults
	assert.Equal(t, 9102, cfg.Server.MetricsPort)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CLOG_BACKEND_KIND", "remote")
	t.Setenv("CLOG_BACKEND_ADDR", "store-0:50051")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Backend.Kind)
	assert.Equal(t, "store-0:50051", cfg.Backend.Addr)
}

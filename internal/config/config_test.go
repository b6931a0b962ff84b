package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1200, cfg.Index.ChunkSize)
	assert.Equal(t, 150, cfg.Index.ChunkOverlap)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, 30*time.Second, cfg.Registry.Timeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ragcore.yaml")
	content := `
version: 1
paths:
  source_dir: docs
  persist_root: /tmp/ragcore-test
index:
  chunk_size: 800
  chunk_overlap: 100
registry:
  owner: maic-lab
  repo: index-releases
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "docs", cfg.Paths.SourceDir)
	assert.Equal(t, "/tmp/ragcore-test", cfg.Paths.PersistRoot)
	assert.Equal(t, 800, cfg.Index.ChunkSize)
	assert.Equal(t, 100, cfg.Index.ChunkOverlap)
	assert.Equal(t, "maic-lab", cfg.Registry.Owner)
	// Unspecified fields keep defaults.
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ragcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry:\n  token: from-file\n"), 0o644))

	t.Setenv("RAGCORE_REGISTRY_TOKEN", "from-env")
	t.Setenv("RAGCORE_PERSIST_ROOT", filepath.Join(dir, "persist"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Registry.Token)
	assert.Equal(t, filepath.Join(dir, "persist"), cfg.Paths.PersistRoot)
}

func TestValidate_RejectsBadChunking(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Index.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Index.ChunkOverlap = -1 }},
		{"overlap >= size", func(c *Config) { c.Index.ChunkSize = 100; c.Index.ChunkOverlap = 100 }},
		{"empty persist root", func(c *Config) { c.Paths.PersistRoot = "" }},
		{"zero top k", func(c *Config) { c.Search.DefaultTopK = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSave_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "ragcore.yaml")

	cfg := NewConfig()
	cfg.Paths.SourceDir = "prepared"
	cfg.Index.ChunkSize = 999
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prepared", loaded.Paths.SourceDir)
	assert.Equal(t, 999, loaded.Index.ChunkSize)
}

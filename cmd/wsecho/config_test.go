package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("full file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
path: "/echo"
max_message_size: 2048
enable_compression: false
`), 0o644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, "/echo", cfg.Path)
		assert.Equal(t, int64(2048), cfg.MaxMessageSize)
		assert.False(t, cfg.EnableCompression)
	})

	t.Run("partial file falls back to defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`max_message_size: 4096`), 0o644))

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "/ws", cfg.Path)
		assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

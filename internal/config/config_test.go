package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, Default().Addr, cfg.Addr)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 64, cfg.Bus.FeedBuffer)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "default config should be written")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\nbus:\n  feed_buffer: 8\n"), 0o600))

	t.Setenv("WIREDM_ADDR", ":9999")
	t.Setenv("WIREDM_JWT_SECRET", "from-env")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 8, cfg.Bus.FeedBuffer)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	cfg.JWT.Secret = ""
	cfg.Bus.FeedBuffer = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
	assert.Contains(t, err.Error(), "jwt secret")
	assert.Contains(t, err.Error(), "feed_buffer")
}

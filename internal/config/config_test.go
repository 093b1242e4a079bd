package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/kbju-bot/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StorageMemory, cfg.StorageBackend)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
	assert.GreaterOrEqual(t, cfg.DecodeWorkers, 1)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "kbju.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: http://kbju.internal
storage_backend: sqlite
sqlite_path: /var/lib/kbju.db
decode_workers: 3
track_timeout: 5s
`), 0o600))

	t.Setenv("KBJU_CONFIG_FILE", path)
	t.Setenv("KBJU_DECODE_WORKERS", "2")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://kbju.internal", cfg.APIBaseURL)
	assert.Equal(t, config.StorageSQLite, cfg.StorageBackend)
	assert.Equal(t, "/var/lib/kbju.db", cfg.SQLitePath)
	assert.Equal(t, 2, cfg.DecodeWorkers)
	assert.Equal(t, 5*time.Second, cfg.TrackTimeout)
	assert.Equal(t, "123:abc", cfg.BotToken)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KBJU_USE_MOCK_API=true\nKBJU_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("KBJU_USE_MOCK_API")
		os.Unsetenv("KBJU_LOG_LEVEL")
	})

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.UseMockAPI)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		ok     bool
	}{
		{"defaults", func(c *config.Config) {}, true},
		{"firestore without project", func(c *config.Config) { c.StorageBackend = config.StorageFirestore }, false},
		{"firestore with project", func(c *config.Config) {
			c.StorageBackend = config.StorageFirestore
			c.GCPProjectID = "kbju"
		}, true},
		{"unknown backend", func(c *config.Config) { c.StorageBackend = "redis" }, false},
		{"vision without project", func(c *config.Config) { c.VisionFallback = true }, false},
		{"zero timeout", func(c *config.Config) { c.DecodeTimeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateClampsWorkers(t *testing.T) {
	c := config.Default()
	c.DecodeWorkers = 0

	require.NoError(t, c.Validate())
	assert.Equal(t, 1, c.DecodeWorkers)
}

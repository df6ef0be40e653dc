package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/faultline/internal/config"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faultline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, config.BackendMemory, cfg.Backend)
	assert.Equal(t, 2*time.Second, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "faultline:", cfg.Redis.Prefix)
	assert.True(t, cfg.AllowModify)

	assert.Equal(t, fault.DefaultDelay, fault.DelayFromConfig(cfg))
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
backend: redis
cache_ttl: 500ms
redis:
  addr: "redis:6379"
  db: 2
DelaySimulationRequestDelayMs: 100
flags:
  - id: DelaySimulation
    enabled: true
    modifiable: true
  - id: TimeoutError
    enabled: false
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, config.BackendRedis, cfg.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.CacheTTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "faultline:", cfg.Redis.Prefix, "nested defaults survive partial override")
	assert.Equal(t, 100*time.Millisecond, fault.DelayFromConfig(cfg))

	seed := cfg.SeedFlags()
	require.Len(t, seed, 2)
	assert.Equal(t, domain.FlagDelaySimulation, seed[0].ID)
	assert.True(t, seed[0].Enabled)
}

func TestLoad_UnparsableDelayFallsBack(t *testing.T) {
	path := writeConfig(t, "DelaySimulationRequestDelayMs: later\n")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err, "a bad delay must not fail startup")
	assert.Equal(t, 4000*time.Millisecond, fault.DelayFromConfig(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	env := []string{
		"FAULTLINE_LISTEN=:7070",
		"FAULTLINE_BACKEND=remote",
		"FAULTLINE_REMOTE_URL=http://flags:8080",
		"FAULTLINE_REDIS_DB=3",
		"FAULTLINE_ALLOW_MODIFY=false",
		"FAULTLINE_ENABLE_TIMEOUTERROR=true",
		"DelaySimulationRequestDelayMs=250",
		"UNRELATED=1",
	}

	cfg, err := config.Load("", env)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, config.BackendRemote, cfg.Backend)
	assert.Equal(t, "http://flags:8080", cfg.Remote.URL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.False(t, cfg.AllowModify)
	assert.Equal(t, 250*time.Millisecond, fault.DelayFromConfig(cfg))

	for _, f := range cfg.SeedFlags() {
		assert.False(t, f.Modifiable, f.ID)
		assert.Equal(t, f.ID == domain.FlagTimeoutError, f.Enabled, f.ID)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("Unknown Backend", func(t *testing.T) {
		_, err := config.Load("", []string{"FAULTLINE_BACKEND=etcd"})
		assert.ErrorContains(t, err, "unknown backend")
	})

	t.Run("Remote Without URL", func(t *testing.T) {
		_, err := config.Load("", []string{"FAULTLINE_BACKEND=remote"})
		assert.ErrorContains(t, err, "remote.url")
	})

	t.Run("Bad YAML", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "listen: [unterminated"), nil)
		assert.Error(t, err)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		assert.Error(t, err)
	})

	t.Run("Flag Without ID", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "flags:\n  - enabled: true\n"), nil)
		assert.ErrorContains(t, err, "invalid flag")
	})
}

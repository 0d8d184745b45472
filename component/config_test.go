package component

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Absolutely Not Helpful MCP", cfg.Name)
	assert.Equal(t, "connector", cfg.Profile)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.GRPC.Addr)
	assert.Nil(t, cfg.Redis)
	assert.Nil(t, cfg.Registry)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "sarcasm.yaml",
			content: `profile: classic
http:
  addr: ":9090"
log:
  format: json
  level: debug
worker:
  concurrency: 2
`,
		},
		{
			name: "toml",
			file: "sarcasm.toml",
			content: `profile = "classic"

[http]
addr = ":9090"

[log]
format = "json"
level = "debug"

[worker]
concurrency = 2
`,
		},
		{
			name:    "json",
			file:    "sarcasm.json",
			content: `{"profile":"classic","http":{"addr":":9090"},"log":{"format":"json","level":"debug"},"worker":{"concurrency":2}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			cfg, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, "classic", cfg.Profile)
			assert.Equal(t, ":9090", cfg.HTTP.Addr)
			assert.Equal(t, "json", cfg.Log.Format)
			assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
			require.NotNil(t, cfg.Worker)
			assert.Equal(t, 2, cfg.Worker.GetConcurrency())
			// Defaults survive for keys the file does not set.
			assert.Equal(t, DefaultName, cfg.Name)
			assert.Equal(t, DefaultVersion, cfg.Version)
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sarcasm.yml", "profile: classic\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "classic", cfg.Profile)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "sarcasm.ini", "profile=classic")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config format")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "sarcasm.yaml", "http: [unterminated")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "sarcasm.yaml", "log:\n  format: xml\nregistry:\n  namespace: x\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.format")
		assert.Contains(t, err.Error(), "registry.endpoints")
	})
}

func TestLoadFromDir_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sarcasm.toml", `profile = "classic"`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := LoadFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, "classic", cfg.Profile)
}

func TestLoadFromDir_StopsOnBrokenFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sarcasm.json", `{"profile": `)

	_, err := LoadFromDir(root)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestWorkerConfigGetters(t *testing.T) {
	var nilCfg *WorkerConfig
	assert.Equal(t, 4, nilCfg.GetConcurrency())
	assert.Equal(t, 30*time.Second, nilCfg.GetShutdownTimeout())
	assert.Equal(t, 10*time.Second, nilCfg.GetHeartbeatInterval())
	assert.Equal(t, "tool", nilCfg.GetQueuePrefix())
	assert.Equal(t, DefaultWorkerService, nilCfg.GetService())

	cfg := &WorkerConfig{
		Concurrency:       8,
		ShutdownTimeout:   "1m",
		HeartbeatInterval: "bogus",
		QueuePrefix:       "jokes",
		Service:           "roasts",
	}
	assert.Equal(t, 8, cfg.GetConcurrency())
	assert.Equal(t, time.Minute, cfg.GetShutdownTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetHeartbeatInterval())
	assert.Equal(t, "jokes", cfg.GetQueuePrefix())
	assert.Equal(t, "roasts", cfg.GetService())
}

func TestBackendGetters(t *testing.T) {
	var redis *RedisConfig
	assert.Equal(t, "redis://localhost:6379", redis.GetURL())
	assert.Equal(t, "redis://cache:6379/1", (&RedisConfig{URL: "redis://cache:6379/1"}).GetURL())

	var reg *RegistryConfig
	assert.Equal(t, "sarcasm", reg.GetNamespace())
	assert.Equal(t, 30, reg.GetTTL())

	assert.Equal(t, 10*time.Second, HTTPConfig{}.GetShutdownTimeout())
	assert.Equal(t, 3*time.Second, HTTPConfig{ShutdownTimeout: "3s"}.GetShutdownTimeout())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LogConfig{}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelError, LogConfig{Level: "ERROR"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "chatty"}.SlogLevel())
}

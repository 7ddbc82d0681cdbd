package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate отключает .env из рабочего каталога
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(envPrefix+"ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(envPrefix+"INSTANCE_NAME", "test-node")
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "test-node", cfg.InstanceName)
	assert.Equal(t, "catalogsync.db", cfg.DatabasePath)
	assert.Equal(t, "127.0.0.1:7070", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.MaxClockDrift)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Empty(t, cfg.Peers)
	assert.False(t, cfg.Cloud.Enabled)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "node.env")
	content := "CATALOGSYNC_INSTANCE_NAME=nas\n" +
		"CATALOGSYNC_PEERS=ws://10.0.0.2:7070/ws, ws://10.0.0.3:7070/ws\n" +
		"CATALOGSYNC_CLOUD_ENABLED=true\n" +
		"CATALOGSYNC_CLOUD_INTERVAL=5s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv(envPrefix+"ENV_FILE", envFile)
	// godotenv не перекрывает уже заданные переменные
	t.Setenv(envPrefix+"LOG_LEVEL", "debug")
	t.Cleanup(func() {
		for _, key := range []string{"INSTANCE_NAME", "PEERS", "CLOUD_ENABLED", "CLOUD_INTERVAL"} {
			_ = os.Unsetenv(envPrefix + key)
		}
	})

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "nas", cfg.InstanceName)
	assert.Equal(t, []string{"ws://10.0.0.2:7070/ws", "ws://10.0.0.3:7070/ws"}, cfg.Peers)
	assert.True(t, cfg.Cloud.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Cloud.Interval)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv(envPrefix+"LISTEN", "127.0.0.1:9000")
	t.Setenv(envPrefix+"BATCH_SIZE", "50")

	cfg, err := Load([]string{"-listen", ":8080", "-peers", "ws://peer:7070/ws", "-cloud"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, []string{"ws://peer:7070/ws"}, cfg.Peers)
	assert.True(t, cfg.Cloud.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		env  map[string]string
		name string
		args []string
	}{
		{name: "bad duration", env: map[string]string{"REQUEST_TIMEOUT": "soon"}},
		{name: "bad int", env: map[string]string{"BATCH_SIZE": "many"}},
		{name: "bad bool", env: map[string]string{"CLOUD_ENABLED": "perhaps"}},
		{name: "batch over limit", args: []string{"-batch", "5000"}},
		{name: "unknown log level", args: []string{"-log-level", "trace"}},
		{name: "bad listen address", args: []string{"-listen", "localhost"}},
		{name: "bad peer url", args: []string{"-peers", "not a url"}},
		{name: "bad instance name", args: []string{"-name", "my laptop"}},
		{name: "zero timeout", args: []string{"-request-timeout", "0s"}},
		{name: "unknown flag", args: []string{"-auth"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(envPrefix+k, v)
			}

			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestLoad_VersionSkipsValidation(t *testing.T) {
	isolate(t)

	cfg, err := Load([]string{"-version", "-batch", "0"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		hostname string
		want     string
	}{
		{hostname: "laptop.local", want: "laptop.local"},
		{hostname: "-weird host!", want: "weirdhost"},
		{hostname: "", want: "catalogsync"},
		{hostname: "сервер", want: "catalogsync"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.hostname))
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tinyhttp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1<<20, cfg.MaxRequestSize)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.True(t, cfg.Development())
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Zero(t, cfg.ReadTimeout)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
host: 0.0.0.0
port: 9000
max_request_size: 2048
env: production
read_timeout: 5s
static_dir: ./public
`)

	cfg, err := Load(path, env(map[string]string{
		"PORT":         "9100",
		"LOG_LEVEL":    "debug",
		"METRICS_PATH": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port, "environment overrides the file")
	assert.Equal(t, 2048, cfg.MaxRequestSize)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "./public", cfg.StaticDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsPath)
	assert.False(t, cfg.Development())
}

func TestLoadEnvDurations(t *testing.T) {
	cfg, err := Load("", env(map[string]string{"READ_TIMEOUT": "250ms", "MAX_REQUEST_SIZE": "4096"}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, 4096, cfg.MaxRequestSize)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		file string
		env  map[string]string
	}{
		"bad port":         {env: map[string]string{"PORT": "http"}},
		"port range":       {env: map[string]string{"PORT": "70000"}},
		"zero size":        {env: map[string]string{"MAX_REQUEST_SIZE": "0"}},
		"bad size":         {env: map[string]string{"MAX_REQUEST_SIZE": "1MB"}},
		"bad timeout":      {env: map[string]string{"READ_TIMEOUT": "soon"}},
		"unknown env":      {env: map[string]string{"ENV": "staging"}},
		"empty host":       {env: map[string]string{"HOST": ""}},
		"relative metrics": {env: map[string]string{"METRICS_PATH": "metrics"}},
		"unknown key":      {file: "hots: typo\n"},
		"bad yaml type":    {file: "port: [1]\n"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			cfg, err := Load(path, env(tt.env))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestValidateWrapsSentinel(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

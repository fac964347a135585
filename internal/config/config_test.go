package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with an empty home.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.DragThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "kanban.log", cfg.LogFile)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "kanban.db", cfg.Server.DBPath)
	assert.Empty(t, cfg.Server.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Server.CacheTTL)
	assert.Equal(t, "*", cfg.Server.AllowOrigins)
	assert.False(t, cfg.Server.Seed)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileInWorkingDir(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "kanban.yaml"), `
api_url: http://kanban.internal/api
drag_threshold: 3
server:
  addr: ":8080"
  cache_ttl: 1m
  seed: true
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://kanban.internal/api", cfg.APIURL)
	assert.Equal(t, 3, cfg.DragThreshold)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Server.CacheTTL)
	assert.True(t, cfg.Server.Seed)
	assert.Equal(t, "kanban.db", cfg.Server.DBPath, "unset keys keep defaults")
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "log_level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "kanban.yaml"), "server:\n  addr: \":8080\"\n")
	t.Setenv("KANBAN_SERVER_ADDR", ":9090")
	t.Setenv("KANBAN_REQUEST_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "KANBAN_SERVER_REDIS_ADDR=localhost:6379\n")
	t.Cleanup(func() { os.Unsetenv("KANBAN_SERVER_REDIS_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Server.RedisAddr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "kanban.yaml"), "api_url: [unclosed\n")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{APIURL: "http://x", RequestTimeout: time.Second, DragThreshold: 1, LogFormat: "json"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty api url", func(c *Config) { c.APIURL = " " }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"negative threshold", func(c *Config) { c.DragThreshold = -1 }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/stocker/internal/stocker/tickers"
)

const sampleYAML = `
log:
  level: debug
tickers: [AAPL, msft]
sources: [reuters]
depth: 2
query_delay: 2s
search:
  backend: googlenews
http:
  timeout: 5s
  retry_count: 0
output:
  csv: ${STOCKER_TEST_DIR}/out.csv
  json: ""
  db: stocker.db
notify:
  webhook:
    url: https://hooks.example.com/x
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stocker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoad_ExplicitPath(t *testing.T) {
	t.Setenv("STOCKER_TEST_DIR", "/data")
	t.Setenv("STOCKER_DEPTH", "3")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"AAPL", "msft"}, cfg.Tickers)
	assert.Equal(t, []string{"reuters"}, cfg.Sources)
	assert.Equal(t, 3, cfg.Depth)
	assert.Equal(t, 2*time.Second, cfg.QueryDelay)
	assert.Equal(t, "googlenews", cfg.Search.Backend)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 0, cfg.HTTP.RetryCount)
	assert.NotEmpty(t, cfg.HTTP.UserAgent)
	assert.Equal(t, "/data/out.csv", cfg.Output.CSV)
	assert.Empty(t, cfg.Output.JSON)
	assert.Equal(t, "stocker.db", cfg.Output.DB)
	assert.Equal(t, "https://hooks.example.com/x", cfg.Notify.Webhook.URL)
	assert.Equal(t, []tickers.Index{tickers.SP500}, cfg.IndexList())
	assert.NotEmpty(t, cfg.Path)
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFileUsesDefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STOCKER_SOURCES", "reuters, bloomberg")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, []string{"reuters", "bloomberg"}, cfg.Sources)
	assert.Equal(t, 1, cfg.Depth)
	assert.Equal(t, "articles.csv", cfg.Output.CSV)
}

func TestLoad_WorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("depth: 4\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, FileName, cfg.Path)
	assert.Equal(t, 4, cfg.Depth)
}

func TestLoad_HomeFile(t *testing.T) {
	t.Chdir(t.TempDir())
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".stocker.yaml"), []byte("depth: 5\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Depth)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StockerConfig)
	}{
		{"depth", func(c *StockerConfig) { c.Depth = 0 }},
		{"no sources", func(c *StockerConfig) { c.Sources = nil }},
		{"bad source", func(c *StockerConfig) { c.Sources = []string{"two words"} }},
		{"no output", func(c *StockerConfig) { c.Output = OutputConfig{} }},
		{"backend", func(c *StockerConfig) { c.Search.Backend = "bing" }},
		{"index", func(c *StockerConfig) { c.Indexes = []string{"ftse"} }},
		{"schedule", func(c *StockerConfig) { c.Schedule = "whenever" }},
		{"delay", func(c *StockerConfig) { c.QueryDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateXDG(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("ENV", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	return root
}

func TestManager_Load_CreatesDefaultConfig(t *testing.T) {
	root := isolateXDG(t)

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Load())

	configFile := filepath.Join(root, "config", "aether", "config.toml")
	assert.FileExists(t, configFile)
	assert.Equal(t, configFile, m.ConfigFile())

	cfg := m.Get()
	assert.True(t, cfg.ContentFiltering.Enabled)
	assert.Equal(t, "substring", cfg.ContentFiltering.Mode)
	assert.Empty(t, cfg.ContentFiltering.Lists)
	require.Len(t, cfg.ContentFiltering.Sources, 2)
	assert.Equal(t, "easylist", cfg.ContentFiltering.Sources[0].Name)
	assert.Equal(t, "easyprivacy", cfg.ContentFiltering.Sources[1].Name)
	assert.Equal(t, filepath.Join(root, "data", "aether", "lists"), cfg.ContentFiltering.ListDir)
	assert.Equal(t, defaultProxyListen, cfg.Proxy.Listen)
	assert.Equal(t, defaultDecisionCacheSize, cfg.Proxy.DecisionCacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestManager_Load_ExplicitFile(t *testing.T) {
	isolateXDG(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[content_filtering]
  enabled = true
  mode = "Grammar"
  lists = ["/etc/aether/easylist.txt", "/etc/aether/easyprivacy.txt"]
  list_dir = "/var/lib/aether"

  [[content_filtering.sources]]
    name = "custom"
    url = "https://lists.example.com/custom.txt"

[proxy]
  listen = "0.0.0.0:3128"
  metrics_listen = ""
  decision_cache_size = 0
  dial_timeout_seconds = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), filePerm))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "grammar", cfg.ContentFiltering.Mode)
	assert.Equal(t, []string{"/etc/aether/easylist.txt", "/etc/aether/easyprivacy.txt"}, cfg.ContentFiltering.Lists)
	assert.Equal(t, "/var/lib/aether", cfg.ContentFiltering.ListDir)
	require.Len(t, cfg.ContentFiltering.Sources, 1)
	assert.Equal(t, "https://lists.example.com/custom.txt", cfg.ContentFiltering.Sources[0].URL)
	assert.Equal(t, "0.0.0.0:3128", cfg.Proxy.Listen)
	assert.Empty(t, cfg.Proxy.MetricsListen)
	assert.Equal(t, 0, cfg.Proxy.DecisionCacheSize)
	// Unset keys keep their defaults.
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestManager_Load_MissingExplicitFileFails(t *testing.T) {
	isolateXDG(t)

	m, err := NewManager(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Error(t, m.Load())
}

func TestManager_Load_EnvOverrides(t *testing.T) {
	isolateXDG(t)
	t.Setenv("AETHER_LOG_LEVEL", "debug")
	t.Setenv("AETHER_PROXY_LISTEN", "127.0.0.1:9999")

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9999", cfg.Proxy.Listen)
}

func TestManager_Load_RejectsInvalidValues(t *testing.T) {
	isolateXDG(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[content_filtering]
  mode = "regex"

[proxy]
  listen = "not-an-address"
  decision_cache_size = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), filePerm))

	m, err := NewManager(path)
	require.NoError(t, err)

	err = m.Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "content_filtering.mode")
	assert.Contains(t, msg, "proxy.listen")
	assert.Contains(t, msg, "proxy.decision_cache_size")
}

func TestValidateConfig_Sources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContentFiltering.Sources = []ListSourceConfig{
		{Name: "a", URL: "https://lists.example.com/a.txt"},
		{Name: "a", URL: "https://lists.example.com/b.txt"},
		{Name: "../evil", URL: "https://lists.example.com/c.txt"},
		{Name: "ftp", URL: "ftp://lists.example.com/d.txt"},
		{Name: "", URL: "https://lists.example.com/e.txt"},
	}

	err := validateConfig(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "sources[1].name \"a\" is duplicated")
	assert.Contains(t, msg, "sources[2].name must not contain path separators")
	assert.Contains(t, msg, "sources[3].url must be an http(s) URL")
	assert.Contains(t, msg, "sources[4].name cannot be empty")
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, validateConfig(DefaultConfig()))
}

func TestManager_Get_ReturnsCopy(t *testing.T) {
	isolateXDG(t)

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	cfg.ContentFiltering.Sources[0].Name = "mutated"
	cfg.Proxy.Listen = "mutated"

	again := m.Get()
	assert.Equal(t, "easylist", again.ContentFiltering.Sources[0].Name)
	assert.Equal(t, defaultProxyListen, again.Proxy.Listen)
}

func TestWriteConfigOrdered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteConfigOrdered(DefaultConfig(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var sections []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			sections = append(sections, trimmed)
		}
	}
	assert.Equal(t, []string{"[content_filtering]", "[logging]", "[proxy]"}, sections)
	assert.Contains(t, string(content), "[[content_filtering.sources]]")
	assert.True(t, strings.HasPrefix(string(content), "# aether configuration"))
}

func TestWriteConfigOrdered_NilConfig(t *testing.T) {
	require.Error(t, WriteConfigOrdered(nil, filepath.Join(t.TempDir(), "x.toml")))
}

func TestGenerateSchemaFile(t *testing.T) {
	dir := t.TempDir()
	path, err := GenerateSchemaFile(dir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "content_filtering")
	assert.Contains(t, string(content), "decision_cache_size")
}

package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherbrowser/aether/internal/filtering"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))

	path := filepath.Join(root, "aether.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return root
}

func TestApp_NewFilter_FromExplicitLists(t *testing.T) {
	root := writeConfig(t, "")
	list := filepath.Join(root, "easylist.txt")
	require.NoError(t, os.WriteFile(list, []byte("! comment\nads.example.com\n"), 0o644))

	cfgPath := filepath.Join(root, "aether.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[content_filtering]
  lists = ["`+list+`", "`+filepath.Join(root, "missing.txt")+`"]
`), 0o644))

	app, err := NewApp(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, app.ConfigFile)

	f, err := app.NewFilter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []filtering.Rule{"ads.example.com"}, f.RuleSet().Rules())
	assert.True(t, f.ShouldBlock("https://ads.example.com/track?x=1"))
	assert.False(t, f.ShouldBlock("https://news.example.com/article"))
}

func TestApp_RulePaths_DefaultsToDownloadedLists(t *testing.T) {
	root := writeConfig(t, "")
	cfgPath := filepath.Join(root, "aether.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[content_filtering]
  list_dir = "`+filepath.Join(root, "lists")+`"
`), 0o644))

	app, err := NewApp(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "lists", "easylist.txt"),
		filepath.Join(root, "lists", "easyprivacy.txt"),
	}, app.RulePaths())
}

func TestApp_NewFilter_Disabled(t *testing.T) {
	root := writeConfig(t, "")
	list := filepath.Join(root, "easylist.txt")
	require.NoError(t, os.WriteFile(list, []byte("ads.example.com\n"), 0o644))

	cfgPath := filepath.Join(root, "aether.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[content_filtering]
  enabled = false
  lists = ["`+list+`"]
`), 0o644))

	app, err := NewApp(cfgPath)
	require.NoError(t, err)

	f, err := app.NewFilter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.RuleSet().Len())
	assert.False(t, f.ShouldBlock("https://ads.example.com/"))
}

func TestNewApp_InvalidConfig(t *testing.T) {
	root := writeConfig(t, "")
	cfgPath := filepath.Join(root, "aether.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[content_filtering]\n  mode = \"regex\"\n"), 0o644))

	_, err := NewApp(cfgPath)
	require.Error(t, err)
}

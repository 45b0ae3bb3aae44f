package filtering

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherbrowser/aether/internal/logging"
)

func writeList(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), listFilePerm))
	return path
}

func TestFilter_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	list := writeList(t, dir, "easylist.txt", "! Title: test\n[Adblock Plus 2.0]\n\nads.example.com\n")

	f, err := New(context.Background(), []string{list})
	require.NoError(t, err)

	assert.True(t, f.ShouldBlock("https://ads.example.com/track?x=1"))
	assert.False(t, f.ShouldBlock("https://news.example.com/article"))
}

func TestFilter_CommentFilteringYieldsOnlyRules(t *testing.T) {
	dir := t.TempDir()
	list := writeList(t, dir, "list.txt", "! comment\n[Adblock Plus 2.0]\n\nads.example.com\n")

	f, err := New(context.Background(), []string{list})
	require.NoError(t, err)

	assert.Equal(t, []Rule{"ads.example.com"}, f.RuleSet().Rules())
}

func TestFilter_MissingSourceIsSkipped(t *testing.T) {
	dir := t.TempDir()
	valid := writeList(t, dir, "easylist.txt", "ads.example.com\n/banner/\n")
	missing := filepath.Join(dir, "easyprivacy.txt")

	f, err := New(context.Background(), []string{valid, missing})
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, []Rule{"ads.example.com", "/banner/"}, f.RuleSet().Rules())

	sources := f.Sources()
	require.Len(t, sources, 2)
	assert.True(t, sources[0].Loaded())
	assert.False(t, sources[1].Loaded())
	assert.True(t, errors.Is(sources[1].Err, ErrSourceUnreadable))
}

func TestFilter_InvalidEncodingIsSkipped(t *testing.T) {
	dir := t.TempDir()
	bad := writeList(t, dir, "bad.txt", "ads.example.com\n\xff\xfe broken\n")
	good := writeList(t, dir, "good.txt", "tracker.example\n")

	f, err := New(context.Background(), []string{bad, good})
	require.NoError(t, err)

	assert.Equal(t, []Rule{"tracker.example"}, f.RuleSet().Rules())
	assert.True(t, errors.Is(f.Sources()[0].Err, ErrInvalidEncoding))
}

func TestFilter_ByteOrderMarkIsStripped(t *testing.T) {
	dir := t.TempDir()
	list := writeList(t, dir, "bom.txt", "\xEF\xBB\xBF! header comment\nads.example.com\n")

	f, err := New(context.Background(), []string{list})
	require.NoError(t, err)

	assert.Equal(t, []Rule{"ads.example.com"}, f.RuleSet().Rules())
}

func TestFilter_NoSourcesAllowsEverything(t *testing.T) {
	f, err := New(context.Background(), []string{filepath.Join(t.TempDir(), "nope.txt")})
	require.NoError(t, err)

	assert.Equal(t, 0, f.RuleSet().Len())
	assert.False(t, f.ShouldBlock("https://ads.example.com/"))
}

func TestFilter_LoadOrderAcrossSources(t *testing.T) {
	dir := t.TempDir()
	first := writeList(t, dir, "first.txt", "a\n")
	second := writeList(t, dir, "second.txt", "b\n")

	var records []BlockRecord
	f, err := New(context.Background(), []string{second, first}, WithBlockObserver(func(r BlockRecord) {
		records = append(records, r)
	}))
	require.NoError(t, err)

	require.True(t, f.ShouldBlock("https://a.b/"))
	require.Len(t, records, 1)
	assert.Equal(t, Rule("b"), records[0].Rule)
	assert.Equal(t, "https://a.b/", records[0].URL)
}

func TestFilter_TieBreakReportsFirstRule(t *testing.T) {
	f, err := NewFromRules(context.Background(), []Rule{"a", "b"})
	require.NoError(t, err)

	rule, ok := f.Match("https://ab.example/")
	require.True(t, ok)
	assert.Equal(t, Rule("a"), rule)
}

func TestFilter_ObserverOnlyOnBlock(t *testing.T) {
	calls := 0
	f, err := NewFromRules(context.Background(), []Rule{"ads."}, WithBlockObserver(func(BlockRecord) {
		calls++
	}))
	require.NoError(t, err)

	assert.False(t, f.ShouldBlock("https://news.example.com/"))
	assert.Equal(t, 0, calls)

	assert.True(t, f.ShouldBlock("https://ads.example.com/"))
	assert.Equal(t, 1, calls)

	// Match has no side effects.
	_, _ = f.Match("https://ads.example.com/")
	assert.Equal(t, 1, calls)
}

func TestFilter_ShouldBlockIsIdempotent(t *testing.T) {
	f, err := NewFromRules(context.Background(), []Rule{"tracker", "/ads/"})
	require.NoError(t, err)

	urls := []string{
		"https://cdn.example.com/ads/1.js",
		"https://example.com/",
		"tracker",
		"",
	}
	for _, u := range urls {
		first := f.ShouldBlock(u)
		second := f.ShouldBlock(u)
		assert.Equal(t, first, second, u)
	}
	assert.Equal(t, []Rule{"tracker", "/ads/"}, f.RuleSet().Rules())
}

func TestFilter_ShouldBlockMatchesAnyRuleContained(t *testing.T) {
	rules := []Rule{"doubleclick.net", "/pagead/", "?utm_", "analytics"}
	f, err := NewFromRules(context.Background(), rules)
	require.NoError(t, err)

	urls := []string{
		"https://ad.doubleclick.net/x",
		"https://example.com/pagead/show",
		"https://example.com/?utm_source=x",
		"https://example.com/index.html",
		"analytics",
		"",
	}
	for _, u := range urls {
		want := false
		for _, r := range rules {
			if containsRule(u, r) {
				want = true
				break
			}
		}
		assert.Equal(t, want, f.ShouldBlock(u), u)
	}
}

func containsRule(url string, r Rule) bool {
	for i := 0; i+len(r) <= len(url); i++ {
		if url[i:i+len(r)] == string(r) {
			return true
		}
	}
	return false
}

func TestFilter_ConcurrentDecisions(t *testing.T) {
	f, err := NewFromRules(context.Background(), []Rule{"ads.example.com"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, f.ShouldBlock("https://ads.example.com/a"))
				assert.False(t, f.ShouldBlock("https://news.example.com/a"))
			}
		}()
	}
	wg.Wait()
}

func TestFilter_UnknownModeFails(t *testing.T) {
	_, err := NewFromRules(context.Background(), nil, WithMatchMode("regex"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMatchMode))
}

func TestParseMatchMode(t *testing.T) {
	mode, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchModeSubstring, mode)

	mode, err = ParseMatchMode(" Grammar ")
	require.NoError(t, err)
	assert.Equal(t, MatchModeGrammar, mode)

	_, err = ParseMatchMode("wildcard")
	assert.ErrorIs(t, err, ErrUnknownMatchMode)
}

func TestFilter_GrammarMode(t *testing.T) {
	rules := []Rule{
		"||ads.example.com^",
		"@@||ads.example.com/allowed/",
	}
	f, err := NewFromRules(context.Background(), rules, WithMatchMode(MatchModeGrammar))
	require.NoError(t, err)
	assert.Equal(t, MatchModeGrammar, f.Mode())

	assert.True(t, f.ShouldBlock("https://ads.example.com/track?x=1"))
	assert.True(t, f.ShouldBlock("https://sub.ads.example.com/pixel.gif"))
	assert.False(t, f.ShouldBlock("https://ads.example.com/allowed/script.js"))
	assert.False(t, f.ShouldBlock("https://news.example.com/article"))
	// A domain anchor does not match the name appearing in a path.
	assert.False(t, f.ShouldBlock("https://news.example.com/ads.example.com"))

	rule, ok := f.Match("https://ads.example.com/track")
	require.True(t, ok)
	assert.Equal(t, Rule("||ads.example.com^"), rule)
}

func TestFilter_OversizedLineDoesNotDropSource(t *testing.T) {
	dir := t.TempDir()
	list := writeList(t, dir, "easylist.txt",
		"ads.example.com\n"+strings.Repeat("y", 2<<20)+"\ntracker.example\n")

	f, err := New(context.Background(), []string{list})
	require.NoError(t, err)

	require.Len(t, f.Sources(), 1)
	assert.True(t, f.Sources()[0].Loaded())
	assert.Equal(t, 3, f.RuleSet().Len())
	assert.True(t, f.ShouldBlock("https://ads.example.com/x"))
	assert.True(t, f.ShouldBlock("https://tracker.example/p.gif"))
}

func TestFilter_BlockEmitsLogRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.Config{Level: zerolog.InfoLevel, Format: "json"}, &buf)
	ctx := logging.WithContext(context.Background(), logger)

	f, err := NewFromRules(ctx, []Rule{"ads.", "ads.example.com"})
	require.NoError(t, err)
	buf.Reset()

	assert.False(t, f.ShouldBlock("https://news.example.org/"))
	assert.Empty(t, buf.String())

	assert.True(t, f.ShouldBlock("https://ads.example.com/banner.js"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "blocked", rec["message"])
	assert.Equal(t, "filter", rec["component"])
	assert.Equal(t, "ads.", rec["rule"])
	assert.Equal(t, "https://ads.example.com/banner.js", rec["url"])
}

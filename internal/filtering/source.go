package filtering

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/aetherbrowser/aether/internal/logging"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SourceResult is the outcome of loading one rule source.
// Err is non-nil when the source was skipped; Rules is then empty.
type SourceResult struct {
	Path  string
	Rules []Rule
	Err   error
}

// Loaded reports whether the source contributed to the rule set.
func (r SourceResult) Loaded() bool {
	return r.Err == nil
}

// LoadSource reads and parses a single blocklist file.
func LoadSource(path string) SourceResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceResult{Path: path, Err: fmt.Errorf("%w: %w", ErrSourceUnreadable, err)}
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return SourceResult{Path: path, Err: fmt.Errorf("%w: %s", ErrInvalidEncoding, path)}
	}

	rules, err := ParseRules(bytes.NewReader(data))
	if err != nil {
		return SourceResult{Path: path, Err: fmt.Errorf("%w: %w", ErrSourceUnreadable, err)}
	}

	return SourceResult{Path: path, Rules: rules}
}

// LoadSources loads every path in order and concatenates the surviving
// rules. Unreadable sources are skipped with a warning.
func LoadSources(ctx context.Context, paths []string) (*RuleSet, []SourceResult) {
	log := logging.Component(ctx, "filter")

	results := make([]SourceResult, 0, len(paths))
	var all []Rule

	for _, path := range paths {
		res := LoadSource(path)
		results = append(results, res)

		if !res.Loaded() {
			log.Warn().Err(res.Err).Str("path", path).Msg("skipping rule source")
			continue
		}

		all = append(all, res.Rules...)
		log.Info().
			Str("source", filepath.Base(path)).
			Int("rules", len(res.Rules)).
			Msg("loaded rule source")
	}

	log.Info().Int("total_rules", len(all)).Int("sources", len(paths)).Msg("rule set ready")
	return &RuleSet{rules: all}, results
}

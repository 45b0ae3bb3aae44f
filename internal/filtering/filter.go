package filtering

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aetherbrowser/aether/internal/logging"
)

// BlockRecord describes a single block decision.
type BlockRecord struct {
	Rule Rule
	URL  string
}

// Filter answers block/allow decisions for request URLs.
// It is built once and never mutated, so ShouldBlock is safe for
// concurrent callers without locking.
type Filter struct {
	rules   *RuleSet
	matcher Matcher
	mode    MatchMode
	sources []SourceResult
	onBlock func(BlockRecord)
	log     zerolog.Logger
}

// Option configures a Filter at construction.
type Option func(*Filter)

// WithMatchMode selects the rule interpretation. Default is MatchModeSubstring.
func WithMatchMode(mode MatchMode) Option {
	return func(f *Filter) {
		f.mode = mode
	}
}

// WithBlockObserver registers a callback invoked synchronously for every
// block decision made by ShouldBlock.
func WithBlockObserver(fn func(BlockRecord)) Option {
	return func(f *Filter) {
		f.onBlock = fn
	}
}

// New loads rules from paths, in order, and builds a Filter.
// Unreadable sources never fail construction: they are skipped with a
// warning and reported by Sources. An error is only returned when the
// selected match mode cannot be built.
func New(ctx context.Context, paths []string, opts ...Option) (*Filter, error) {
	rs, results := LoadSources(ctx, paths)
	f, err := newFilter(ctx, rs, opts)
	if err != nil {
		return nil, err
	}
	f.sources = results
	return f, nil
}

// NewFromRules builds a Filter over an in-memory rule sequence.
func NewFromRules(ctx context.Context, rules []Rule, opts ...Option) (*Filter, error) {
	return newFilter(ctx, NewRuleSet(rules...), opts)
}

func newFilter(ctx context.Context, rs *RuleSet, opts []Option) (*Filter, error) {
	f := &Filter{
		rules: rs,
		mode:  MatchModeSubstring,
		log:   logging.Component(ctx, "filter"),
	}
	for _, opt := range opts {
		opt(f)
	}

	switch f.mode {
	case MatchModeSubstring:
		f.matcher = rs
	case MatchModeGrammar:
		gm, err := newGrammarMatcher(rs)
		if err != nil {
			return nil, fmt.Errorf("failed to build grammar matcher: %w", err)
		}
		f.matcher = gm
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatchMode, f.mode)
	}

	f.log.Debug().Str("mode", string(f.mode)).Int("rules", rs.Len()).Msg("filter constructed")
	return f, nil
}

// ShouldBlock reports whether url must be blocked. A block decision is
// logged together with the rule that caused it.
func (f *Filter) ShouldBlock(url string) bool {
	rule, ok := f.matcher.Match(url)
	if !ok {
		return false
	}

	log := logging.ForURL(f.log, url)
	log.Info().Str("rule", string(rule)).Msg("blocked")
	if f.onBlock != nil {
		f.onBlock(BlockRecord{Rule: rule, URL: url})
	}
	return true
}

// Match returns the rule that would block url, without side effects.
func (f *Filter) Match(url string) (Rule, bool) {
	return f.matcher.Match(url)
}

// RuleSet returns the loaded rules.
func (f *Filter) RuleSet() *RuleSet {
	return f.rules
}

// Mode returns the active match mode.
func (f *Filter) Mode() MatchMode {
	return f.mode
}

// Sources returns per-source load results in load order.
// Filters built with NewFromRules report no sources.
func (f *Filter) Sources() []SourceResult {
	out := make([]SourceResult, len(f.sources))
	copy(out, f.sources)
	return out
}

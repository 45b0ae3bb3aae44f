package filtering

import (
	"fmt"
	"strings"
)

// MatchMode selects how rules are applied to request URLs.
type MatchMode string

const (
	// MatchModeSubstring blocks when any rule text appears in the URL.
	// First rule in load order wins.
	MatchModeSubstring MatchMode = "substring"
	// MatchModeGrammar interprets rules as Adblock Plus network filters,
	// honoring anchors, separators and @@ exceptions.
	MatchModeGrammar MatchMode = "grammar"
)

// ParseMatchMode maps a config value to a MatchMode.
// An empty value selects MatchModeSubstring.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchModeSubstring:
		return MatchModeSubstring, nil
	case MatchModeGrammar:
		return MatchModeGrammar, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMatchMode, s)
	}
}

// Matcher finds the rule responsible for blocking a URL.
type Matcher interface {
	Match(url string) (Rule, bool)
}

var (
	_ Matcher = (*RuleSet)(nil)
	_ Matcher = (*grammarMatcher)(nil)
)

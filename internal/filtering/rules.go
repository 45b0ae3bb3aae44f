// Package filtering decides whether outgoing requests are blocked by
// blocklist rules loaded once at startup.
package filtering

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Rule is a literal text fragment taken from one blocklist line.
type Rule string

// String returns the rule text.
func (r Rule) String() string {
	return string(r)
}

// RuleSet is an ordered, read-only sequence of rules.
// Order is source order, then line order within a source.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a RuleSet holding a copy of rules.
func NewRuleSet(rules ...Rule) *RuleSet {
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	return &RuleSet{rules: owned}
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rules in load order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Match returns the first rule, in load order, contained in url.
func (rs *RuleSet) Match(url string) (Rule, bool) {
	if rs == nil {
		return "", false
	}
	for _, rule := range rs.rules {
		if strings.Contains(url, string(rule)) {
			return rule, true
		}
	}
	return "", false
}

// ParseRules reads blocklist lines from r.
// Lines end at "\n", "\r\n" or a lone "\r" and may be of any length.
// Lines are whitespace-trimmed; blank lines and lines starting with
// '!' (comments) or '[' (list headers) are dropped. Everything else is
// kept verbatim as a literal rule.
func ParseRules(r io.Reader) ([]Rule, error) {
	br := bufio.NewReader(r)

	var rules []Rule
	for {
		chunk, err := br.ReadString('\n')
		for _, line := range strings.Split(chunk, "\r") {
			line = strings.TrimSpace(line)
			if isSkippedLine(line) {
				continue
			}
			rules = append(rules, Rule(line))
		}

		if errors.Is(err, io.EOF) {
			return rules, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error reading rules: %w", err)
		}
	}
}

func isSkippedLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[")
}

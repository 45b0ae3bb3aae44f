package filtering

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"
	"github.com/AdguardTeam/urlfilter/rules"
)

const (
	grammarListID   = 1
	exceptionPrefix = "@@"
)

// grammarMatcher evaluates rules with the urlfilter network engine.
// Cosmetic rules are ignored; exception matches allow the request.
type grammarMatcher struct {
	engine *urlfilter.NetworkEngine
}

func newGrammarMatcher(rs *RuleSet) (*grammarMatcher, error) {
	lines := make([]string, 0, rs.Len())
	for _, rule := range rs.Rules() {
		lines = append(lines, string(rule))
	}

	list := filterlist.NewString(&filterlist.StringConfig{
		RulesText:      strings.Join(lines, "\n"),
		ID:             grammarListID,
		IgnoreCosmetic: true,
	})

	storage, err := filterlist.NewRuleStorage([]filterlist.Interface{list})
	if err != nil {
		return nil, fmt.Errorf("failed to build rule storage: %w", err)
	}

	return &grammarMatcher{engine: urlfilter.NewNetworkEngine(storage)}, nil
}

func (m *grammarMatcher) Match(url string) (Rule, bool) {
	req := rules.NewRequest(url, "", rules.TypeOther)

	rule, ok := m.engine.Match(req)
	if !ok || rule == nil {
		return "", false
	}

	text := rule.Text()
	if strings.HasPrefix(text, exceptionPrefix) {
		return "", false
	}
	return Rule(text), true
}

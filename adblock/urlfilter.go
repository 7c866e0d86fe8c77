package adblock

import (
	"strings"

	"adfilter/internal"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"
)

// URLFilterEngine matches hosts with AdGuard's DNS engine. Domain rules are
// anchored at label boundaries (||example.com^ does not match
// notexample.com), unlike RuleSet's substring test.
type URLFilterEngine struct {
	engine   *urlfilter.DNSEngine
	domains  int
	patterns int
}

func NewURLFilterEngine(rules []Rule) (*URLFilterEngine, error) {
	lines := make([]string, 0, len(rules))
	seen := make(map[string]struct{})
	e := &URLFilterEngine{}

	for _, r := range rules {
		switch r.Kind() {
		case RuleKindDomain:
			if _, dup := seen[r.String()]; dup {
				continue
			}
			seen[r.String()] = struct{}{}
			e.domains++
		default:
			e.patterns++
		}
		lines = append(lines, r.String())
	}

	stringList := filterlist.NewString(&filterlist.StringConfig{
		RulesText:      strings.Join(lines, "\n"),
		ID:             1,
		IgnoreCosmetic: true,
	})

	storage, err := filterlist.NewRuleStorage([]filterlist.Interface{stringList})
	if err != nil {
		return nil, err
	}

	e.engine = urlfilter.NewDNSEngine(storage)
	return e, nil
}

func (e *URLFilterEngine) Match(rawURL string) MatchResult {
	if e.engine == nil {
		return MatchResult{}
	}
	host, ok := util.HostOf(rawURL)
	if !ok || host == "" {
		return MatchResult{}
	}

	result, found := e.engine.Match(host)
	if !found || result == nil || result.NetworkRule == nil {
		return MatchResult{}
	}

	ruleText := result.NetworkRule.Text()
	if strings.HasPrefix(ruleText, "@@") {
		return MatchResult{}
	}
	return MatchResult{Matched: true, Kind: RuleKindDomain, Rule: ruleText}
}

func (e *URLFilterEngine) DomainCount() int { return e.domains }

func (e *URLFilterEngine) PatternCount() int { return e.patterns }

var _ FilterEngine = (*URLFilterEngine)(nil)

package adblock

import (
	"fmt"
	"strings"
)

const (
	EngineSubstring = "substring"
	EngineURLFilter = "urlfilter"
)

// FilterEngine is the interface for adblock filter engines.
type FilterEngine interface {
	Match(rawURL string) MatchResult
	DomainCount() int
	PatternCount() int
}

// RuleLister is implemented by engines that can list their compiled rules.
type RuleLister interface {
	Domains() []string
	Patterns() []Rule
}

func validEngine(name string) bool {
	switch strings.ToLower(name) {
	case EngineSubstring, EngineURLFilter, "":
		return true
	}
	return false
}

// NewFilterEngine compiles rules into the named engine.
func NewFilterEngine(name string, rules []Rule) (FilterEngine, error) {
	switch strings.ToLower(name) {
	case EngineSubstring, "":
		return NewRuleSet(rules), nil
	case EngineURLFilter:
		e, err := NewURLFilterEngine(rules)
		if err != nil {
			return nil, fmt.Errorf("error creating urlfilter engine: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown adblock engine: %s", name)
	}
}

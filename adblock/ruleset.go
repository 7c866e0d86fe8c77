package adblock

import (
	"adfilter/internal"

	radix "github.com/hashicorp/go-immutable-radix"
)

// RuleSet is an immutable snapshot of compiled rules.
//
// Domains live in a radix tree keyed by the domain text. A domain is a
// substring of a host exactly when it is a prefix of one of the host's
// suffixes, so the domain stage asks the tree for the longest stored prefix
// of host[i:] for every i. Literals and regexes keep list order.
type RuleSet struct {
	domains  *radix.Tree
	literals []LiteralRule
	regexes  []RegexRule
}

// NewRuleSet builds a snapshot from parsed rules. Duplicate domains
// collapse into one entry.
func NewRuleSet(rules []Rule) *RuleSet {
	txn := radix.New().Txn()
	rs := &RuleSet{}

	for _, r := range rules {
		switch v := r.(type) {
		case DomainRule:
			if v.Domain != "" {
				txn.Insert([]byte(v.Domain), v)
			}
		case LiteralRule:
			rs.literals = append(rs.literals, v)
		case RegexRule:
			rs.regexes = append(rs.regexes, v)
		}
	}

	rs.domains = txn.Commit()
	return rs
}

// Match classifies rawURL against the snapshot. It has no side effects.
// Unparsable URLs never match.
func (rs *RuleSet) Match(rawURL string) MatchResult {
	host, ok := util.HostOf(rawURL)
	if !ok {
		return MatchResult{}
	}

	if r, ok := rs.matchDomain(host); ok {
		return matched(r)
	}
	for _, r := range rs.literals {
		if r.Match(host, rawURL) {
			return matched(r)
		}
	}
	for _, r := range rs.regexes {
		if r.Match(host, rawURL) {
			return matched(r)
		}
	}
	return MatchResult{}
}

func (rs *RuleSet) matchDomain(host string) (DomainRule, bool) {
	if host == "" || rs.domains.Len() == 0 {
		return DomainRule{}, false
	}
	root := rs.domains.Root()
	key := []byte(host)
	for i := range key {
		if _, v, ok := root.LongestPrefix(key[i:]); ok {
			return v.(DomainRule), true
		}
	}
	return DomainRule{}, false
}

// DomainCount returns the number of distinct domain rules.
func (rs *RuleSet) DomainCount() int {
	return rs.domains.Len()
}

// PatternCount returns the number of literal and regex rules.
func (rs *RuleSet) PatternCount() int {
	return len(rs.literals) + len(rs.regexes)
}

// Domains lists the domain rules in key order.
func (rs *RuleSet) Domains() []string {
	out := make([]string, 0, rs.domains.Len())
	rs.domains.Root().Walk(func(k []byte, _ interface{}) bool {
		out = append(out, string(k))
		return false
	})
	return out
}

// Patterns lists literal rules followed by regex rules, each in list order.
func (rs *RuleSet) Patterns() []Rule {
	out := make([]Rule, 0, rs.PatternCount())
	for _, r := range rs.literals {
		out = append(out, r)
	}
	for _, r := range rs.regexes {
		out = append(out, r)
	}
	return out
}

var _ FilterEngine = (*RuleSet)(nil)

package adblock

import (
	"regexp"
	"strings"
)

// RuleKind identifies which of the three rule classes a Rule belongs to.
type RuleKind int

const (
	RuleKindDomain  RuleKind = iota // ||example.com^
	RuleKindLiteral                 // plain substring of the URL
	RuleKindRegex                   // /pattern/
)

func (k RuleKind) String() string {
	switch k {
	case RuleKindDomain:
		return "domain"
	case RuleKindLiteral:
		return "literal"
	case RuleKindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Rule is one compiled line of a filter list. Implementations are value
// types and never change after parsing.
type Rule interface {
	Kind() RuleKind
	// Match reports whether the rule applies to a request. host is the
	// lower-cased host of rawURL.
	Match(host, rawURL string) bool
	// String renders the rule back in list syntax.
	String() string
}

// DomainRule blocks every request whose host contains Domain.
// The match is a plain substring test, not anchored at a label boundary.
type DomainRule struct {
	Domain string
}

func (r DomainRule) Kind() RuleKind { return RuleKindDomain }

func (r DomainRule) Match(host, _ string) bool {
	return strings.Contains(host, r.Domain)
}

func (r DomainRule) String() string { return "||" + r.Domain + "^" }

// LiteralRule blocks every request whose full URL contains Text.
type LiteralRule struct {
	Text string
}

func (r LiteralRule) Kind() RuleKind { return RuleKindLiteral }

func (r LiteralRule) Match(_, rawURL string) bool {
	return strings.Contains(rawURL, r.Text)
}

func (r LiteralRule) String() string { return r.Text }

// RegexRule blocks every request whose full URL matches Pattern.
type RegexRule struct {
	Pattern *regexp.Regexp
}

func (r RegexRule) Kind() RuleKind { return RuleKindRegex }

func (r RegexRule) Match(_, rawURL string) bool {
	return r.Pattern.MatchString(rawURL)
}

func (r RegexRule) String() string { return "/" + r.Pattern.String() + "/" }

// MatchResult 匹配结果
type MatchResult struct {
	Matched bool     // 是否匹配
	Kind    RuleKind // 命中规则的类型
	Rule    string   // 匹配的规则内容
}

func matched(r Rule) MatchResult {
	return MatchResult{Matched: true, Kind: r.Kind(), Rule: r.String()}
}

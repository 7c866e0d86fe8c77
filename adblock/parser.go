package adblock

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"adfilter/logger"
)

type skipReason int

const (
	notSkipped skipReason = iota
	skipBlank
	skipComment
	skipCosmetic
	skipEmptyPattern
	skipInvalidRegex
)

// ParseReport summarises one ParseList call.
type ParseReport struct {
	Source         string `json:"source"`
	Lines          int    `json:"lines"`
	Domains        int    `json:"domains"`
	Literals       int    `json:"literals"`
	Regexes        int    `json:"regexes"`
	Skipped        int    `json:"skipped"`
	InvalidRegexes int    `json:"invalid_regexes"`
}

// Rules returns the number of rules produced.
func (r ParseReport) Rules() int {
	return r.Domains + r.Literals + r.Regexes
}

// ParseLine turns a single list line into a rule. It never fails: lines
// that are blank, comments, section headers, element-hiding rules or
// malformed patterns yield (nil, false).
func ParseLine(line string) (Rule, bool) {
	rule, reason := parseLine(line)
	return rule, reason == notSkipped
}

func parseLine(line string) (Rule, skipReason) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return nil, skipBlank
	case strings.HasPrefix(trimmed, "!"), strings.HasPrefix(trimmed, "["):
		return nil, skipComment
	case strings.Contains(trimmed, "##"):
		return nil, skipCosmetic
	case strings.HasPrefix(trimmed, "||"):
		domain := trimmed[2:]
		if i := strings.IndexByte(domain, '^'); i >= 0 {
			domain = domain[:i]
		}
		// An empty domain would be a substring of every host.
		if domain == "" {
			return nil, skipEmptyPattern
		}
		return DomainRule{Domain: domain}, notSkipped
	case len(trimmed) >= 2 && strings.HasPrefix(trimmed, "/") && strings.HasSuffix(trimmed, "/"):
		inner := trimmed[1 : len(trimmed)-1]
		if inner == "" {
			return nil, skipEmptyPattern
		}
		re, err := regexp.Compile(inner)
		if err != nil {
			return nil, skipInvalidRegex
		}
		return RegexRule{Pattern: re}, notSkipped
	default:
		return LiteralRule{Text: trimmed}, notSkipped
	}
}

// ParseList parses every line of r in order. A bad line is skipped and
// counted; only a read error from r is returned.
func ParseList(r io.Reader, source string) ([]Rule, ParseReport, error) {
	report := ParseReport{Source: source}
	out := make([]Rule, 0, 1024)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			report.Lines++
			if report.Lines == 1 {
				line = strings.TrimPrefix(line, "\uFEFF")
			}
			if rule, ok := report.add(line); ok {
				out = append(out, rule)
			}
		}
		if err == io.EOF {
			return out, report, nil
		}
		if err != nil {
			return out, report, err
		}
	}
}

// add classifies one line and updates the counters.
func (r *ParseReport) add(line string) (Rule, bool) {
	rule, reason := parseLine(line)
	switch reason {
	case notSkipped:
	case skipInvalidRegex:
		r.Skipped++
		r.InvalidRegexes++
		logger.Debugf("[AdBlock] %s:%d: skipping invalid regex %q", r.Source, r.Lines, strings.TrimSpace(line))
		return nil, false
	default:
		r.Skipped++
		return nil, false
	}

	switch rule.Kind() {
	case RuleKindDomain:
		r.Domains++
	case RuleKindLiteral:
		r.Literals++
	case RuleKindRegex:
		r.Regexes++
	}
	return rule, true
}

// ParseText is ParseList over an in-memory list.
func ParseText(text, source string) ([]Rule, ParseReport) {
	rules, report, _ := ParseList(strings.NewReader(text), source)
	return rules, report
}

package interpret

import (
	"regexp"
	"strings"
)

// triple is an unvalidated (attribute, operator, raw value) extraction.
// It lives only within one interpretation pass.
type triple struct {
	attribute string
	operator  string
	rawValue  string
}

// extractionRule is one tier of the cascade. Rules run in declaration
// order and the first one that resolves an attribute and a non-empty
// value wins; there is no fallthrough between patterns.
type extractionRule struct {
	name    string
	extract func(text string, attributeNames []string) (triple, bool)
}

var extractionRules = []extractionRule{
	{name: "natural_comparison", extract: extractNaturalComparison},
	{name: "explicit_comparison", extract: extractExplicitComparison},
	{name: "bare_equality", extract: extractBareEquality},
}

// runCascade returns the accepted triple and the name of the rule that
// produced it.
func runCascade(text string, attributeNames []string) (triple, string, bool) {
	for _, rule := range extractionRules {
		if extracted, ok := rule.extract(text, attributeNames); ok {
			return extracted, rule.name, true
		}
	}
	return triple{}, "", false
}

var naturalComparisonPattern = regexp.MustCompile(`(?i)\b(after|before|less than|greater than)\s+(\S+)`)

var naturalOperators = map[string]string{
	"after":        ">",
	"greater than": ">",
	"before":       "<",
	"less than":    "<",
}

// extractNaturalComparison handles phrasing like "trades after
// 2025-02-25": the attribute is implied by the whole query text and the
// operator by a natural-language comparison word.
func extractNaturalComparison(text string, attributeNames []string) (triple, bool) {
	attribute, ok := ResolveAttribute(text, attributeNames)
	if !ok {
		return triple{}, false
	}
	match := naturalComparisonPattern.FindStringSubmatch(text)
	if match == nil {
		return triple{}, false
	}
	operator := naturalOperators[strings.ToLower(match[1])]
	value := strings.TrimSpace(match[2])
	if operator == "" || value == "" {
		return triple{}, false
	}
	return triple{attribute: attribute, operator: operator, rawValue: value}, true
}

var explicitComparisonPattern = regexp.MustCompile(`(\w+)\s*(>=|<=|>|<|=)\s*(\S+)`)

// extractExplicitComparison handles "Amount > 1000" style input with a
// literal comparison operator.
func extractExplicitComparison(text string, attributeNames []string) (triple, bool) {
	match := explicitComparisonPattern.FindStringSubmatch(text)
	if match == nil {
		return triple{}, false
	}
	attribute, ok := ResolveAttribute(match[1], attributeNames)
	if !ok {
		return triple{}, false
	}
	value := strings.TrimSpace(match[3])
	if value == "" {
		return triple{}, false
	}
	return triple{attribute: attribute, operator: match[2], rawValue: value}, true
}

var bareEqualityPattern = regexp.MustCompile(`^\s*(\S+)\s+(.+)$`)

// extractBareEquality treats "SourceCountry CN" as an implied equality.
// This tier can spuriously match unrelated two-word phrases; that is an
// accepted risk of the heuristic, kept instead of inventing stricter
// validation.
func extractBareEquality(text string, attributeNames []string) (triple, bool) {
	match := bareEqualityPattern.FindStringSubmatch(text)
	if match == nil {
		return triple{}, false
	}
	attribute, ok := ResolveAttribute(match[1], attributeNames)
	if !ok {
		return triple{}, false
	}
	value := strings.TrimSpace(match[2])
	if value == "" {
		return triple{}, false
	}
	return triple{attribute: attribute, operator: "=", rawValue: value}, true
}

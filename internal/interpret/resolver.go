package interpret

import (
	"regexp"
	"strings"
)

// keywordClass encodes a domain prior: a trigger phrase class and the
// attribute-name fragments it should land on. Order is the tie-break
// contract, both across classes and across fragments within a class.
type keywordClass struct {
	name      string
	trigger   *regexp.Regexp
	fragments []string
}

var keywordClasses = []keywordClass{
	{
		name:      "origin",
		trigger:   regexp.MustCompile(`(?i)\b(from|source)\b`),
		fragments: []string{"source", "from"},
	},
	{
		name:      "destination",
		trigger:   regexp.MustCompile(`(?i)\b(to|destination)\b`),
		fragments: []string{"destination", "to"},
	},
	{
		name:      "monetary",
		trigger:   regexp.MustCompile(`(?i)\b(amt|cost|price|value)\b`),
		fragments: []string{"amount", "cost", "price", "value"},
	},
	{
		name:      "temporal",
		trigger:   regexp.MustCompile(`(?i)\b(when|day|time|period|after|before)\b`),
		fragments: []string{"date", "timestamp"},
	},
	{
		name:      "categorical",
		trigger:   regexp.MustCompile(`(?i)\b(type|category)\b`),
		fragments: []string{"type", "category"},
	},
}

// ResolveAttribute maps free-form text onto one of the table's
// attribute names. A verbatim (case-insensitive) occurrence of an
// attribute name always wins, first match in schema order; otherwise
// the keyword classes catch loose phrasing like "cost" or "when".
// Pure function: same inputs, same answer.
func ResolveAttribute(text string, attributeNames []string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, name := range attributeNames {
		if strings.Contains(lowered, strings.ToLower(name)) {
			return name, true
		}
	}

	for _, class := range keywordClasses {
		if !class.trigger.MatchString(text) {
			continue
		}
		for _, fragment := range class.fragments {
			for _, name := range attributeNames {
				if strings.Contains(strings.ToLower(name), fragment) {
					return name, true
				}
			}
		}
	}
	return "", false
}

package interpret

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)

// typeRawValue coerces a raw extracted value into the literal sent to
// the store. Date-shaped values under date-named attributes are
// normalized to YYYY-MM-DD before the numeric check runs, so "2025"
// never silently eats "2025-02-25". A value that fails date parsing
// falls back to its original string rather than being dropped.
func typeRawValue(attribute, raw string) any {
	cleaned := strings.Trim(strings.TrimSpace(raw), `"'`)

	lowered := strings.ToLower(attribute)
	if strings.Contains(lowered, "date") || strings.Contains(lowered, "time") {
		if match := datePattern.FindStringSubmatch(cleaned); match != nil {
			composed := fmt.Sprintf("%s-%s-%s", match[1], match[2], match[3])
			parsed, err := time.Parse("2006-1-2", composed)
			if err != nil {
				return cleaned
			}
			return parsed.Format("2006-01-02")
		}
	}

	if number, err := strconv.ParseFloat(cleaned, 64); err == nil && !math.IsInf(number, 0) && !math.IsNaN(number) {
		return number
	}
	return cleaned
}

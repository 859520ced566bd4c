package tablestore

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is one compiled `#name <op> :value` fragment with its
// placeholders already resolved against the expression maps.
type Condition struct {
	Attribute string
	Operator  string
	Value     any
}

// Expression is a conjunction of conditions, the only boolean shape the
// filter grammar supports.
type Expression struct {
	Conditions []Condition
}

var comparisonOperators = map[string]struct{}{
	"=": {}, ">": {}, "<": {}, ">=": {}, "<=": {},
}

// CompileExpression parses a filter expression of the form
// `#attr0 > :val0 AND #attr1 = :val1` and binds every placeholder
// against the name and value maps. Every referenced placeholder must be
// bound in exactly one map, and the reserved bare `#`/`:` tokens are
// rejected before any item is touched.
func CompileExpression(expr string, names map[string]string, values map[string]any) (Expression, error) {
	compiled := Expression{}
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return compiled, nil
	}

	for _, fragment := range strings.Split(trimmed, " AND ") {
		fields := strings.Fields(fragment)
		if len(fields) != 3 {
			return Expression{}, fmt.Errorf("malformed filter fragment %q", fragment)
		}
		namePlaceholder, operator, valuePlaceholder := fields[0], fields[1], fields[2]

		if !strings.HasPrefix(namePlaceholder, "#") {
			return Expression{}, fmt.Errorf("attribute placeholder %q must start with '#'", namePlaceholder)
		}
		if namePlaceholder == "#" {
			return Expression{}, fmt.Errorf("reserved attribute placeholder %q is not allowed", namePlaceholder)
		}
		if _, ok := comparisonOperators[operator]; !ok {
			return Expression{}, fmt.Errorf("unsupported comparison operator %q", operator)
		}
		if !strings.HasPrefix(valuePlaceholder, ":") {
			return Expression{}, fmt.Errorf("value placeholder %q must start with ':'", valuePlaceholder)
		}
		if valuePlaceholder == ":" {
			return Expression{}, fmt.Errorf("reserved value placeholder %q is not allowed", valuePlaceholder)
		}

		attribute, ok := names[namePlaceholder]
		if !ok {
			return Expression{}, fmt.Errorf("attribute placeholder %q is not bound", namePlaceholder)
		}
		value, ok := values[valuePlaceholder]
		if !ok {
			return Expression{}, fmt.Errorf("value placeholder %q is not bound", valuePlaceholder)
		}

		compiled.Conditions = append(compiled.Conditions, Condition{
			Attribute: attribute,
			Operator:  operator,
			Value:     value,
		})
	}
	return compiled, nil
}

// Matches reports whether an item satisfies every condition. Missing
// attributes never match. Comparison is numeric when the bound literal
// is a number; otherwise lexicographic, which covers canonical
// YYYY-MM-DD dates.
func (e Expression) Matches(item Item) bool {
	for _, cond := range e.Conditions {
		raw, ok := item[cond.Attribute]
		if !ok {
			return false
		}
		if !compare(raw, cond.Operator, cond.Value) {
			return false
		}
	}
	return true
}

func compare(itemValue any, operator string, literal any) bool {
	if number, ok := NumberValue(literal); ok {
		itemNumber, ok := NumberValue(itemValue)
		if !ok {
			return false
		}
		switch operator {
		case "=":
			return itemNumber == number
		case ">":
			return itemNumber > number
		case "<":
			return itemNumber < number
		case ">=":
			return itemNumber >= number
		case "<=":
			return itemNumber <= number
		}
		return false
	}

	left := asString(itemValue)
	right := asString(literal)
	switch operator {
	case "=":
		return left == right
	case ">":
		return left > right
	case "<":
		return left < right
	case ">=":
		return left >= right
	case "<=":
		return left <= right
	}
	return false
}

// NumberValue coerces a stored item value to float64. Strings are
// parsed so numeric columns survive JSON round-trips.
func NumberValue(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func asString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

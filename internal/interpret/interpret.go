package interpret

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/smartscan/smartscan/internal/observability"
	"github.com/smartscan/smartscan/internal/tablestore"
)

// Error taxonomy. Failures are structured result fields, never raised
// errors crossing the interpreter boundary.
const (
	ErrorInvalidArgument = "InvalidArgument"
	ErrorSchema          = "SchemaError"
	ErrorInvalidFilter   = "InvalidFilter"
	ErrorInternal        = "InternalError"
)

const (
	// DefaultScanLimit applies when the caller gives no limit.
	DefaultScanLimit = 100
	// DefaultSuperlativeLimit applies to max/min queries, which ask for
	// the single extreme record unless told otherwise.
	DefaultSuperlativeLimit = 1
)

type Request struct {
	TableName string `json:"table_name"`
	QueryText string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

type Result struct {
	Success   bool              `json:"success"`
	Items     []tablestore.Item `json:"items,omitempty"`
	Count     int               `json:"count"`
	Message   string            `json:"message"`
	ErrorType string            `json:"errorType,omitempty"`
}

// Interpreter translates free-form query text into filtered scans
// against an injected table store. It holds no per-request state:
// schemas are re-fetched and filter plans rebuilt on every call.
type Interpreter struct {
	store  tablestore.Store
	logger *slog.Logger
}

func New(store tablestore.Store, logger *slog.Logger) *Interpreter {
	return &Interpreter{store: store, logger: logger}
}

func (i *Interpreter) Interpret(ctx context.Context, req Request) Result {
	start := time.Now()

	if strings.TrimSpace(req.TableName) == "" || strings.TrimSpace(req.QueryText) == "" {
		return i.finish(start, "none", Result{
			ErrorType: ErrorInvalidArgument,
			Message:   "table name and query text are required",
		})
	}

	schema, err := i.store.DescribeSchema(ctx, req.TableName)
	if err != nil {
		return i.finish(start, "none", Result{
			ErrorType: ErrorSchema,
			Message:   fmt.Sprintf("schema for table %q is unavailable: %v", req.TableName, err),
		})
	}
	if len(schema.Attributes) == 0 {
		return i.finish(start, "none", Result{
			ErrorType: ErrorSchema,
			Message:   fmt.Sprintf("table %q has no attribute definitions", req.TableName),
		})
	}
	attributeNames := schema.AttributeNames()

	if direction, ok := detectSuperlative(req.QueryText); ok {
		if sortKey, ok := superlativeSortKey(attributeNames); ok {
			return i.finish(start, "superlative", i.runSuperlative(ctx, req, sortKey, direction))
		}
	}

	extracted, rule, ok := runCascade(req.QueryText, attributeNames)
	if !ok {
		return i.finish(start, "none", Result{
			ErrorType: ErrorInvalidFilter,
			Message:   fmt.Sprintf("could not derive a filter condition from %q", req.QueryText),
		})
	}

	literal := typeRawValue(extracted.attribute, extracted.rawValue)
	plan := buildFilterPlan([]typedCondition{{
		attribute: extracted.attribute,
		operator:  extracted.operator,
		value:     literal,
	}})

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	out, err := i.store.Scan(ctx, tablestore.ScanInput{
		TableName:        req.TableName,
		FilterExpression: plan.expression,
		ExpressionNames:  plan.names,
		ExpressionValues: plan.values,
		Limit:            limit,
	})
	if err != nil {
		return i.finish(start, rule, Result{
			ErrorType: ErrorInternal,
			Message:   fmt.Sprintf("scan of table %q failed: %v", req.TableName, err),
		})
	}

	return i.finish(start, rule, Result{
		Success: true,
		Items:   out.Items,
		Count:   len(out.Items),
		Message: fmt.Sprintf("scanned %s with filter %s", req.TableName, plan.expression),
	})
}

// runSuperlative answers max/min queries with a full unfiltered scan
// and an in-memory sort. Deliberately reads the whole table: a true
// global extreme needs full visibility, and superlative queries are
// rare enough that the cost is acceptable.
func (i *Interpreter) runSuperlative(ctx context.Context, req Request, sortKey, direction string) Result {
	out, err := i.store.Scan(ctx, tablestore.ScanInput{TableName: req.TableName})
	if err != nil {
		return Result{
			ErrorType: ErrorInternal,
			Message:   fmt.Sprintf("scan of table %q failed: %v", req.TableName, err),
		}
	}

	items := out.Items
	sort.SliceStable(items, func(a, b int) bool {
		left := numericField(items[a], sortKey)
		right := numericField(items[b], sortKey)
		if direction == "descending" {
			return left > right
		}
		return left < right
	})

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSuperlativeLimit
	}
	if limit < len(items) {
		items = items[:limit]
	}

	return Result{
		Success: true,
		Items:   items,
		Count:   len(items),
		Message: fmt.Sprintf("top %d of %s sorted by %s (%s)", len(items), req.TableName, sortKey, direction),
	}
}

func (i *Interpreter) finish(start time.Time, strategy string, result Result) Result {
	errorType := result.ErrorType
	if errorType == "" {
		errorType = "none"
	}
	observability.ObserveInterpretation(strategy, errorType, len(result.Items), time.Since(start))
	if i.logger != nil {
		i.logger.Debug("smart query interpreted",
			slog.String("strategy", strategy),
			slog.String("error_type", errorType),
			slog.Int("count", result.Count),
		)
	}
	return result
}

var descendingKeywords = map[string]struct{}{"highest": {}, "maximum": {}, "max": {}}
var ascendingKeywords = map[string]struct{}{"lowest": {}, "minimum": {}, "min": {}}

func detectSuperlative(text string) (string, bool) {
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?;:")
		if _, ok := descendingKeywords[token]; ok {
			return "descending", true
		}
		if _, ok := ascendingKeywords[token]; ok {
			return "ascending", true
		}
	}
	return "", false
}

// superlativeSortKey picks the first attribute, in schema order, that
// looks like a numeric measure.
func superlativeSortKey(attributeNames []string) (string, bool) {
	for _, name := range attributeNames {
		lowered := strings.ToLower(name)
		if strings.Contains(lowered, "amount") || strings.Contains(lowered, "value") {
			return name, true
		}
	}
	return "", false
}

func numericField(item tablestore.Item, field string) float64 {
	value, ok := item[field]
	if !ok {
		return 0
	}
	number, ok := tablestore.NumberValue(value)
	if !ok {
		return 0
	}
	return number
}

type typedCondition struct {
	attribute string
	operator  string
	value     any
}

type filterPlan struct {
	expression string
	names      map[string]string
	values     map[string]any
}

// buildFilterPlan assigns placeholder indices sequentially from 0 and
// joins fragments with AND. The cascade currently accepts a single
// triple per request, so the join is forward compatibility for
// multi-clause extraction.
func buildFilterPlan(conditions []typedCondition) filterPlan {
	plan := filterPlan{
		names:  make(map[string]string, len(conditions)),
		values: make(map[string]any, len(conditions)),
	}
	fragments := make([]string, 0, len(conditions))
	for index, cond := range conditions {
		namePlaceholder := fmt.Sprintf("#attr%d", index)
		valuePlaceholder := fmt.Sprintf(":val%d", index)
		fragments = append(fragments, fmt.Sprintf("%s %s %s", namePlaceholder, cond.operator, valuePlaceholder))
		plan.names[namePlaceholder] = cond.attribute
		plan.values[valuePlaceholder] = cond.value
	}
	plan.expression = strings.Join(fragments, " AND ")
	return plan
}

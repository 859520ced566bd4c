package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/smartscan/smartscan/internal/objstore"
	"github.com/smartscan/smartscan/internal/tablestore"
)

// objectPrefix is where table snapshots live in the object store:
// tables/<TableName>/<part>.parquet.
const objectPrefix = "tables"

// Store serves schema and scan requests straight from parquet
// snapshots in an object store. Each call discovers the table's
// objects by prefix, stages them in a temp dir, and queries them
// through a read_parquet view. Filters compile to a SQL WHERE clause
// so DuckDB does the matching.
type Store struct {
	objects objstore.ObjectStore
}

func NewStore(objects objstore.ObjectStore) *Store {
	return &Store{objects: objects}
}

func (s *Store) DescribeSchema(ctx context.Context, tableName string) (tablestore.Schema, error) {
	schema := tablestore.Schema{TableName: tableName}
	err := s.withTableView(ctx, tableName, func(db *sql.DB, view string) error {
		rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM %s)`, quoteIdent(view)))
		if err != nil {
			return fmt.Errorf("describe view %q: %w", view, err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var name, columnType string
			if err := rows.Scan(&name, &columnType); err != nil {
				return fmt.Errorf("scan describe row: %w", err)
			}
			schema.Attributes = append(schema.Attributes, tablestore.AttributeDef{
				Name: name,
				Type: mapColumnType(columnType),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return tablestore.Schema{}, err
	}
	return schema, nil
}

func (s *Store) Scan(ctx context.Context, in tablestore.ScanInput) (tablestore.ScanOutput, error) {
	expr, err := tablestore.CompileExpression(in.FilterExpression, in.ExpressionNames, in.ExpressionValues)
	if err != nil {
		return tablestore.ScanOutput{}, err
	}

	out := tablestore.ScanOutput{Items: make([]tablestore.Item, 0)}
	err = s.withTableView(ctx, in.TableName, func(db *sql.DB, view string) error {
		sqlText := fmt.Sprintf(`SELECT * FROM %s`, quoteIdent(view))
		if where := whereClause(expr); where != "" {
			sqlText += " WHERE " + where
		}
		if in.Limit > 0 {
			sqlText += fmt.Sprintf(" LIMIT %d", in.Limit)
		}

		rows, err := db.QueryContext(ctx, sqlText)
		if err != nil {
			return fmt.Errorf("scan view %q: %w", view, err)
		}
		defer func() { _ = rows.Close() }()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("scan columns: %w", err)
		}

		for rows.Next() {
			values := make([]any, len(columns))
			scanTargets := make([]any, len(columns))
			for i := range values {
				scanTargets[i] = &values[i]
			}
			if err := rows.Scan(scanTargets...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			item := make(tablestore.Item, len(columns))
			for i, column := range columns {
				item[column] = normalizeValue(values[i])
			}
			out.Items = append(out.Items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return tablestore.ScanOutput{}, err
	}
	out.Count = len(out.Items)
	return out, nil
}

// withTableView stages the table's parquet objects locally and runs fn
// against a fresh in-memory DuckDB with a view over them.
func (s *Store) withTableView(ctx context.Context, tableName string, fn func(db *sql.DB, view string) error) error {
	if strings.TrimSpace(tableName) == "" {
		return fmt.Errorf("table name is required")
	}
	if s.objects == nil {
		return fmt.Errorf("object store is required")
	}

	infos, err := s.objects.List(ctx, objectPrefix+"/"+tableName+"/")
	if err != nil {
		return fmt.Errorf("list table objects: %w", err)
	}
	parquetKeys := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".parquet") {
			parquetKeys = append(parquetKeys, info.Key)
		}
	}
	if len(parquetKeys) == 0 {
		return tablestore.ErrTableNotFound
	}

	workDir, err := os.MkdirTemp("", "smartscan-scan-")
	if err != nil {
		return fmt.Errorf("create scan temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPaths := make([]string, 0, len(parquetKeys))
	for index, key := range parquetKeys {
		reader, err := s.objects.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("get object %q: %w", key, err)
		}
		localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(tableName), index))
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return fmt.Errorf("write local parquet file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("close object %q: %w", key, err)
		}
		localPaths = append(localPaths, localPath)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(tableName), quoteStringArray(localPaths))
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		return fmt.Errorf("create view for table %q: %w", tableName, err)
	}

	return fn(db, tableName)
}

// whereClause renders a compiled expression as DuckDB SQL. Values are
// inlined rather than bound: they come from the typed literal step, so
// the only shapes are float64 and string.
func whereClause(expr tablestore.Expression) string {
	fragments := make([]string, 0, len(expr.Conditions))
	for _, cond := range expr.Conditions {
		fragments = append(fragments, fmt.Sprintf("%s %s %s", quoteIdent(cond.Attribute), cond.Operator, quoteLiteral(cond.Value)))
	}
	return strings.Join(fragments, " AND ")
}

func quoteLiteral(value any) string {
	if number, ok := tablestore.NumberValue(value); ok {
		if _, isString := value.(string); !isString {
			return strconv.FormatFloat(number, 'f', -1, 64)
		}
	}
	text := fmt.Sprintf("%v", value)
	return `'` + strings.ReplaceAll(text, `'`, `''`) + `'`
}

func mapColumnType(columnType string) tablestore.AttributeType {
	upper := strings.ToUpper(strings.TrimSpace(columnType))
	switch {
	case upper == "BLOB":
		return tablestore.TypeBinary
	case strings.HasPrefix(upper, "DECIMAL"),
		upper == "TINYINT", upper == "SMALLINT", upper == "INTEGER", upper == "BIGINT", upper == "HUGEINT",
		upper == "UTINYINT", upper == "USMALLINT", upper == "UINTEGER", upper == "UBIGINT",
		upper == "FLOAT", upper == "DOUBLE", upper == "REAL":
		return tablestore.TypeNumber
	default:
		return tablestore.TypeString
	}
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case int64:
		return float64(typed)
	case int32:
		return float64(typed)
	case float32:
		return float64(typed)
	default:
		return typed
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

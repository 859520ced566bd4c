package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartscan/smartscan/internal/tablestore"
)

// Store keeps table definitions and items in Postgres. Attribute
// definitions and item payloads are JSONB columns, so the schema of a
// stored table never forces a relational migration. Filter evaluation
// happens in process with the shared expression matcher: items arrive
// in insertion order and the limit is applied after filtering, which
// keeps scan semantics identical across backends.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store db: %w", err)
	}
	return nil
}

func (s *Store) DescribeSchema(ctx context.Context, tableName string) (tablestore.Schema, error) {
	query := `
SELECT attribute_defs
FROM table_def
WHERE table_name = $1`

	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, tableName).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tablestore.Schema{}, tablestore.ErrTableNotFound
		}
		return tablestore.Schema{}, fmt.Errorf("describe table %q: %w", tableName, err)
	}

	var attributes []tablestore.AttributeDef
	if err := json.Unmarshal(raw, &attributes); err != nil {
		return tablestore.Schema{}, fmt.Errorf("decode attribute defs for %q: %w", tableName, err)
	}
	return tablestore.Schema{TableName: tableName, Attributes: attributes}, nil
}

func (s *Store) Scan(ctx context.Context, in tablestore.ScanInput) (tablestore.ScanOutput, error) {
	if _, err := s.DescribeSchema(ctx, in.TableName); err != nil {
		return tablestore.ScanOutput{}, err
	}

	expr, err := tablestore.CompileExpression(in.FilterExpression, in.ExpressionNames, in.ExpressionValues)
	if err != nil {
		return tablestore.ScanOutput{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM table_item
WHERE table_name = $1
ORDER BY item_id ASC`, in.TableName)
	if err != nil {
		return tablestore.ScanOutput{}, fmt.Errorf("scan table %q: %w", in.TableName, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]tablestore.Item, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return tablestore.ScanOutput{}, fmt.Errorf("scan item row: %w", err)
		}
		var item tablestore.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return tablestore.ScanOutput{}, fmt.Errorf("decode item payload: %w", err)
		}
		if !expr.Matches(item) {
			continue
		}
		items = append(items, item)
		if in.Limit > 0 && len(items) >= in.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return tablestore.ScanOutput{}, fmt.Errorf("iterate item rows: %w", err)
	}
	return tablestore.ScanOutput{Items: items, Count: len(items)}, nil
}

func (s *Store) CreateTable(ctx context.Context, schema tablestore.Schema) error {
	if schema.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	if len(schema.Attributes) == 0 {
		return fmt.Errorf("at least one attribute definition is required")
	}

	raw, err := json.Marshal(schema.Attributes)
	if err != nil {
		return fmt.Errorf("encode attribute defs: %w", err)
	}

	query := `
INSERT INTO table_def (table_name, attribute_defs)
VALUES ($1, $2::jsonb)`
	if _, err := s.db.ExecContext(ctx, query, schema.TableName, string(raw)); err != nil {
		return fmt.Errorf("create table %q: %w", schema.TableName, err)
	}
	return nil
}

func (s *Store) PutItems(ctx context.Context, tableName string, items []tablestore.Item) (int, error) {
	if _, err := s.DescribeSchema(ctx, tableName); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return written, fmt.Errorf("encode item payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO table_item (table_name, payload)
VALUES ($1, $2::jsonb)`, tableName, string(raw)); err != nil {
			return written, fmt.Errorf("put item into %q: %w", tableName, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("commit items: %w", err)
	}
	return written, nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_name
FROM table_def
ORDER BY table_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}
	return names, nil
}

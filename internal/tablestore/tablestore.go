package tablestore

import (
	"context"
	"errors"
)

var ErrTableNotFound = errors.New("tablestore: table not found")

// AttributeType follows the wide-column wire convention: S for string,
// N for number, B for binary.
type AttributeType string

const (
	TypeString AttributeType = "S"
	TypeNumber AttributeType = "N"
	TypeBinary AttributeType = "B"
)

type AttributeDef struct {
	Name string        `json:"name"`
	Type AttributeType `json:"type"`
}

// Schema is an immutable per-request snapshot of a table's attribute
// definitions, in store-defined order.
type Schema struct {
	TableName  string         `json:"table_name"`
	Attributes []AttributeDef `json:"attributes"`
}

func (s Schema) AttributeNames() []string {
	names := make([]string, 0, len(s.Attributes))
	for _, attr := range s.Attributes {
		names = append(names, attr.Name)
	}
	return names
}

type Item map[string]any

type ScanInput struct {
	TableName        string
	FilterExpression string
	ExpressionNames  map[string]string
	ExpressionValues map[string]any
	IndexName        string
	Limit            int
}

type ScanOutput struct {
	Items []Item
	Count int
}

// Store is the collaborator boundary consumed by the query
// interpreter. Backends: memory, postgres, duckdb/parquet.
type Store interface {
	DescribeSchema(ctx context.Context, tableName string) (Schema, error)
	Scan(ctx context.Context, in ScanInput) (ScanOutput, error)
}

// Admin is the optional write surface. The API layer feature-detects
// it via type assertion; read-only backends simply don't implement it.
type Admin interface {
	CreateTable(ctx context.Context, schema Schema) error
	PutItems(ctx context.Context, tableName string, items []Item) (int, error)
	ListTables(ctx context.Context) ([]string, error)
}

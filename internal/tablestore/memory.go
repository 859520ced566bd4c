package tablestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is the in-process backend used by the dev profile and by
// tests. Scan order is insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	items   map[string][]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemas: map[string]Schema{},
		items:   map[string][]Item{},
	}
}

func (s *MemoryStore) CreateTable(_ context.Context, schema Schema) error {
	if schema.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	if len(schema.Attributes) == 0 {
		return fmt.Errorf("at least one attribute definition is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schemas[schema.TableName]; ok {
		return fmt.Errorf("table %q already exists", schema.TableName)
	}
	s.schemas[schema.TableName] = schema
	s.items[schema.TableName] = nil
	return nil
}

func (s *MemoryStore) PutItems(_ context.Context, tableName string, items []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schemas[tableName]; !ok {
		return 0, ErrTableNotFound
	}
	s.items[tableName] = append(s.items[tableName], items...)
	return len(items), nil
}

func (s *MemoryStore) ListTables(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) DescribeSchema(_ context.Context, tableName string) (Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[tableName]
	if !ok {
		return Schema{}, ErrTableNotFound
	}
	return schema, nil
}

func (s *MemoryStore) Scan(_ context.Context, in ScanInput) (ScanOutput, error) {
	expr, err := CompileExpression(in.FilterExpression, in.ExpressionNames, in.ExpressionValues)
	if err != nil {
		return ScanOutput{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[in.TableName]
	if !ok {
		return ScanOutput{}, ErrTableNotFound
	}

	matched := make([]Item, 0, len(stored))
	for _, item := range stored {
		if !expr.Matches(item) {
			continue
		}
		matched = append(matched, item)
		if in.Limit > 0 && len(matched) >= in.Limit {
			break
		}
	}
	return ScanOutput{Items: matched, Count: len(matched)}, nil
}

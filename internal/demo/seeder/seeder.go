// Package seeder populates a table store and the object store with a
// deterministic demo dataset so the query endpoints have something to
// interpret against out of the box.
package seeder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/parquet-go/parquet-go"

	"github.com/smartscan/smartscan/internal/config"
	"github.com/smartscan/smartscan/internal/objstore"
	"github.com/smartscan/smartscan/internal/tablestore"
)

type writableStore interface {
	tablestore.Store
	tablestore.Admin
}

type Seeder struct {
	cfg     config.SeedConfig
	store   writableStore
	objects objstore.ObjectStore
	log     *slog.Logger
}

// New builds a seeder. The object store is optional; when nil, no
// parquet snapshot is written and only the table store is seeded.
func New(cfg config.SeedConfig, store writableStore, objects objstore.ObjectStore, logger *slog.Logger) (*Seeder, error) {
	if store == nil {
		return nil, fmt.Errorf("seeder requires a writable table store")
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("seed table name is required")
	}
	if cfg.Records <= 0 {
		return nil, fmt.Errorf("seed record count must be positive")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{cfg: cfg, store: store, objects: objects, log: logger}, nil
}

func (s *Seeder) Run(ctx context.Context) error {
	created, err := s.ensureTable(ctx)
	if err != nil {
		return err
	}
	if !created {
		s.log.Info("seed table already exists, skipping", slog.String("table", s.cfg.TableName))
		return nil
	}

	generator := NewGenerator(s.cfg.Seed, s.cfg.CreatedBy)
	records := make([]TradeRecord, 0, s.cfg.Records)
	items := make([]tablestore.Item, 0, s.cfg.Records)
	for i := 0; i < s.cfg.Records; i++ {
		record := generator.NextRecord()
		records = append(records, record)
		items = append(items, record.Item())
	}

	written, err := s.store.PutItems(ctx, s.cfg.TableName, items)
	if err != nil {
		return fmt.Errorf("seed items: %w", err)
	}
	s.log.Info("seeded table store",
		slog.String("table", s.cfg.TableName),
		slog.Int("written", written),
	)

	if s.objects == nil {
		return nil
	}
	if err := s.writeSnapshot(ctx, records); err != nil {
		return err
	}
	return nil
}

func (s *Seeder) ensureTable(ctx context.Context) (bool, error) {
	_, err := s.store.DescribeSchema(ctx, s.cfg.TableName)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, tablestore.ErrTableNotFound) {
		return false, fmt.Errorf("check seed table: %w", err)
	}
	if err := s.store.CreateTable(ctx, TradeSchema(s.cfg.TableName)); err != nil {
		return false, fmt.Errorf("create seed table: %w", err)
	}
	return true, nil
}

func (s *Seeder) writeSnapshot(ctx context.Context, records []TradeRecord) error {
	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[TradeRecord](&buf)
	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("write parquet snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet snapshot: %w", err)
	}

	key := path.Join("tables", s.cfg.TableName, "part-0.parquet")
	info, err := s.objects.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), objstore.PutOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return fmt.Errorf("upload parquet snapshot: %w", err)
	}
	s.log.Info("uploaded parquet snapshot",
		slog.String("key", info.Key),
		slog.Int64("size_bytes", info.Size),
	)
	return nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/smartscan/smartscan/internal/config"
	"github.com/smartscan/smartscan/internal/demo/seeder"
	"github.com/smartscan/smartscan/internal/objstore"
	"github.com/smartscan/smartscan/internal/objstore/s3"
	"github.com/smartscan/smartscan/internal/observability"
	"github.com/smartscan/smartscan/internal/tablestore"
	"github.com/smartscan/smartscan/internal/tablestore/postgres"
)

// Seeds the configured table store with the demo trade dataset and,
// when an object store is configured, uploads the matching parquet
// snapshot for the duckdb backend to serve.
func main() {
	cfg, err := config.LoadFromEnv("smartscan-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var store interface {
		tablestore.Store
		tablestore.Admin
	}
	if cfg.Store.Backend == config.BackendPostgres {
		db, err := postgres.Open(ctx, postgres.DBConfig{
			DSN:             cfg.Catalog.DSN,
			MaxOpenConns:    cfg.Catalog.MaxOpenConns,
			MaxIdleConns:    cfg.Catalog.MaxIdleConns,
			ConnMaxIdleTime: cfg.Catalog.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Catalog.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open table store database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		store = postgres.NewStore(db)
	} else {
		// Non-postgres backends keep no shared item state to seed, so
		// the parquet snapshot upload is the durable effect here.
		store = tablestore.NewMemoryStore()
	}

	var objects objstore.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		objects, err = s3.New(ctx, s3.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	demoSeeder, err := seeder.New(cfg.Seed, store, objects, logger)
	if err != nil {
		logger.Error("failed to build seeder", slog.Any("error", err))
		os.Exit(1)
	}
	if err := demoSeeder.Run(ctx); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seeding complete",
		slog.String("table", cfg.Seed.TableName),
		slog.Int("records", cfg.Seed.Records),
	)
}

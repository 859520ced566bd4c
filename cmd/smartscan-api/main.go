package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartscan/smartscan/internal/api"
	"github.com/smartscan/smartscan/internal/auth"
	"github.com/smartscan/smartscan/internal/config"
	"github.com/smartscan/smartscan/internal/demo/seeder"
	"github.com/smartscan/smartscan/internal/interpret"
	"github.com/smartscan/smartscan/internal/objstore/s3"
	"github.com/smartscan/smartscan/internal/observability"
	"github.com/smartscan/smartscan/internal/tablestore"
	duckdbstore "github.com/smartscan/smartscan/internal/tablestore/duckdb"
	"github.com/smartscan/smartscan/internal/tablestore/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("smartscan-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var store tablestore.Store
	var readiness []api.ReadinessCheck

	switch cfg.Store.Backend {
	case config.BackendMemory:
		memStore := tablestore.NewMemoryStore()
		demoSeeder, err := seeder.New(cfg.Seed, memStore, nil, logger)
		if err != nil {
			logger.Error("failed to build demo seeder", slog.Any("error", err))
			os.Exit(1)
		}
		if err := demoSeeder.Run(context.Background()); err != nil {
			logger.Error("failed to seed memory store", slog.Any("error", err))
			os.Exit(1)
		}
		store = memStore
	case config.BackendPostgres:
		db, err := postgres.Open(context.Background(), postgres.DBConfig{
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
		pgStore := postgres.NewStore(db)
		store = pgStore
		readiness = append(readiness, pgStore.HealthCheck, api.CheckCatalogDSN(cfg))
	case config.BackendDuckDB:
		objects, err := s3.New(context.Background(), s3.Config{
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
		store = duckdbstore.NewStore(objects)
		readiness = append(readiness, api.CheckObjectStoreConfig(cfg))
	default:
		logger.Error("unsupported store backend", slog.String("backend", string(cfg.Store.Backend)))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Store:             store,
		Interpreter:       interpret.New(store, logger),
		QueryMaxLimit:     cfg.Query.MaxLimit,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("backend", string(cfg.Store.Backend)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

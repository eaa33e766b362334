package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/wage-wallet/internal/config"
	"github.com/spec-kit/wage-wallet/internal/legacy"
	"github.com/spec-kit/wage-wallet/internal/observability"
	"github.com/spec-kit/wage-wallet/internal/persistence"
	"github.com/spec-kit/wage-wallet/internal/repository"
)

func main() {
	file := flag.String("file", "", "path to the legacy staff JSON export")
	dryRun := flag.Bool("dry-run", false, "run every import check against the store, then roll back")
	overwrite := flag.Bool("overwrite", false, "replace existing staff records")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("open export", zap.Error(err))
	}
	records, issues, err := legacy.Parse(f)
	_ = f.Close()
	if err != nil {
		logger.Fatal("parse export", zap.Error(err))
	}
	for _, issue := range issues {
		logger.Warn("document rejected", zap.String("staff_code", issue.StaffCode), zap.String("reason", issue.Reason))
	}

	ctx := context.Background()
	var store repository.Store
	if cfg.Storage.Backend == config.StorageBackendMemory {
		store = repository.NewMemoryStore()
	} else {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle(), cfg.Postgres.TxRetries, logger)
	}

	report := legacy.NewImporter(store, logger).Run(ctx, records, legacy.Options{
		DryRun:    *dryRun,
		Overwrite: *overwrite,
	})
	fmt.Printf("created=%d updated=%d skipped=%d failed=%d rejected=%d\n",
		len(report.Created), len(report.Updated), len(report.Skipped), len(report.Failed), len(issues))
	if len(report.Failed) > 0 || len(issues) > 0 {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"

	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/infrastructure/config"
	"github.com/orgmap/backend/internal/infrastructure/logger"
	"github.com/orgmap/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

type catalogImporter interface {
	Import(ctx context.Context, upload importapp.Upload) (*importapp.UploadResult, error)
}

// cliEnv holds the collaborators commands reach for, so tests can swap the
// database-backed importer for a stub.
type cliEnv struct {
	loadConfig   func(path string) (*config.Config, error)
	newLogger    func(cfg *config.Config, levelOverride string) (*zap.Logger, error)
	openImporter func(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalogImporter, func() error, error)
}

func defaultEnv() *cliEnv {
	return &cliEnv{
		loadConfig:   config.LoadFrom,
		newLogger:    newLogger,
		openImporter: openImporter,
	}
}

func newLogger(cfg *config.Config, levelOverride string) (*zap.Logger, error) {
	level := cfg.Log.Level
	if levelOverride != "" {
		level = levelOverride
	}
	return logger.New(&logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
}

// openImporter connects to the configured database and builds the same
// import service the HTTP server uses, without the upload guard or archive.
func openImporter(_ context.Context, cfg *config.Config, log *zap.Logger) (catalogImporter, func() error, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		cfg.Telemetry.DBSlowQueryThresh, cfg.Telemetry.DBLogFullSQL)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	history := importapp.NewImportHistoryService(persistence.NewGormImportHistoryRepository(db.DB))
	svc := importapp.NewCatalogImportService(
		persistence.NewGormUnitOfWork(db.DB),
		history,
		importOptions(cfg),
	)
	return svc, db.Close, nil
}

func importOptions(cfg *config.Config) importapp.Options {
	return importapp.Options{
		GradeCeiling:        cfg.Import.GradeCeiling,
		MaxFileSize:         cfg.Import.MaxFileSize,
		MaxErrors:           cfg.Import.MaxErrors,
		CreateMissingGrades: cfg.Import.CreateMissingGrade,
		IdempotencyTTL:      cfg.Import.IdempotencyTTL,
	}
}

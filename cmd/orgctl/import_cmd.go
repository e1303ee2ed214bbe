package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	csvimport "github.com/orgmap/backend/internal/infrastructure/import"
	"github.com/orgmap/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type importOutput struct {
	Command    string                  `json:"command"`
	File       string                  `json:"file"`
	DurationMS int64                   `json:"duration_ms"`
	Result     *importapp.UploadResult `json:"result"`
}

func newImportCmd(env *cliEnv, root *rootOptions) *cobra.Command {
	var createMissingGrades bool

	cmd := &cobra.Command{
		Use:   "import <sbu|job-roles|grades|job-role-grades> <file>",
		Short: "Load a CSV or XLSX catalog file into the database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := bulk.ParseImportEntityType(args[0])
			if err != nil {
				return withCode(exitUsage, err)
			}

			path := args[1]
			data, err := os.ReadFile(path)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("read %s: %w", path, err))
			}

			cfg, err := env.loadConfig(root.configPath)
			if err != nil {
				return withCode(exitUsage, err)
			}
			if cmd.Flags().Changed("create-missing-grades") {
				cfg.Import.CreateMissingGrade = createMissingGrades
			}

			log, err := env.newLogger(cfg, root.logLevel)
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer func() {
				_ = logger.Sync(log)
			}()

			ctx := logger.WithContext(cmd.Context(), log)
			importer, closeFn, err := env.openImporter(ctx, cfg, log)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer func() {
				if err := closeFn(); err != nil {
					log.Warn("Error closing database", zap.Error(err))
				}
			}()

			start := time.Now()
			result, err := importer.Import(ctx, importapp.Upload{
				Entity:      entity,
				FileName:    filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Data:        data,
			})
			if err != nil {
				return withCode(importErrorCode(err), err)
			}

			if err := writeJSON(cmd.OutOrStdout(), importOutput{
				Command:    "import " + string(entity),
				File:       path,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     result,
			}); err != nil {
				return err
			}

			if result.Status == bulk.ImportStatusFailed {
				return withCode(exitValidation, fmt.Errorf("%s: no rows loaded, %d row errors", path, result.ErrorRows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&createMissingGrades, "create-missing-grades", true,
		"Create grades referenced by job-role-grades files before linking")
	return cmd
}

func importErrorCode(err error) int {
	var parseErr *organization.GradeParseError
	switch {
	case csvimport.IsInputError(err), errors.As(err, &parseErr):
		return exitValidation
	case importapp.IsPersistenceError(err):
		return exitDB
	}
	return exitImport
}

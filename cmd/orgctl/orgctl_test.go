package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubImporter struct {
	uploads []importapp.Upload
	result  *importapp.UploadResult
	err     error
}

func (s *stubImporter) Import(_ context.Context, upload importapp.Upload) (*importapp.UploadResult, error) {
	s.uploads = append(s.uploads, upload)
	return s.result, s.err
}

type testEnv struct {
	cfg      *config.Config
	importer *stubImporter
	openErr  error
	closed   bool
}

func newTestEnv() *testEnv {
	return &testEnv{
		cfg: &config.Config{Import: config.ImportConfig{
			GradeCeiling:       organization.DefaultGradeCeiling,
			CreateMissingGrade: true,
		}},
		importer: &stubImporter{},
	}
}

func (e *testEnv) cliEnv() *cliEnv {
	return &cliEnv{
		loadConfig: func(string) (*config.Config, error) {
			return e.cfg, nil
		},
		newLogger: func(*config.Config, string) (*zap.Logger, error) {
			return zap.NewNop(), nil
		},
		openImporter: func(context.Context, *config.Config, *zap.Logger) (catalogImporter, func() error, error) {
			if e.openErr != nil {
				return nil, nil, e.openErr
			}
			return e.importer, func() error {
				e.closed = true
				return nil
			}, nil
		},
	}
}

func runCmd(t *testing.T, env *cliEnv, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(env)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExpandCmd(t *testing.T) {
	env := newTestEnv()

	t.Run("bounded range", func(t *testing.T) {
		out, err := runCmd(t, env.cliEnv(), "expand", "MT3 - MT5")
		require.NoError(t, err)

		var got expandOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []string{"MT3", "MT4", "MT5"}, got.Grades)
		assert.Equal(t, organization.DefaultGradeCeiling, got.Ceiling)
	})

	t.Run("open-ended range honours ceiling flag", func(t *testing.T) {
		out, err := runCmd(t, env.cliEnv(), "expand", "--ceiling", "10", "MT7 & Above")
		require.NoError(t, err)

		var got expandOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []string{"MT7", "MT8", "MT9"}, got.Grades)
		assert.Equal(t, 10, got.Ceiling)
	})

	t.Run("sentinel expands to nothing", func(t *testing.T) {
		out, err := runCmd(t, env.cliEnv(), "expand", "Not Applicable")
		require.NoError(t, err)

		var got expandOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Empty(t, got.Grades)
	})

	t.Run("unparseable range", func(t *testing.T) {
		_, err := runCmd(t, env.cliEnv(), "expand", "MT3 - MTx")
		require.Error(t, err)

		var parseErr *organization.GradeParseError
		assert.ErrorAs(t, err, &parseErr)
		assert.Equal(t, exitValidation, exitCode(err))
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := runCmd(t, env.cliEnv(), "expand")
		assert.Error(t, err)
	})
}

func TestImportCmd(t *testing.T) {
	t.Run("loads the file through the importer", func(t *testing.T) {
		env := newTestEnv()
		env.importer.result = &importapp.UploadResult{
			UploadID:  uuid.New(),
			Entity:    bulk.ImportEntityGrades,
			Status:    bulk.ImportStatusCompleted,
			TotalRows: 2,
			Inserted:  2,
		}
		path := writeFile(t, "grades.csv", "Grade\nMT1\nMT2\n")

		out, err := runCmd(t, env.cliEnv(), "import", "grades", path)
		require.NoError(t, err)

		require.Len(t, env.importer.uploads, 1)
		upload := env.importer.uploads[0]
		assert.Equal(t, bulk.ImportEntityGrades, upload.Entity)
		assert.Equal(t, "grades.csv", upload.FileName)
		assert.Equal(t, "Grade\nMT1\nMT2\n", string(upload.Data))
		assert.True(t, env.closed)

		var got importOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "import grades", got.Command)
		require.NotNil(t, got.Result)
		assert.Equal(t, 2, got.Result.Inserted)
	})

	t.Run("accepts hyphenated entity names", func(t *testing.T) {
		env := newTestEnv()
		env.importer.result = &importapp.UploadResult{Status: bulk.ImportStatusCompleted}
		path := writeFile(t, "mapping.csv", "Job Role,Grade\nAnalyst,MT3\n")

		_, err := runCmd(t, env.cliEnv(), "import", "job-role-grades", path)
		require.NoError(t, err)
		require.Len(t, env.importer.uploads, 1)
		assert.Equal(t, bulk.ImportEntityJobRoleGrades, env.importer.uploads[0].Entity)
	})

	t.Run("create-missing-grades flag overrides config", func(t *testing.T) {
		env := newTestEnv()
		env.importer.result = &importapp.UploadResult{Status: bulk.ImportStatusCompleted}
		path := writeFile(t, "mapping.csv", "Job Role,Grade\nAnalyst,MT3\n")

		_, err := runCmd(t, env.cliEnv(), "import", "--create-missing-grades=false", "job-role-grades", path)
		require.NoError(t, err)
		assert.False(t, env.cfg.Import.CreateMissingGrade)
	})

	t.Run("unknown entity is a usage error", func(t *testing.T) {
		env := newTestEnv()
		path := writeFile(t, "x.csv", "SBU\nRetail\n")

		_, err := runCmd(t, env.cliEnv(), "import", "widgets", path)
		require.Error(t, err)
		assert.Equal(t, exitUsage, exitCode(err))
		assert.Empty(t, env.importer.uploads)
	})

	t.Run("missing file is a usage error", func(t *testing.T) {
		env := newTestEnv()

		_, err := runCmd(t, env.cliEnv(), "import", "sbu", filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
		assert.Equal(t, exitUsage, exitCode(err))
	})

	t.Run("database unavailable", func(t *testing.T) {
		env := newTestEnv()
		env.openErr = errors.New("connect database: refused")
		path := writeFile(t, "sbu.csv", "SBU\nRetail\n")

		_, err := runCmd(t, env.cliEnv(), "import", "sbu", path)
		require.Error(t, err)
		assert.Equal(t, exitDB, exitCode(err))
	})

	t.Run("failed upload exits with validation code", func(t *testing.T) {
		env := newTestEnv()
		env.importer.result = &importapp.UploadResult{
			Status:    bulk.ImportStatusFailed,
			TotalRows: 1,
			ErrorRows: 1,
		}
		path := writeFile(t, "mapping.csv", "Job Role,Grade\nAnalyst,MT3 - MTx\n")

		out, err := runCmd(t, env.cliEnv(), "import", "job-role-grades", path)
		require.Error(t, err)
		assert.Equal(t, exitValidation, exitCode(err))
		assert.Contains(t, out, `"status": "failed"`)
	})

	t.Run("importer error", func(t *testing.T) {
		env := newTestEnv()
		env.importer.err = errors.New("boom")
		path := writeFile(t, "sbu.csv", "SBU\nRetail\n")

		_, err := runCmd(t, env.cliEnv(), "import", "sbu", path)
		require.Error(t, err)
		assert.Equal(t, exitImport, exitCode(err))
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("plain")))
	assert.Equal(t, exitDB, exitCode(withCode(exitDB, errors.New("db"))))
	assert.NoError(t, withCode(exitDB, nil))
}

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupImportHistoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.Exec(`
		CREATE TABLE import_histories (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_size INTEGER NOT NULL DEFAULT 0,
			total_rows INTEGER NOT NULL DEFAULT 0,
			inserted_rows INTEGER NOT NULL DEFAULT 0,
			skipped_rows INTEGER NOT NULL DEFAULT 0,
			error_rows INTEGER NOT NULL DEFAULT 0,
			dropped_rows INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			error_details TEXT DEFAULT '[]',
			dropped_details TEXT DEFAULT '[]',
			archive_key TEXT,
			idempotency_key TEXT,
			started_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func newCompletedHistory(t *testing.T, entity bulk.ImportEntityType, name string) *bulk.ImportHistory {
	t.Helper()
	h, err := bulk.NewImportHistory(entity, name, 128)
	require.NoError(t, err)
	require.NoError(t, h.StartProcessing(3))
	require.NoError(t, h.Complete(bulk.ImportCounts{TotalRows: 3, InsertedRows: 2, SkippedRows: 1}, nil, nil))
	return h
}

func TestGormImportHistoryRepository_SaveAndFind(t *testing.T) {
	db := setupImportHistoryTestDB(t)
	repo := NewGormImportHistoryRepository(db)
	ctx := context.Background()

	h, err := bulk.NewImportHistory(bulk.ImportEntityJobRoleGrades, "mapping.csv", 2048)
	require.NoError(t, err)
	h.IdempotencyKey = "key-1"
	h.SetArchiveKey("uploads/job_role_grades/mapping.csv")
	require.NoError(t, h.StartProcessing(4))
	require.NoError(t, h.Complete(
		bulk.ImportCounts{TotalRows: 4, InsertedRows: 1, ErrorRows: 1, DroppedRows: 2},
		[]bulk.ImportErrorDetail{{Row: 3, Column: "Grade", Code: "ERR_IMPORT_GRADE_PARSE", Message: "bad range", Value: "MT5 -"}},
		[]organization.DroppedRow{
			{Line: 4, JobRole: "Unknown", Notation: "MT5", Reason: organization.DropUnknownJobRole},
			{Line: 5, JobRole: "Engineer", Notation: "MT99", Grade: "MT99", Reason: organization.DropUnknownGrade},
		},
	))

	require.NoError(t, repo.Save(ctx, h))

	found, err := repo.FindByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ID, found.ID)
	assert.Equal(t, bulk.ImportEntityJobRoleGrades, found.EntityType)
	assert.Equal(t, "mapping.csv", found.FileName)
	assert.Equal(t, int64(2048), found.FileSize)
	assert.Equal(t, bulk.ImportStatusCompleted, found.Status)
	assert.Equal(t, 1, found.InsertedRows)
	assert.Equal(t, 2, found.DroppedRows)
	assert.Equal(t, "key-1", found.IdempotencyKey)
	assert.Equal(t, "uploads/job_role_grades/mapping.csv", found.ArchiveKey)
	require.Len(t, found.ErrorDetails, 1)
	assert.Equal(t, "ERR_IMPORT_GRADE_PARSE", found.ErrorDetails[0].Code)
	require.Len(t, found.DroppedDetails, 2)
	assert.Equal(t, organization.DropUnknownGrade, found.DroppedDetails[1].Reason)
	assert.NotNil(t, found.StartedAt)
	assert.NotNil(t, found.CompletedAt)

	t.Run("save updates an existing record", func(t *testing.T) {
		pending, err := bulk.NewImportHistory(bulk.ImportEntityGrades, "grades.csv", 10)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, pending))

		require.NoError(t, pending.StartProcessing(1))
		require.NoError(t, pending.Fail([]bulk.ImportErrorDetail{{Code: "ERR_DB", Message: "down"}}))
		require.NoError(t, repo.Save(ctx, pending))

		found, err := repo.FindByID(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, bulk.ImportStatusFailed, found.Status)
		assert.True(t, found.HasErrors())
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormImportHistoryRepository_FindAll(t *testing.T) {
	db := setupImportHistoryTestDB(t)
	repo := NewGormImportHistoryRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	entities := []bulk.ImportEntityType{
		bulk.ImportEntityGrades,
		bulk.ImportEntityGrades,
		bulk.ImportEntityJobRoles,
	}
	var saved []*bulk.ImportHistory
	for i, e := range entities {
		h := newCompletedHistory(t, e, "file.csv")
		h.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, h))
		saved = append(saved, h)
	}

	t.Run("newest first", func(t *testing.T) {
		result, err := repo.FindAll(ctx, bulk.ImportHistoryFilter{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.TotalCount)
		require.Len(t, result.Items, 3)
		assert.Equal(t, saved[2].ID, result.Items[0].ID)
		assert.Equal(t, saved[0].ID, result.Items[2].ID)
	})

	t.Run("filter by entity type", func(t *testing.T) {
		entity := bulk.ImportEntityGrades
		result, err := repo.FindAll(ctx, bulk.ImportHistoryFilter{EntityType: &entity}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.TotalCount)
		for _, item := range result.Items {
			assert.Equal(t, bulk.ImportEntityGrades, item.EntityType)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		status := bulk.ImportStatusFailed
		result, err := repo.FindAll(ctx, bulk.ImportHistoryFilter{Status: &status}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.TotalCount)
		assert.Empty(t, result.Items)
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := repo.FindAll(ctx, bulk.ImportHistoryFilter{}, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.TotalCount)
		assert.Equal(t, 2, result.Page)
		assert.Equal(t, 2, result.PageSize)
		require.Len(t, result.Items, 1)
		assert.Equal(t, saved[0].ID, result.Items[0].ID)
	})

	t.Run("page bounds are normalized", func(t *testing.T) {
		result, err := repo.FindAll(ctx, bulk.ImportHistoryFilter{}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, shared.DefaultPageSize, result.PageSize)
	})
}

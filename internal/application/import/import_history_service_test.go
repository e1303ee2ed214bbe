package importapp

import (
	"context"
	"errors"
	"testing"

	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	csvimport "github.com/orgmap/backend/internal/infrastructure/import"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestImportHistoryService_CreateHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		repo.On("Save", ctx, mock.AnythingOfType("*bulk.ImportHistory")).Return(nil)

		history, err := service.CreateHistory(ctx, bulk.ImportEntityGrades, "grades.csv", 1024, "key-1")

		require.NoError(t, err)
		assert.Equal(t, bulk.ImportEntityGrades, history.EntityType)
		assert.Equal(t, "grades.csv", history.FileName)
		assert.Equal(t, "key-1", history.IdempotencyKey)
		assert.Equal(t, bulk.ImportStatusPending, history.Status)
		repo.AssertExpectations(t)
	})

	t.Run("invalid entity type", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		_, err := service.CreateHistory(ctx, bulk.ImportEntityType("products"), "grades.csv", 1024, "")

		require.Error(t, err)
		repo.AssertNotCalled(t, "Save")
	})

	t.Run("save failure is wrapped", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		repo.On("Save", ctx, mock.Anything).Return(errors.New("connection refused"))

		_, err := service.CreateHistory(ctx, bulk.ImportEntityGrades, "grades.csv", 10, "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save import history")
	})
}

func TestImportHistoryService_CompleteImport(t *testing.T) {
	ctx := context.Background()
	repo := new(MockImportHistoryRepository)
	service := NewImportHistoryService(repo)

	history := createTestHistory(bulk.ImportEntityJobRoleGrades)
	require.NoError(t, history.StartProcessing(3))

	repo.On("Save", ctx, history).Return(nil)

	rowErrors := []csvimport.RowError{
		{Row: 4, Column: csvimport.ColumnGrade, Code: csvimport.ErrCodeImportGradeParse, Message: "bad", Value: "MTx - MT9"},
	}
	dropped := []organization.DroppedRow{{Line: 3, JobRole: "Ghost", Notation: "MT5", Reason: organization.DropUnknownJobRole}}

	err := service.CompleteImport(ctx, history, bulk.ImportCounts{TotalRows: 3, InsertedRows: 2, ErrorRows: 1, DroppedRows: 1}, rowErrors, dropped)

	require.NoError(t, err)
	assert.Equal(t, bulk.ImportStatusCompleted, history.Status)
	require.Len(t, history.ErrorDetails, 1)
	assert.Equal(t, "MTx - MT9", history.ErrorDetails[0].Value)
	assert.Equal(t, dropped, history.DroppedDetails)
	repo.AssertExpectations(t)
}

func TestImportHistoryService_FailImport(t *testing.T) {
	ctx := context.Background()
	repo := new(MockImportHistoryRepository)
	service := NewImportHistoryService(repo)

	history := createTestHistory(bulk.ImportEntityGrades)
	repo.On("Save", ctx, history).Return(nil)

	err := service.FailImport(ctx, history, []csvimport.RowError{
		{Row: 0, Code: csvimport.ErrCodeImportMissingColumns, Message: "file missing required columns: Grade"},
	})

	require.NoError(t, err)
	assert.Equal(t, bulk.ImportStatusFailed, history.Status)
	assert.NotNil(t, history.CompletedAt)
	repo.AssertExpectations(t)
}

func TestImportHistoryService_ListHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("typed filters are passed through", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		entity := bulk.ImportEntityJobRoles
		status := bulk.ImportStatusCompleted
		expected := bulk.ImportHistoryFilter{EntityType: &entity, Status: &status}
		result := &bulk.ImportHistoryListResult{
			Items:      []*bulk.ImportHistory{createTestHistory(bulk.ImportEntityJobRoles)},
			TotalCount: 1,
			Page:       1,
			PageSize:   20,
		}
		repo.On("FindAll", ctx, expected, 1, 20).Return(result, nil)

		res, err := service.ListHistory(ctx, ListHistoryFilter{EntityType: "job-roles", Status: "completed"}, 1, 20)

		require.NoError(t, err)
		assert.Equal(t, int64(1), res.TotalCount)
		assert.Len(t, res.Items, 1)
		repo.AssertExpectations(t)
	})

	t.Run("unknown filter values are ignored", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		repo.On("FindAll", ctx, bulk.ImportHistoryFilter{}, 2, 10).
			Return(&bulk.ImportHistoryListResult{Page: 2, PageSize: 10}, nil)

		_, err := service.ListHistory(ctx, ListHistoryFilter{EntityType: "products", Status: "cancelled"}, 2, 10)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("sort options reach the repository", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		expected := bulk.ImportHistoryFilter{SortBy: "error_rows", SortOrder: "asc"}
		repo.On("FindAll", ctx, expected, 1, 20).
			Return(&bulk.ImportHistoryListResult{Page: 1, PageSize: 20}, nil)

		_, err := service.ListHistory(ctx, ListHistoryFilter{SortBy: "error_rows", SortOrder: "asc"}, 1, 20)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestImportHistoryService_GetErrorsCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		history := createTestHistory(bulk.ImportEntityGrades)
		_ = history.StartProcessing(3)
		_ = history.Complete(bulk.ImportCounts{TotalRows: 3, InsertedRows: 1, ErrorRows: 2}, []bulk.ImportErrorDetail{
			{Row: 2, Column: "Grade", Code: "ERR_IMPORT_GRADE_PARSE", Message: "non-numeric bound", Value: "MTx - MT9"},
			{Row: 3, Column: "Grade", Code: "ERR_IMPORT_GRADE_PARSE", Message: "too many bounds", Value: "MT1 - MT2 - MT3"},
		}, nil)

		repo.On("FindByID", ctx, history.ID).Return(history, nil)

		content, fileName, err := service.GetErrorsCSV(ctx, history.ID)

		require.NoError(t, err)
		assert.Contains(t, content, "Row,Column,Error Code,Error Message,Value\n")
		assert.Contains(t, content, "2,Grade,ERR_IMPORT_GRADE_PARSE,non-numeric bound,MTx - MT9\n")
		assert.Contains(t, fileName, "import_errors_grades_")
		repo.AssertExpectations(t)
	})

	t.Run("no errors to export", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		history := createTestHistory(bulk.ImportEntityGrades)
		repo.On("FindByID", ctx, history.ID).Return(history, nil)

		_, _, err := service.GetErrorsCSV(ctx, history.ID)

		assert.ErrorIs(t, err, ErrNoErrorsToExport)
	})

	t.Run("quotes values that need escaping", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		history := createTestHistory(bulk.ImportEntityGrades)
		_ = history.StartProcessing(1)
		_ = history.Complete(bulk.ImportCounts{TotalRows: 1, ErrorRows: 1}, []bulk.ImportErrorDetail{
			{Row: 1, Code: "ERR", Message: `Message with "quotes" and,comma`},
		}, nil)
		repo.On("FindByID", ctx, history.ID).Return(history, nil)

		content, _, err := service.GetErrorsCSV(ctx, history.ID)

		require.NoError(t, err)
		assert.Contains(t, content, `"Message with ""quotes"" and,comma"`)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockImportHistoryRepository)
		service := NewImportHistoryService(repo)

		history := createTestHistory(bulk.ImportEntityGrades)
		repo.On("FindByID", ctx, history.ID).Return(nil, shared.ErrNotFound)

		_, _, err := service.GetErrorsCSV(ctx, history.ID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func createTestHistory(entity bulk.ImportEntityType) *bulk.ImportHistory {
	history, _ := bulk.NewImportHistory(entity, "test.csv", 1024)
	return history
}

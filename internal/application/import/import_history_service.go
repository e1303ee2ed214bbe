// Package importapp loads uploaded catalog files into the organization store
// and records every upload in the import history.
package importapp

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	csvimport "github.com/orgmap/backend/internal/infrastructure/import"
)

// ErrNoErrorsToExport is returned by GetErrorsCSV for an upload without row errors
var ErrNoErrorsToExport = errors.New("no errors to export")

// ImportHistoryService manages import history tracking and retrieval
type ImportHistoryService struct {
	historyRepo bulk.ImportHistoryRepository
}

// NewImportHistoryService creates a new ImportHistoryService
func NewImportHistoryService(historyRepo bulk.ImportHistoryRepository) *ImportHistoryService {
	return &ImportHistoryService{
		historyRepo: historyRepo,
	}
}

// CreateHistory creates and stores a pending import history record
func (s *ImportHistoryService) CreateHistory(
	ctx context.Context,
	entityType bulk.ImportEntityType,
	fileName string,
	fileSize int64,
	idempotencyKey string,
) (*bulk.ImportHistory, error) {
	history, err := bulk.NewImportHistory(entityType, fileName, fileSize)
	if err != nil {
		return nil, err
	}
	history.IdempotencyKey = idempotencyKey

	if err := s.historyRepo.Save(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to save import history: %w", err)
	}
	return history, nil
}

// CompleteImport records the outcome of a processed upload
func (s *ImportHistoryService) CompleteImport(
	ctx context.Context,
	history *bulk.ImportHistory,
	counts bulk.ImportCounts,
	rowErrors []csvimport.RowError,
	dropped []organization.DroppedRow,
) error {
	if err := history.Complete(counts, toErrorDetails(rowErrors), dropped); err != nil {
		return err
	}
	return s.save(ctx, history)
}

// FailImport marks an upload as failed
func (s *ImportHistoryService) FailImport(
	ctx context.Context,
	history *bulk.ImportHistory,
	rowErrors []csvimport.RowError,
) error {
	if err := history.Fail(toErrorDetails(rowErrors)); err != nil {
		return err
	}
	return s.save(ctx, history)
}

// Save persists intermediate state such as the archive key
func (s *ImportHistoryService) Save(ctx context.Context, history *bulk.ImportHistory) error {
	return s.save(ctx, history)
}

func (s *ImportHistoryService) save(ctx context.Context, history *bulk.ImportHistory) error {
	if err := s.historyRepo.Save(ctx, history); err != nil {
		return fmt.Errorf("failed to save import history: %w", err)
	}
	return nil
}

// GetHistory retrieves a specific import history by ID
func (s *ImportHistoryService) GetHistory(ctx context.Context, historyID uuid.UUID) (*bulk.ImportHistory, error) {
	return s.historyRepo.FindByID(ctx, historyID)
}

// ListHistoryFilter defines the filter options for listing import histories.
// Unknown values are ignored.
type ListHistoryFilter struct {
	EntityType string
	Status     string
	SortBy     string
	SortOrder  string
}

// ListHistory retrieves import histories, newest first by default
func (s *ImportHistoryService) ListHistory(
	ctx context.Context,
	filter ListHistoryFilter,
	page, pageSize int,
) (*bulk.ImportHistoryListResult, error) {
	repoFilter := bulk.ImportHistoryFilter{
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	}

	if filter.EntityType != "" {
		if entityType, err := bulk.ParseImportEntityType(filter.EntityType); err == nil {
			repoFilter.EntityType = &entityType
		}
	}
	if filter.Status != "" {
		status := bulk.ImportStatus(filter.Status)
		if status.IsValid() {
			repoFilter.Status = &status
		}
	}

	return s.historyRepo.FindAll(ctx, repoFilter, page, pageSize)
}

// GetErrorsCSV renders the row errors of an upload as CSV. It returns the
// content and a download file name.
func (s *ImportHistoryService) GetErrorsCSV(ctx context.Context, historyID uuid.UUID) (string, string, error) {
	history, err := s.historyRepo.FindByID(ctx, historyID)
	if err != nil {
		return "", "", err
	}
	if len(history.ErrorDetails) == 0 {
		return "", "", ErrNoErrorsToExport
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Row", "Column", "Error Code", "Error Message", "Value"})
	for _, e := range history.ErrorDetails {
		_ = w.Write([]string{strconv.Itoa(e.Row), e.Column, e.Code, e.Message, e.Value})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("failed to render error report: %w", err)
	}

	fileName := fmt.Sprintf("import_errors_%s_%s.csv", history.EntityType, history.ID.String()[:8])
	return buf.String(), fileName, nil
}

func toErrorDetails(rowErrors []csvimport.RowError) []bulk.ImportErrorDetail {
	details := make([]bulk.ImportErrorDetail, len(rowErrors))
	for i, e := range rowErrors {
		details[i] = bulk.ImportErrorDetail{
			Row:     e.Row,
			Column:  e.Column,
			Code:    e.Code,
			Message: e.Message,
			Value:   e.Value,
		}
	}
	return details
}

package dto

import (
	"time"

	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/organization"
	csvimport "github.com/orgmap/backend/internal/infrastructure/import"
)

// UploadResponse represents the outcome of a catalog upload
// @Description Result of loading one catalog file
type UploadResponse struct {
	UploadID      string                    `json:"upload_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	EntityType    string                    `json:"entity_type" example:"grades"`
	Status        string                    `json:"status" example:"completed"`
	TotalRows     int                       `json:"total_rows" example:"3"`
	InsertedRows  int                       `json:"inserted_rows" example:"2"`
	SkippedRows   int                       `json:"skipped_rows" example:"1"`
	ErrorRows     int                       `json:"error_rows" example:"0"`
	DroppedRows   int                       `json:"dropped_rows" example:"0"`
	GradesCreated int                       `json:"grades_created,omitempty" example:"0"`
	Errors        []csvimport.RowError      `json:"errors,omitempty"`
	Dropped       []organization.DroppedRow `json:"dropped,omitempty"`
	IsTruncated   bool                      `json:"is_truncated,omitempty" example:"false"`
	TotalErrors   int                       `json:"total_errors,omitempty" example:"0"`
	ArchiveKey    string                    `json:"archive_key,omitempty"`
}

// NewUploadResponse converts an upload result to its response
func NewUploadResponse(r *importapp.UploadResult) UploadResponse {
	return UploadResponse{
		UploadID:      r.UploadID.String(),
		EntityType:    string(r.Entity),
		Status:        string(r.Status),
		TotalRows:     r.TotalRows,
		InsertedRows:  r.Inserted,
		SkippedRows:   r.Skipped,
		ErrorRows:     r.ErrorRows,
		DroppedRows:   r.DroppedRows,
		GradesCreated: r.GradesCreated,
		Errors:        r.Errors,
		Dropped:       r.Dropped,
		IsTruncated:   r.IsTruncated,
		TotalErrors:   r.TotalErrors,
		ArchiveKey:    r.ArchiveKey,
	}
}

// ImportHistoryListRequest represents the query for listing import histories
type ImportHistoryListRequest struct {
	EntityType string `form:"entity_type"`
	Status     string `form:"status"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy     string `form:"sort_by"`
	SortOrder  string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ImportHistoryResponse represents one recorded upload
// @Description Import history record
type ImportHistoryResponse struct {
	ID             string                    `json:"id"`
	EntityType     string                    `json:"entity_type" example:"job_role_grades"`
	FileName       string                    `json:"file_name" example:"mapping.csv"`
	FileSize       int64                     `json:"file_size" example:"2048"`
	Status         string                    `json:"status" example:"completed"`
	TotalRows      int                       `json:"total_rows"`
	InsertedRows   int                       `json:"inserted_rows"`
	SkippedRows    int                       `json:"skipped_rows"`
	ErrorRows      int                       `json:"error_rows"`
	DroppedRows    int                       `json:"dropped_rows"`
	ErrorDetails   []bulk.ImportErrorDetail  `json:"error_details,omitempty"`
	DroppedDetails []organization.DroppedRow `json:"dropped_details,omitempty"`
	ArchiveKey     string                    `json:"archive_key,omitempty"`
	StartedAt      *time.Time                `json:"started_at,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	DurationMs     int64                     `json:"duration_ms"`
}

// NewImportHistoryResponse converts an import history to its response
func NewImportHistoryResponse(h *bulk.ImportHistory) ImportHistoryResponse {
	return ImportHistoryResponse{
		ID:             h.ID.String(),
		EntityType:     string(h.EntityType),
		FileName:       h.FileName,
		FileSize:       h.FileSize,
		Status:         string(h.Status),
		TotalRows:      h.TotalRows,
		InsertedRows:   h.InsertedRows,
		SkippedRows:    h.SkippedRows,
		ErrorRows:      h.ErrorRows,
		DroppedRows:    h.DroppedRows,
		ErrorDetails:   h.ErrorDetails,
		DroppedDetails: h.DroppedDetails,
		ArchiveKey:     h.ArchiveKey,
		StartedAt:      h.StartedAt,
		CompletedAt:    h.CompletedAt,
		CreatedAt:      h.CreatedAt,
		DurationMs:     h.Duration().Milliseconds(),
	}
}

// ImportHistoryListResponse is a page of import histories
type ImportHistoryListResponse struct {
	Items      []ImportHistoryResponse `json:"items"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
}

// NewImportHistoryListResponse converts a page of histories to its response
func NewImportHistoryListResponse(result *bulk.ImportHistoryListResult) ImportHistoryListResponse {
	items := make([]ImportHistoryResponse, len(result.Items))
	for i, h := range result.Items {
		items[i] = NewImportHistoryResponse(h)
	}
	return ImportHistoryListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Page:       result.Page,
		PageSize:   result.PageSize,
	}
}

// CatalogEntryResponse is one row of a catalog
type CatalogEntryResponse struct {
	ID        int64     `json:"id" example:"7"`
	Name      string    `json:"name" example:"MT5"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCatalogEntryResponses converts catalog rows to responses
func NewCatalogEntryResponses(rows []organization.NamedEntity) []CatalogEntryResponse {
	out := make([]CatalogEntryResponse, len(rows))
	for i, r := range rows {
		out[i] = CatalogEntryResponse{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
	}
	return out
}

// ExpandGradeRequest is the query for a grade notation preview
type ExpandGradeRequest struct {
	Notation string `form:"notation"`
}

// ExpandGradeResponse lists the grades a notation denotes
type ExpandGradeResponse struct {
	Notation string   `json:"notation" example:"MT5 - MT7"`
	Grades   []string `json:"grades" example:"MT5,MT6,MT7"`
}

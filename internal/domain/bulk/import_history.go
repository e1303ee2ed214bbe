// Package bulk tracks catalog file uploads and their outcome.
package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
)

// ImportEntityType is the catalog an upload targets
type ImportEntityType string

const (
	ImportEntityBusinessUnits ImportEntityType = "sbu"
	ImportEntityJobRoles      ImportEntityType = "job_roles"
	ImportEntityGrades        ImportEntityType = "grades"
	ImportEntityJobRoleGrades ImportEntityType = "job_role_grades"
)

// IsValid checks if the entity type is valid
func (e ImportEntityType) IsValid() bool {
	switch e {
	case ImportEntityBusinessUnits, ImportEntityJobRoles, ImportEntityGrades, ImportEntityJobRoleGrades:
		return true
	}
	return false
}

// ParseImportEntityType accepts both the canonical names and the
// singular/hyphenated spellings used by the CLI
func ParseImportEntityType(s string) (ImportEntityType, error) {
	switch s {
	case "sbu", "sbus":
		return ImportEntityBusinessUnits, nil
	case "job_roles", "job-roles", "job_role", "job-role":
		return ImportEntityJobRoles, nil
	case "grades", "grade":
		return ImportEntityGrades, nil
	case "job_role_grades", "job-role-grades", "job_role_grade", "job-role-grade":
		return ImportEntityJobRoleGrades, nil
	}
	return "", shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Invalid entity type: %s", s))
}

// ImportStatus represents the status of an import operation
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusCompleted, ImportStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

// ImportErrorDetail is an error attached to a specific row (0 for file-level errors)
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportCounts summarises what an upload did to the store
type ImportCounts struct {
	TotalRows    int
	InsertedRows int
	SkippedRows  int
	ErrorRows    int
	DroppedRows  int
}

// ImportHistory records a single catalog upload
type ImportHistory struct {
	shared.BaseEntity
	EntityType     ImportEntityType          `json:"entity_type"`
	FileName       string                    `json:"file_name"`
	FileSize       int64                     `json:"file_size"`
	TotalRows      int                       `json:"total_rows"`
	InsertedRows   int                       `json:"inserted_rows"`
	SkippedRows    int                       `json:"skipped_rows"`
	ErrorRows      int                       `json:"error_rows"`
	DroppedRows    int                       `json:"dropped_rows"`
	Status         ImportStatus              `json:"status"`
	ErrorDetails   []ImportErrorDetail       `json:"error_details,omitempty"`
	DroppedDetails []organization.DroppedRow `json:"dropped_details,omitempty"`
	ArchiveKey     string                    `json:"archive_key,omitempty"`
	IdempotencyKey string                    `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time                `json:"started_at,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
}

// NewImportHistory creates a pending import history record
func NewImportHistory(entityType ImportEntityType, fileName string, fileSize int64) (*ImportHistory, error) {
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Invalid entity type: %s", entityType))
	}
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}

	return &ImportHistory{
		BaseEntity:   shared.NewBaseEntity(),
		EntityType:   entityType,
		FileName:     fileName,
		FileSize:     fileSize,
		Status:       ImportStatusPending,
		ErrorDetails: make([]ImportErrorDetail, 0),
	}, nil
}

// StartProcessing marks the import as started once the file has been parsed
func (h *ImportHistory) StartProcessing(totalRows int) error {
	if h.Status != ImportStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", h.Status))
	}
	if totalRows < 0 {
		return shared.NewDomainError("INVALID_TOTAL_ROWS", "Total rows cannot be negative")
	}

	now := time.Now()
	h.Status = ImportStatusProcessing
	h.TotalRows = totalRows
	h.StartedAt = &now
	h.UpdatedAt = now
	return nil
}

// Complete records the outcome of a processed upload. An upload in which every
// row failed and nothing was written is marked failed.
func (h *ImportHistory) Complete(counts ImportCounts, errs []ImportErrorDetail, dropped []organization.DroppedRow) error {
	if h.Status != ImportStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", h.Status))
	}

	status := ImportStatusCompleted
	if counts.ErrorRows > 0 && counts.InsertedRows == 0 && counts.SkippedRows == 0 {
		status = ImportStatusFailed
	}

	now := time.Now()
	h.Status = status
	h.InsertedRows = counts.InsertedRows
	h.SkippedRows = counts.SkippedRows
	h.ErrorRows = counts.ErrorRows
	h.DroppedRows = counts.DroppedRows
	h.ErrorDetails = errs
	h.DroppedDetails = dropped
	h.CompletedAt = &now
	h.UpdatedAt = now
	return nil
}

// Fail marks the import as failed
func (h *ImportHistory) Fail(errs []ImportErrorDetail) error {
	if h.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", h.Status))
	}

	now := time.Now()
	h.Status = ImportStatusFailed
	h.ErrorDetails = errs
	h.CompletedAt = &now
	h.UpdatedAt = now
	return nil
}

// SetArchiveKey records where the raw file was archived
func (h *ImportHistory) SetArchiveKey(key string) {
	h.ArchiveKey = key
	h.Touch()
}

// HasErrors returns true if there are any errors
func (h *ImportHistory) HasErrors() bool {
	return len(h.ErrorDetails) > 0
}

// ErrorDetailsJSON returns the error details as a JSON string
func (h *ImportHistory) ErrorDetailsJSON() (string, error) {
	return marshalDetails(h.ErrorDetails)
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (h *ImportHistory) SetErrorDetailsFromJSON(jsonStr string) error {
	h.ErrorDetails = make([]ImportErrorDetail, 0)
	return unmarshalDetails(jsonStr, &h.ErrorDetails)
}

// DroppedDetailsJSON returns the dropped rows as a JSON string
func (h *ImportHistory) DroppedDetailsJSON() (string, error) {
	return marshalDetails(h.DroppedDetails)
}

// SetDroppedDetailsFromJSON parses dropped rows from a JSON string
func (h *ImportHistory) SetDroppedDetailsFromJSON(jsonStr string) error {
	h.DroppedDetails = make([]organization.DroppedRow, 0)
	return unmarshalDetails(jsonStr, &h.DroppedDetails)
}

// Duration returns the duration of the import operation
func (h *ImportHistory) Duration() time.Duration {
	if h.StartedAt == nil {
		return 0
	}
	if h.CompletedAt == nil {
		return time.Since(*h.StartedAt)
	}
	return h.CompletedAt.Sub(*h.StartedAt)
}

func marshalDetails[T any](details []T) (string, error) {
	if len(details) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to marshal details: %w", err)
	}
	return string(data), nil
}

func unmarshalDetails[T any](jsonStr string, out *[]T) error {
	if jsonStr == "" || jsonStr == "[]" {
		return nil
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("failed to unmarshal details: %w", err)
	}
	return nil
}

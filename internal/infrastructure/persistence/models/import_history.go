package models

import (
	"time"

	"github.com/orgmap/backend/internal/domain/bulk"
)

// ImportHistoryModel is the persistence model for the ImportHistory domain entity.
type ImportHistoryModel struct {
	BaseModel
	EntityType     bulk.ImportEntityType `gorm:"type:varchar(32);not null;index"`
	FileName       string                `gorm:"type:varchar(255);not null"`
	FileSize       int64                 `gorm:"not null;default:0"`
	TotalRows      int                   `gorm:"not null;default:0"`
	InsertedRows   int                   `gorm:"not null;default:0"`
	SkippedRows    int                   `gorm:"not null;default:0"`
	ErrorRows      int                   `gorm:"not null;default:0"`
	DroppedRows    int                   `gorm:"not null;default:0"`
	Status         bulk.ImportStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	ErrorDetails   string                `gorm:"type:jsonb;default:'[]'"`
	DroppedDetails string                `gorm:"type:jsonb;default:'[]'"`
	ArchiveKey     string                `gorm:"type:varchar(512)"`
	IdempotencyKey string                `gorm:"type:varchar(255);index"`
	StartedAt      *time.Time            `gorm:"type:timestamptz"`
	CompletedAt    *time.Time            `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_histories"
}

// ToDomain converts the persistence model to a domain ImportHistory entity.
func (m *ImportHistoryModel) ToDomain() *bulk.ImportHistory {
	history := &bulk.ImportHistory{
		BaseEntity:     m.BaseModel.ToDomain(),
		EntityType:     m.EntityType,
		FileName:       m.FileName,
		FileSize:       m.FileSize,
		TotalRows:      m.TotalRows,
		InsertedRows:   m.InsertedRows,
		SkippedRows:    m.SkippedRows,
		ErrorRows:      m.ErrorRows,
		DroppedRows:    m.DroppedRows,
		Status:         m.Status,
		ArchiveKey:     m.ArchiveKey,
		IdempotencyKey: m.IdempotencyKey,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}

	// Stored details are written by FromDomain; unreadable ones are left empty
	_ = history.SetErrorDetailsFromJSON(m.ErrorDetails)
	_ = history.SetDroppedDetailsFromJSON(m.DroppedDetails)

	return history
}

// FromDomain populates the persistence model from a domain ImportHistory entity.
func (m *ImportHistoryModel) FromDomain(h *bulk.ImportHistory) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.EntityType = h.EntityType
	m.FileName = h.FileName
	m.FileSize = h.FileSize
	m.TotalRows = h.TotalRows
	m.InsertedRows = h.InsertedRows
	m.SkippedRows = h.SkippedRows
	m.ErrorRows = h.ErrorRows
	m.DroppedRows = h.DroppedRows
	m.Status = h.Status
	m.ArchiveKey = h.ArchiveKey
	m.IdempotencyKey = h.IdempotencyKey
	m.StartedAt = h.StartedAt
	m.CompletedAt = h.CompletedAt

	if errorJSON, err := h.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}
	if droppedJSON, err := h.DroppedDetailsJSON(); err == nil {
		m.DroppedDetails = droppedJSON
	} else {
		m.DroppedDetails = "[]"
	}
}

// ImportHistoryModelFromDomain creates a new persistence model from a domain ImportHistory entity.
func ImportHistoryModelFromDomain(h *bulk.ImportHistory) *ImportHistoryModel {
	m := &ImportHistoryModel{}
	m.FromDomain(h)
	return m
}

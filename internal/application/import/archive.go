package importapp

import (
	"context"

	"github.com/google/uuid"
	"github.com/orgmap/backend/internal/domain/bulk"
)

// ArchiveObject is a raw upload kept for later inspection
type ArchiveObject struct {
	UploadID    uuid.UUID
	Entity      bulk.ImportEntityType
	FileName    string
	ContentType string
	Data        []byte
}

// UploadArchive stores raw upload files before they are processed.
// Archive returns the key the file was stored under, or "" if nothing was kept.
type UploadArchive interface {
	Archive(ctx context.Context, obj ArchiveObject) (string, error)
}

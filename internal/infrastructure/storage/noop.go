package storage

import (
	"context"

	importapp "github.com/orgmap/backend/internal/application/import"
)

// NoopArchive discards uploads. It is used when storage is disabled.
type NoopArchive struct{}

var _ importapp.UploadArchive = NoopArchive{}

// Archive keeps nothing and returns an empty key
func (NoopArchive) Archive(context.Context, importapp.ArchiveObject) (string, error) {
	return "", nil
}

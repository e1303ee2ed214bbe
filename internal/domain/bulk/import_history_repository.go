package bulk

import (
	"context"

	"github.com/google/uuid"
)

// ImportHistoryFilter defines the filters for querying import histories
type ImportHistoryFilter struct {
	EntityType *ImportEntityType
	Status     *ImportStatus
	SortBy     string // column name; unknown columns fall back to created_at
	SortOrder  string // asc or desc, default desc
}

// ImportHistoryListResult represents a paginated list of import histories
type ImportHistoryListResult struct {
	Items      []*ImportHistory
	TotalCount int64
	Page       int
	PageSize   int
}

// ImportHistoryRepository defines the interface for import history persistence
type ImportHistoryRepository interface {
	// FindByID finds an import history by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportHistory, error)

	// FindAll returns import histories, newest first unless filter says otherwise
	FindAll(ctx context.Context, filter ImportHistoryFilter, page, pageSize int) (*ImportHistoryListResult, error)

	// Save saves an import history (create or update)
	Save(ctx context.Context, history *ImportHistory) error
}

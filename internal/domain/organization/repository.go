package organization

import (
	"context"
	"time"
)

// Repository is the store surface used while loading catalogs.
// All reads within one upload must go through the same Repository so they
// observe the same session.
type Repository interface {
	// ExistingNames returns every name currently stored in the catalog
	ExistingNames(ctx context.Context, catalog Catalog) (NameSet, error)

	// IDIndex returns a name to id index of the catalog
	IDIndex(ctx context.Context, catalog Catalog) (NameIndex, error)

	// InsertNames appends one row per name, stamped with createdAt. Names that
	// were stored concurrently are skipped; the count of new rows is returned.
	InsertNames(ctx context.Context, catalog Catalog, names []string, createdAt time.Time) (int64, error)

	// InsertAssociations appends job-role/grade pairs, silently skipping pairs
	// that already exist. It returns the number of rows actually inserted.
	InsertAssociations(ctx context.Context, pairs []Association, createdAt time.Time) (int64, error)
}

// CatalogReader serves read-only catalog queries
type CatalogReader interface {
	// List returns the catalog rows ordered by id
	List(ctx context.Context, catalog Catalog) ([]NamedEntity, error)

	// GradesForJobRole returns the grades mapped to a job role
	GradesForJobRole(ctx context.Context, jobRoleID int64) ([]Grade, error)
}

// UnitOfWork runs fn against a store session that is committed when fn returns
// nil and rolled back otherwise. The session is always released.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

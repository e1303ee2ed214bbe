package importapp

import (
	"context"

	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
)

// CatalogQueryService serves read-only views of the loaded catalogs
type CatalogQueryService struct {
	reader   organization.CatalogReader
	expander organization.GradeExpander
}

// NewCatalogQueryService creates a new CatalogQueryService
func NewCatalogQueryService(reader organization.CatalogReader, gradeCeiling int) *CatalogQueryService {
	return &CatalogQueryService{
		reader:   reader,
		expander: organization.NewGradeExpander(gradeCeiling),
	}
}

// List returns every row of catalog
func (s *CatalogQueryService) List(ctx context.Context, catalog organization.Catalog) ([]organization.NamedEntity, error) {
	if !catalog.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATALOG", "Unknown catalog: "+string(catalog))
	}
	return s.reader.List(ctx, catalog)
}

// GradesForJobRole returns the grades a job role is mapped to
func (s *CatalogQueryService) GradesForJobRole(ctx context.Context, jobRoleID int64) ([]organization.Grade, error) {
	if jobRoleID <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.reader.GradesForJobRole(ctx, jobRoleID)
}

// ExpandResult is the outcome of expanding one grade notation
type ExpandResult struct {
	Notation string   `json:"notation"`
	Grades   []string `json:"grades"`
}

// Expand previews the grades a notation denotes without touching the store.
// Grades are returned in rank order.
func (s *CatalogQueryService) Expand(notation string) (*ExpandResult, error) {
	grades, err := s.expander.Expand(notation)
	if err != nil {
		return nil, err
	}
	organization.SortGrades(grades)
	return &ExpandResult{Notation: notation, Grades: grades}, nil
}

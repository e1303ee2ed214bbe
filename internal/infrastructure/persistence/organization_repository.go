package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/orgmap/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertBatchSize bounds the number of rows per INSERT statement
const insertBatchSize = 500

// GormOrganizationRepository implements organization.Repository and
// organization.CatalogReader using GORM. When built on a transaction handle
// every call joins that transaction.
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// ExistingNames returns every name stored in the catalog
func (r *GormOrganizationRepository) ExistingNames(ctx context.Context, catalog organization.Catalog) (organization.NameSet, error) {
	table, err := tableFor(catalog)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := r.db.WithContext(ctx).Table(table).Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("fetch %s names: %w", table, err)
	}
	return organization.NewNameSet(names...), nil
}

// IDIndex returns a name to id index of the catalog
func (r *GormOrganizationRepository) IDIndex(ctx context.Context, catalog organization.Catalog) (organization.NameIndex, error) {
	table, err := tableFor(catalog)
	if err != nil {
		return nil, err
	}

	var rows []models.NamedModel
	if err := r.db.WithContext(ctx).Table(table).Select("id", "name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch %s index: %w", table, err)
	}

	index := make(organization.NameIndex, len(rows))
	for _, row := range rows {
		index[row.Name] = row.ID
	}
	return index, nil
}

// InsertNames inserts one row per name. Names stored by a concurrent upload
// are skipped through ON CONFLICT (name) DO NOTHING.
func (r *GormOrganizationRepository) InsertNames(ctx context.Context, catalog organization.Catalog, names []string, createdAt time.Time) (int64, error) {
	table, err := tableFor(catalog)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	rows := make([]models.NamedModel, len(names))
	for i, name := range names {
		rows[i] = models.NamedModel{Name: name, CreatedAt: createdAt}
	}

	result := r.db.WithContext(ctx).
		Table(table).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		CreateInBatches(&rows, insertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("insert %s names: %w", table, result.Error)
	}
	return result.RowsAffected, nil
}

// InsertAssociations inserts job-role/grade pairs, skipping pairs already stored
func (r *GormOrganizationRepository) InsertAssociations(ctx context.Context, pairs []organization.Association, createdAt time.Time) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	rows := make([]models.JobRoleGradeModel, len(pairs))
	for i, p := range pairs {
		rows[i] = models.JobRoleGradeModel{JobRoleID: p.JobRoleID, GradeID: p.GradeID, CreatedAt: createdAt}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_role_id"}, {Name: "grade_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&rows, insertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("insert job_role_grade pairs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// List returns the catalog rows ordered by id
func (r *GormOrganizationRepository) List(ctx context.Context, catalog organization.Catalog) ([]organization.NamedEntity, error) {
	table, err := tableFor(catalog)
	if err != nil {
		return nil, err
	}

	var rows []models.NamedModel
	if err := r.db.WithContext(ctx).Table(table).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}

	out := make([]organization.NamedEntity, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GradesForJobRole returns the grades mapped to a job role, ordered by grade id.
// It returns shared.ErrNotFound when the job role does not exist.
func (r *GormOrganizationRepository) GradesForJobRole(ctx context.Context, jobRoleID int64) ([]organization.Grade, error) {
	var role models.JobRoleModel
	if err := r.db.WithContext(ctx).Select("id").First(&role, jobRoleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find job role %d: %w", jobRoleID, err)
	}

	var rows []models.NamedModel
	if err := r.db.WithContext(ctx).
		Table("grade").
		Select("grade.id, grade.name, grade.created_at").
		Joins("JOIN job_role_grade ON job_role_grade.grade_id = grade.id").
		Where("job_role_grade.job_role_id = ?", jobRoleID).
		Order("grade.id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list grades of job role %d: %w", jobRoleID, err)
	}

	out := make([]organization.Grade, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func tableFor(catalog organization.Catalog) (string, error) {
	if !catalog.IsValid() {
		return "", shared.NewDomainError("INVALID_CATALOG", fmt.Sprintf("unknown catalog: %s", catalog))
	}
	return catalog.TableName(), nil
}

// GormUnitOfWork runs work inside a database transaction
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do begins a transaction, hands fn a repository bound to it, and commits
// when fn returns nil. Any error or panic rolls the transaction back.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repo organization.Repository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormOrganizationRepository(tx))
	})
}

// Compile-time interface compliance checks
var (
	_ organization.Repository    = (*GormOrganizationRepository)(nil)
	_ organization.CatalogReader = (*GormOrganizationRepository)(nil)
	_ organization.UnitOfWork    = (*GormUnitOfWork)(nil)
)

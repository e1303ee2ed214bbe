package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupOrganizationTestDB creates an in-memory SQLite database with the catalog tables
func setupOrganizationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every statement on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, table := range []string{"sbu", "job_role", "grade"} {
		err = db.Exec(`
			CREATE TABLE ` + table + ` (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				created_at DATETIME NOT NULL
			)
		`).Error
		require.NoError(t, err)
	}

	err = db.Exec(`
		CREATE TABLE job_role_grade (
			job_role_id INTEGER NOT NULL REFERENCES job_role(id),
			grade_id INTEGER NOT NULL REFERENCES grade(id),
			created_at DATETIME NOT NULL,
			PRIMARY KEY (job_role_id, grade_id)
		)
	`).Error
	require.NoError(t, err)

	return db
}

func TestGormOrganizationRepository_InsertAndReadNames(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()
	now := time.Now()

	inserted, err := repo.InsertNames(ctx, organization.CatalogGrades, []string{"MT1", "MT2", "MT3"}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	names, err := repo.ExistingNames(ctx, organization.CatalogGrades)
	require.NoError(t, err)
	assert.Equal(t, []string{"MT1", "MT2", "MT3"}, names.Sorted())

	index, err := repo.IDIndex(ctx, organization.CatalogGrades)
	require.NoError(t, err)
	assert.Len(t, index, 3)
	_, ok := index.Lookup("MT2")
	assert.True(t, ok)

	t.Run("catalogs are isolated", func(t *testing.T) {
		names, err := repo.ExistingNames(ctx, organization.CatalogJobRoles)
		require.NoError(t, err)
		assert.Equal(t, 0, names.Len())
	})

	t.Run("names already stored are skipped", func(t *testing.T) {
		inserted, err := repo.InsertNames(ctx, organization.CatalogGrades, []string{"MT3", "MT4"}, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inserted)

		names, err := repo.ExistingNames(ctx, organization.CatalogGrades)
		require.NoError(t, err)
		assert.Equal(t, 4, names.Len())
	})

	t.Run("empty insert is a no-op", func(t *testing.T) {
		inserted, err := repo.InsertNames(ctx, organization.CatalogGrades, nil, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), inserted)
	})

	t.Run("unknown catalog is rejected", func(t *testing.T) {
		_, err := repo.ExistingNames(ctx, organization.Catalog("employees"))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "INVALID_CATALOG", domainErr.Code)
	})
}

func TestGormOrganizationRepository_List(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()

	_, err := repo.InsertNames(ctx, organization.CatalogBusinessUnits, []string{"Retail", "Banking"}, time.Now())
	require.NoError(t, err)

	units, err := repo.List(ctx, organization.CatalogBusinessUnits)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "Retail", units[0].Name)
	assert.Equal(t, "Banking", units[1].Name)
	assert.Less(t, units[0].ID, units[1].ID)
	assert.False(t, units[0].CreatedAt.IsZero())
}

func TestGormOrganizationRepository_InsertAssociations(t *testing.T) {
	db := setupOrganizationTestDB(t)
	repo := NewGormOrganizationRepository(db)
	ctx := context.Background()
	now := time.Now()

	_, err := repo.InsertNames(ctx, organization.CatalogJobRoles, []string{"Engineer", "Analyst"}, now)
	require.NoError(t, err)
	_, err = repo.InsertNames(ctx, organization.CatalogGrades, []string{"MT5", "MT6"}, now)
	require.NoError(t, err)

	roles, err := repo.IDIndex(ctx, organization.CatalogJobRoles)
	require.NoError(t, err)
	grades, err := repo.IDIndex(ctx, organization.CatalogGrades)
	require.NoError(t, err)

	engineer := roles["Engineer"]
	pairs := []organization.Association{
		{JobRoleID: engineer, GradeID: grades["MT5"]},
		{JobRoleID: engineer, GradeID: grades["MT6"]},
	}

	inserted, err := repo.InsertAssociations(ctx, pairs, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	t.Run("existing pairs are skipped", func(t *testing.T) {
		again := append(pairs, organization.Association{JobRoleID: roles["Analyst"], GradeID: grades["MT5"]})
		inserted, err := repo.InsertAssociations(ctx, again, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inserted)

		var count int64
		require.NoError(t, db.Table("job_role_grade").Count(&count).Error)
		assert.Equal(t, int64(3), count)
	})

	t.Run("grades for job role", func(t *testing.T) {
		mapped, err := repo.GradesForJobRole(ctx, engineer)
		require.NoError(t, err)
		require.Len(t, mapped, 2)
		assert.Equal(t, "MT5", mapped[0].Name)
		assert.Equal(t, "MT6", mapped[1].Name)
	})

	t.Run("grades for unknown job role", func(t *testing.T) {
		_, err := repo.GradesForJobRole(ctx, 9999)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty pair list is a no-op", func(t *testing.T) {
		inserted, err := repo.InsertAssociations(ctx, nil, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), inserted)
	})
}

func TestGormUnitOfWork_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when work succeeds", func(t *testing.T) {
		db := setupOrganizationTestDB(t)
		uow := NewGormUnitOfWork(db)

		err := uow.Do(ctx, func(ctx context.Context, repo organization.Repository) error {
			_, err := repo.InsertNames(ctx, organization.CatalogGrades, []string{"MT1"}, time.Now())
			return err
		})
		require.NoError(t, err)

		names, err := NewGormOrganizationRepository(db).ExistingNames(ctx, organization.CatalogGrades)
		require.NoError(t, err)
		assert.True(t, names.Has("MT1"))
	})

	t.Run("rolls back when work fails", func(t *testing.T) {
		db := setupOrganizationTestDB(t)
		uow := NewGormUnitOfWork(db)
		boom := errors.New("boom")

		err := uow.Do(ctx, func(ctx context.Context, repo organization.Repository) error {
			if _, err := repo.InsertNames(ctx, organization.CatalogGrades, []string{"MT1"}, time.Now()); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		names, err := NewGormOrganizationRepository(db).ExistingNames(ctx, organization.CatalogGrades)
		require.NoError(t, err)
		assert.Equal(t, 0, names.Len())
	})

	t.Run("reads inside the unit see its own writes", func(t *testing.T) {
		db := setupOrganizationTestDB(t)
		uow := NewGormUnitOfWork(db)

		err := uow.Do(ctx, func(ctx context.Context, repo organization.Repository) error {
			if _, err := repo.InsertNames(ctx, organization.CatalogGrades, []string{"MT7"}, time.Now()); err != nil {
				return err
			}
			index, err := repo.IDIndex(ctx, organization.CatalogGrades)
			if err != nil {
				return err
			}
			if _, ok := index.Lookup("MT7"); !ok {
				return errors.New("MT7 not visible")
			}
			return nil
		})
		require.NoError(t, err)
	})
}

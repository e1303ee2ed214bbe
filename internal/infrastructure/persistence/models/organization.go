package models

import (
	"time"

	"github.com/orgmap/backend/internal/domain/organization"
)

// NamedModel is the row shape shared by the sbu, job_role and grade tables.
// The table is chosen per query from organization.Catalog.
type NamedModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

// ToDomain converts the persistence model to a catalog row
func (m *NamedModel) ToDomain() organization.NamedEntity {
	return organization.NamedEntity{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

// BusinessUnitModel maps the sbu table
type BusinessUnitModel struct {
	NamedModel
}

// TableName returns the table name for GORM
func (BusinessUnitModel) TableName() string {
	return organization.CatalogBusinessUnits.TableName()
}

// JobRoleModel maps the job_role table
type JobRoleModel struct {
	NamedModel
}

// TableName returns the table name for GORM
func (JobRoleModel) TableName() string {
	return organization.CatalogJobRoles.TableName()
}

// GradeModel maps the grade table
type GradeModel struct {
	NamedModel
}

// TableName returns the table name for GORM
func (GradeModel) TableName() string {
	return organization.CatalogGrades.TableName()
}

// JobRoleGradeModel is a job-role-to-grade association. The pair is the key.
type JobRoleGradeModel struct {
	JobRoleID int64     `gorm:"primaryKey;autoIncrement:false"`
	GradeID   int64     `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JobRoleGradeModel) TableName() string {
	return "job_role_grade"
}

// ToDomain converts the persistence model to a domain association
func (m *JobRoleGradeModel) ToDomain() organization.JobRoleGrade {
	return organization.JobRoleGrade{
		Association: organization.Association{JobRoleID: m.JobRoleID, GradeID: m.GradeID},
		CreatedAt:   m.CreatedAt,
	}
}

// CatalogModels returns every organization model, in foreign-key order
func CatalogModels() []any {
	return []any{
		&BusinessUnitModel{},
		&JobRoleModel{},
		&GradeModel{},
		&JobRoleGradeModel{},
	}
}

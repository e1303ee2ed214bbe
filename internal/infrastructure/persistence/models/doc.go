// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel for UUID-keyed rows
//   - organization.go: catalog tables (sbu, job_role, grade) and job_role_grade
//   - import_history.go: upload audit records
package models

// Package organization holds the organization catalog (business units, job roles,
// grades and the job-role-to-grade mapping) together with the grade notation
// expansion and reconciliation rules applied when catalogs are loaded.
package organization

import (
	"sort"
	"strings"
	"time"
)

// Catalog identifies one of the named-entity tables
type Catalog string

const (
	CatalogBusinessUnits Catalog = "sbu"
	CatalogJobRoles      Catalog = "job_role"
	CatalogGrades        Catalog = "grade"
)

// IsValid checks if the catalog is known
func (c Catalog) IsValid() bool {
	switch c {
	case CatalogBusinessUnits, CatalogJobRoles, CatalogGrades:
		return true
	}
	return false
}

// TableName returns the relational table backing the catalog
func (c Catalog) TableName() string {
	return string(c)
}

// NamedEntity is a row of one of the catalogs: a unique name plus surrogate id
type NamedEntity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BusinessUnit is a strategic business unit
type BusinessUnit = NamedEntity

// JobRole is a job role
type JobRole = NamedEntity

// Grade is an atomic pay grade such as "MT7"
type Grade = NamedEntity

// Association links a job role to a grade it maps to
type Association struct {
	JobRoleID int64 `json:"job_role_id"`
	GradeID   int64 `json:"grade_id"`
}

// JobRoleGrade is a persisted association
type JobRoleGrade struct {
	Association
	CreatedAt time.Time `json:"created_at"`
}

// NameIndex maps a catalog name to its surrogate id
type NameIndex map[string]int64

// Lookup returns the id for name
func (ix NameIndex) Lookup(name string) (int64, bool) {
	id, ok := ix[name]
	return id, ok
}

// NameSet is a set of catalog names
type NameSet map[string]struct{}

// NewNameSet creates a set holding names
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	s.Add(names...)
	return s
}

// Add inserts names into the set
func (s NameSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Has reports whether name is in the set
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names
func (s NameSet) Len() int {
	return len(s)
}

// Difference returns the names in s that are not in other
func (s NameSet) Difference(other NameSet) NameSet {
	out := make(NameSet)
	for n := range s {
		if !other.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Sorted returns the names in lexical order
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CleanName trims a raw catalog cell
func CleanName(raw string) string {
	return strings.TrimSpace(raw)
}

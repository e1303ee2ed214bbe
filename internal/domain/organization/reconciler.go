package organization

// DropReason explains why a mapping row did not yield an association
type DropReason string

const (
	DropUnknownJobRole DropReason = "unknown_job_role"
	DropUnknownGrade   DropReason = "unknown_grade"
	DropUnparsedGrade  DropReason = "unparsed_grade"
)

// GradeRow is one grade notation taken from an uploaded file
type GradeRow struct {
	Line     int
	Notation string
}

// MappingRow is one job-role/grade pair taken from an uploaded file
type MappingRow struct {
	Line     int
	JobRole  string
	Notation string
}

// RowFailure is a row that could not be expanded and was skipped
type RowFailure struct {
	Line  int
	Error *GradeParseError
}

// DroppedRow is a mapping row (or one expanded grade of it) that produced no pair
type DroppedRow struct {
	Line     int        `json:"line"`
	JobRole  string     `json:"job_role"`
	Notation string     `json:"grade"`
	Grade    string     `json:"expanded_grade,omitempty"`
	Reason   DropReason `json:"reason"`
}

// GradePlan is the write-set for a grade upload
type GradePlan struct {
	// Candidates is the union of every successfully expanded row
	Candidates NameSet
	// New holds candidates not yet persisted
	New NameSet
	// Excluded counts rows that expand to no grade at all (sentinels)
	Excluded int
	// Contributing counts rows that are the first to name one of the New grades
	Contributing int
	Failures     []RowFailure
}

// AssociationPlan is the write-set for a job-role/grade mapping upload
type AssociationPlan struct {
	Pairs []Association
	// Duplicates counts pairs produced more than once within the upload
	Duplicates int
	Excluded   int
	// Resolved counts rows that yielded at least one pair
	Resolved int
	Dropped  []DroppedRow
	Failures []RowFailure
}

// DroppedCount returns how many row/grade combinations were dropped
func (p *AssociationPlan) DroppedCount() int {
	return len(p.Dropped)
}

// Reconciler computes minimal write-sets from uploaded rows against a snapshot
// of persisted names. It never touches the store itself.
type Reconciler struct {
	expander GradeExpander
}

// NewReconciler creates a Reconciler using expander for grade notations
func NewReconciler(expander GradeExpander) Reconciler {
	return Reconciler{expander: expander}
}

// Expander returns the grade expander in use
func (r Reconciler) Expander() GradeExpander {
	return r.expander
}

// NewNames returns the distinct non-blank candidates that are not in existing
func (r Reconciler) NewNames(existing NameSet, candidates []string) NameSet {
	set := NewNameSet()
	for _, c := range candidates {
		if name := CleanName(c); name != "" {
			set.Add(name)
		}
	}
	return set.Difference(existing)
}

// NewGrades expands every row, unions the results and subtracts existing.
// Rows that fail to parse are skipped and reported.
func (r Reconciler) NewGrades(existing NameSet, rows []GradeRow) GradePlan {
	plan := GradePlan{Candidates: NewNameSet()}
	expanded := make([][]string, 0, len(rows))
	for _, row := range rows {
		grades, err := r.expander.Expand(row.Notation)
		if err != nil {
			plan.Failures = append(plan.Failures, RowFailure{Line: row.Line, Error: asGradeParseError(row.Notation, err)})
			continue
		}
		if len(grades) == 0 {
			plan.Excluded++
			continue
		}
		plan.Candidates.Add(grades...)
		expanded = append(expanded, grades)
	}
	plan.New = plan.Candidates.Difference(existing)

	claimed := NewNameSet()
	for _, grades := range expanded {
		first := false
		for _, g := range grades {
			if plan.New.Has(g) && !claimed.Has(g) {
				claimed.Add(g)
				first = true
			}
		}
		if first {
			plan.Contributing++
		}
	}
	return plan
}

// MappingGrades returns the grade rows carried by mapping rows, for callers that
// create missing grades before resolving associations.
func MappingGrades(rows []MappingRow) []GradeRow {
	out := make([]GradeRow, len(rows))
	for i, row := range rows {
		out[i] = GradeRow{Line: row.Line, Notation: row.Notation}
	}
	return out
}

// Associations resolves every expanded mapping row against the id indexes.
// Rows naming an unknown job role or grade are dropped and reported, never fatal.
// Each pair appears once in the result.
func (r Reconciler) Associations(jobRoles, grades NameIndex, rows []MappingRow) AssociationPlan {
	var plan AssociationPlan
	seen := make(map[Association]struct{})

	for _, row := range rows {
		jobRole := CleanName(row.JobRole)
		expanded, err := r.expander.Expand(row.Notation)
		if err != nil {
			plan.Failures = append(plan.Failures, RowFailure{Line: row.Line, Error: asGradeParseError(row.Notation, err)})
			plan.Dropped = append(plan.Dropped, DroppedRow{
				Line: row.Line, JobRole: jobRole, Notation: row.Notation, Reason: DropUnparsedGrade,
			})
			continue
		}
		if len(expanded) == 0 {
			plan.Excluded++
			continue
		}

		jobRoleID, ok := jobRoles.Lookup(jobRole)
		if !ok {
			plan.Dropped = append(plan.Dropped, DroppedRow{
				Line: row.Line, JobRole: jobRole, Notation: row.Notation, Reason: DropUnknownJobRole,
			})
			continue
		}

		resolved := false
		for _, grade := range expanded {
			gradeID, ok := grades.Lookup(grade)
			if !ok {
				plan.Dropped = append(plan.Dropped, DroppedRow{
					Line: row.Line, JobRole: jobRole, Notation: row.Notation, Grade: grade, Reason: DropUnknownGrade,
				})
				continue
			}
			resolved = true
			pair := Association{JobRoleID: jobRoleID, GradeID: gradeID}
			if _, dup := seen[pair]; dup {
				plan.Duplicates++
				continue
			}
			seen[pair] = struct{}{}
			plan.Pairs = append(plan.Pairs, pair)
		}
		if resolved {
			plan.Resolved++
		}
	}

	return plan
}

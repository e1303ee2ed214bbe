package organization

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Grade notation markers recognised by the expander
const (
	NotApplicable     = "Not Applicable"
	ExcludedGradeBand = "M9 & Above"
	GradePrefix       = "MT"
	RangeSeparator    = "-"
	OpenEndedMarker   = "& Above"

	// DefaultGradeCeiling is the exclusive upper bound used for open-ended ranges
	// ("highest known grade + 1").
	DefaultGradeCeiling = 19
)

// GradeExpander turns a grade notation into the atomic grade codes it covers.
// It holds no mutable state and is safe for concurrent use.
type GradeExpander struct {
	ceiling int
}

// NewGradeExpander creates an expander with the given exclusive ceiling for
// open-ended ranges. A ceiling below 2 falls back to DefaultGradeCeiling.
func NewGradeExpander(ceiling int) GradeExpander {
	if ceiling < 2 {
		ceiling = DefaultGradeCeiling
	}
	return GradeExpander{ceiling: ceiling}
}

// Ceiling returns the exclusive open-ended range ceiling
func (e GradeExpander) Ceiling() int {
	return e.ceiling
}

// Expand returns the atomic grades denoted by notation. The result has no
// duplicates; callers must not rely on its order. A *GradeParseError is returned
// when a range bound has no numeric suffix or a range has other than two bounds.
func (e GradeExpander) Expand(notation string) ([]string, error) {
	grade := strings.TrimSpace(notation)
	if grade == "" || grade == NotApplicable || strings.Contains(grade, ExcludedGradeBand) {
		return []string{}, nil
	}

	if strings.Contains(grade, GradePrefix) {
		switch {
		case strings.Contains(grade, RangeSeparator):
			return e.expandBounded(grade)
		case strings.Contains(normalizeSpaces(grade), OpenEndedMarker):
			return e.expandOpenEnded(grade)
		}
	}

	return []string{grade}, nil
}

func (e GradeExpander) expandBounded(grade string) ([]string, error) {
	bounds := strings.Split(grade, RangeSeparator)
	if len(bounds) != 2 {
		return nil, &GradeParseError{Notation: grade, Reason: "range must have exactly two bounds"}
	}

	start, err := boundNumber(bounds[0])
	if err != nil {
		return nil, &GradeParseError{Notation: grade, Reason: "invalid range start", Err: err}
	}
	end, err := boundNumber(bounds[1])
	if err != nil {
		return nil, &GradeParseError{Notation: grade, Reason: "invalid range end", Err: err}
	}
	// bounded ranges are not capped by the ceiling
	return gradeSpan(start, end+1), nil
}

func (e GradeExpander) expandOpenEnded(grade string) ([]string, error) {
	fields := strings.Fields(grade)
	start, err := boundNumber(fields[0])
	if err != nil {
		return nil, &GradeParseError{Notation: grade, Reason: "invalid open-ended range start", Err: err}
	}
	// starts at or beyond the ceiling expand to nothing
	return gradeSpan(start, e.ceiling), nil
}

// boundNumber parses the integer following the two-letter prefix of a bound
func boundNumber(bound string) (int, error) {
	b := strings.TrimSpace(bound)
	if len(b) <= len(GradePrefix) {
		return 0, fmt.Errorf("bound %q has no grade number", b)
	}
	n, err := strconv.Atoi(b[len(GradePrefix):])
	if err != nil {
		return 0, fmt.Errorf("bound %q: %w", b, err)
	}
	return n, nil
}

// gradeSpan formats MT{i} for i in [from, to)
func gradeSpan(from, to int) []string {
	if to <= from {
		return []string{}
	}
	grades := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		grades = append(grades, FormatGrade(i))
	}
	return grades
}

// FormatGrade renders an atomic grade code
func FormatGrade(n int) string {
	return GradePrefix + strconv.Itoa(n)
}

// SortGrades orders grades by rank: MT codes by number, anything else after
// them lexically
func SortGrades(grades []string) {
	slices.SortFunc(grades, func(a, b string) int {
		na, errA := boundNumber(a)
		nb, errB := boundNumber(b)
		switch {
		case errA == nil && errB == nil && strings.HasPrefix(a, GradePrefix) && strings.HasPrefix(b, GradePrefix):
			return cmp.Compare(na, nb)
		case errA == nil && strings.HasPrefix(a, GradePrefix):
			return -1
		case errB == nil && strings.HasPrefix(b, GradePrefix):
			return 1
		}
		return strings.Compare(a, b)
	})
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

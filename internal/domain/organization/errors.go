package organization

import (
	"errors"
	"fmt"
)

// GradeParseError reports a grade notation that could not be expanded.
// It is a row-level failure: the row is skipped and the batch continues.
type GradeParseError struct {
	Notation string
	Reason   string
	Err      error
}

// Error implements the error interface
func (e *GradeParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot expand grade %q: %s: %v", e.Notation, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot expand grade %q: %s", e.Notation, e.Reason)
}

// Unwrap returns the underlying cause
func (e *GradeParseError) Unwrap() error {
	return e.Err
}

// IsGradeParseError reports whether err is, or wraps, a GradeParseError
func IsGradeParseError(err error) bool {
	var gpe *GradeParseError
	return errors.As(err, &gpe)
}

func asGradeParseError(notation string, err error) *GradeParseError {
	var gpe *GradeParseError
	if errors.As(err, &gpe) {
		return gpe
	}
	return &GradeParseError{Notation: notation, Reason: "unexpected error", Err: err}
}

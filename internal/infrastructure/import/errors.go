package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeImportEmptyFile         = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeImportFileTooLarge      = "ERR_IMPORT_FILE_TOO_LARGE"
	ErrCodeImportInvalidEncoding   = "ERR_IMPORT_INVALID_ENCODING"
	ErrCodeImportUnsupportedFormat = "ERR_IMPORT_UNSUPPORTED_FORMAT"
	ErrCodeImportMissingHeader     = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeImportMissingColumns    = "ERR_IMPORT_MISSING_COLUMNS"
	ErrCodeImportMalformedRow      = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeImportGradeParse        = "ERR_IMPORT_GRADE_PARSE"
	ErrCodeImportUnknownJobRole    = "ERR_IMPORT_UNKNOWN_JOB_ROLE"
	ErrCodeImportUnknownGrade      = "ERR_IMPORT_UNKNOWN_GRADE"
)

// Common import errors. Each rejects the whole upload.
var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrInvalidEncoding   = errors.New("invalid file encoding, expected UTF-8")
	ErrMissingHeader     = errors.New("file missing header row")
	ErrMissingColumns    = errors.New("file missing required columns")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
)

// IsInputError reports whether err means the uploaded content itself is unusable
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrEmptyFile, ErrInvalidEncoding, ErrMissingHeader,
		ErrMissingColumns, ErrUnsupportedFormat, ErrFileTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var malformed *MalformedFileError
	return errors.As(err, &malformed)
}

// ErrorCode maps an input error to its machine code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return ErrCodeImportEmptyFile
	case errors.Is(err, ErrInvalidEncoding):
		return ErrCodeImportInvalidEncoding
	case errors.Is(err, ErrMissingHeader):
		return ErrCodeImportMissingHeader
	case errors.Is(err, ErrMissingColumns):
		return ErrCodeImportMissingColumns
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrCodeImportUnsupportedFormat
	case errors.Is(err, ErrFileTooLarge):
		return ErrCodeImportFileTooLarge
	}
	return ErrCodeImportMalformedRow
}

// MalformedFileError is returned when the tabular content cannot be read
type MalformedFileError struct {
	Line int
	Err  error
}

func (e *MalformedFileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed file at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed file: %v", e.Err)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowErrorWithValue creates a new RowError with the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}

// ErrorCollection keeps up to maxErrors row errors while counting all of them
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddGradeParseError records a grade notation that could not be expanded
func (ec *ErrorCollection) AddGradeParseError(row int, column, value, reason string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeImportGradeParse,
		fmt.Sprintf("cannot expand grade notation: %s", reason), value))
}

// AddReferenceError records a name that does not resolve to a stored row
func (ec *ErrorCollection) AddReferenceError(row int, column, code, value, refType string) {
	ec.Add(NewRowErrorWithValue(row, column, code,
		fmt.Sprintf("%s '%s' not found", refType, value), value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Count returns the number of collected errors (up to maxErrors)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// ErrorSummary returns the number of collected errors per code
func (ec *ErrorCollection) ErrorSummary() map[string]int {
	summary := make(map[string]int)
	for _, err := range ec.errors {
		summary[err.Code]++
	}
	return summary
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

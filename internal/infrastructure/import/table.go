// Package csvimport reads uploaded catalog files (CSV or XLSX) into rows keyed
// by column heading and collects row-level import errors.
package csvimport

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Column headings expected in uploaded files
const (
	ColumnSBU     = "SBU"
	ColumnJobRole = "Job Role"
	ColumnGrade   = "Grade"
)

// Format is an accepted upload file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromFilename picks the format from the file extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, name)
}

// Header maps column headings to positions. Lookups ignore case and
// surrounding whitespace.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a Header from a raw header record
func NewHeader(record []string) *Header {
	h := &Header{index: make(map[string]int, len(record))}
	for i, raw := range record {
		name := strings.TrimSpace(raw)
		h.names = append(h.names, name)
		if name == "" {
			continue
		}
		if _, dup := h.index[headerKey(name)]; !dup {
			h.index[headerKey(name)] = i
		}
	}
	if len(h.index) == 0 {
		h.names = nil
	}
	return h
}

func headerKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Names returns the headings in file order
func (h *Header) Names() []string {
	return h.names
}

// Len returns the number of columns
func (h *Header) Len() int {
	return len(h.names)
}

// Has reports whether a column is present
func (h *Header) Has(name string) bool {
	_, ok := h.index[headerKey(name)]
	return ok
}

// Index returns the position of a column
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[headerKey(name)]
	return i, ok
}

// Missing returns the required columns that are absent
func (h *Header) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !h.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Row builds a row from a record read at line
func (h *Header) Row(line int, record []string) *Row {
	return &Row{LineNumber: line, header: h, fields: record}
}

// Row is a data row with its 1-based line number in the source file
type Row struct {
	LineNumber int
	header     *Header
	fields     []string
}

// Get returns the trimmed value of a column, or "" if absent
func (r *Row) Get(column string) string {
	i, ok := r.header.Index(column)
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// IsEmpty returns true if the row has no non-blank values
func (r *Row) IsEmpty() bool {
	for _, f := range r.fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Table is a fully read upload
type Table struct {
	Header *Header
	Rows   []*Row
}

// RequireColumns fails with ErrMissingColumns when any column is absent
func (t *Table) RequireColumns(columns ...string) error {
	if missing := t.Header.Missing(columns...); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// Column returns the values of one column, one per row
func (t *Table) Column(name string) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Get(name)
	}
	return values
}

// ReadTable reads r according to format and checks the required columns
func ReadTable(r io.Reader, format Format, required ...string) (*Table, error) {
	var (
		table *Table
		err   error
	)
	switch format {
	case FormatCSV:
		table, err = ReadCSV(r)
	case FormatXLSX:
		table, err = ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns(required...); err != nil {
		return nil, err
	}
	return table, nil
}

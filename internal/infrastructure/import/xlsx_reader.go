package csvimport

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first worksheet of a workbook into a Table. The first
// non-empty row is the header.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrEmptyFile
		}
		return nil, &MalformedFileError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &MalformedFileError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	defer rows.Close()

	table := &Table{}
	line := 0
	for rows.Next() {
		line++
		cols, err := rows.Columns()
		if err != nil {
			return nil, &MalformedFileError{Line: line, Err: err}
		}
		if table.Header == nil {
			header := NewHeader(cols)
			if header.Len() == 0 {
				continue
			}
			table.Header = header
			continue
		}
		row := table.Header.Row(line, cols)
		if row.IsEmpty() {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return nil, &MalformedFileError{Line: line, Err: err}
	}

	if table.Header == nil {
		if line == 0 {
			return nil, ErrEmptyFile
		}
		return nil, ErrMissingHeader
	}
	return table, nil
}

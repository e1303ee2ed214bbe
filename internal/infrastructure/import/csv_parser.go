package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVParser reads a header row followed by data rows from UTF-8 CSV input.
// UTF-16 input with a byte order mark is transcoded first.
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	header     *Header
	currentRow int
	totalRows  int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// NewCSVParser creates a new CSV parser from a reader. A leading UTF-8 BOM is
// discarded, UTF-16 input is decoded, and empty or non UTF-8 input is rejected.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter:  ',',
		lazyQuotes: true,
	}
	for _, opt := range opts {
		opt(parser)
	}

	parser.bufReader = bufio.NewReader(r)

	content, err := parser.bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	switch {
	case bytes.HasPrefix(content, utf8BOM):
		_, _ = parser.bufReader.Discard(len(utf8BOM))
	case bytes.HasPrefix(content, utf16LEBOM), bytes.HasPrefix(content, utf16BEBOM):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		parser.bufReader = bufio.NewReader(transform.NewReader(parser.bufReader, decoder))
	}

	if err := validateUTF8(parser.bufReader); err != nil {
		return nil, err
	}

	parser.reader = csv.NewReader(parser.bufReader)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1

	return parser, nil
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// validateUTF8 checks the first block of content. A multi-byte rune cut at
// the block boundary is tolerated.
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return ErrEmptyFile
	}

	if len(content) == checkSize {
		content = trimPartialRune(content)
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// validRecord reports whether every field is valid UTF-8. The up-front check
// only covers the start of the input.
func validRecord(record []string) bool {
	for _, field := range record {
		if !utf8.ValidString(field) {
			return false
		}
	}
	return true
}

// trimPartialRune drops an incomplete trailing rune
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

// ParseHeader reads the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return &MalformedFileError{Line: 1, Err: err}
	}
	if !validRecord(record) {
		return &MalformedFileError{Line: 1, Err: ErrInvalidEncoding}
	}

	header := NewHeader(record)
	if header.Len() == 0 {
		return ErrMissingHeader
	}
	p.header = header
	p.currentRow = 1
	return nil
}

// Header returns the parsed header
func (p *CSVParser) Header() *Header {
	return p.header
}

// ReadRow reads the next row. It returns io.EOF after the last row.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		line := 0
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			line = perr.Line
		}
		return nil, &MalformedFileError{Line: line, Err: err}
	}
	line, _ := p.reader.FieldPos(0)
	if !validRecord(record) {
		return nil, &MalformedFileError{Line: line, Err: ErrInvalidEncoding}
	}

	p.currentRow = line
	p.totalRows++
	return p.header.Row(line, record), nil
}

// ReadAllRows reads all remaining rows, skipping completely empty ones
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// CurrentRow returns the file line of the last row read
func (p *CSVParser) CurrentRow() int {
	return p.currentRow
}

// TotalRows returns the total number of data rows read
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}

// ReadCSV parses a whole CSV document into a Table
func ReadCSV(r io.Reader, opts ...ParserOption) (*Table, error) {
	parser, err := NewCSVParser(r, opts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, err
	}
	return &Table{Header: parser.Header(), Rows: rows}, nil
}

// Package table encodes and decodes whole tab-separated tables.
//
// A table is a header line naming the columns followed by one row per record.
// Columns are separated by a tab, rows by '\n' (a trailing '\r' is
// tolerated). Cells are written verbatim: callers guarantee no cell contains
// a tab or a line break, and decoding rejects any that do.
package table

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	// Delimiter separates columns.
	Delimiter = '\t'
	// Terminator ends a row.
	Terminator = '\n'
)

// ErrCorruptRecord is returned when a table row cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt record")

// ErrInvalidCell is returned when encoding a cell that contains a delimiter
// or a line break.
var ErrInvalidCell = errors.New("invalid cell")

// CorruptError reports the row that failed to decode. Line is 1-based and
// counts the header.
type CorruptError struct {
	Line int
	Row  string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%v at line %d: %v (row %q)", ErrCorruptRecord, e.Line, e.Err, e.Row)
}

func (e *CorruptError) Unwrap() []error {
	return []error{ErrCorruptRecord, e.Err}
}

// Schema describes how one record type maps to table columns.
type Schema[R any] struct {
	// Columns are the header names in serialization order.
	Columns []string

	// Encode returns one cell per column.
	Encode func(rec *R) []string

	// Decode builds a record from exactly len(Columns) cells.
	Decode func(cells []string) (R, error)
}

// Header returns the header line including the terminator.
func (s *Schema[R]) Header() []byte {
	return []byte(strings.Join(s.Columns, string(Delimiter)) + string(Terminator))
}

// Encode serializes the header followed by records in slice order.
func Encode[R any](s *Schema[R], records []R) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(s.Header())

	for i := range records {
		cells := s.Encode(&records[i])
		if len(cells) != len(s.Columns) {
			return nil, fmt.Errorf("%w: record %d has %d cells, want %d", ErrInvalidCell, i, len(cells), len(s.Columns))
		}

		for col, cell := range cells {
			if strings.ContainsAny(cell, "\t\r\n") {
				return nil, fmt.Errorf("%w: record %d column %s: %q", ErrInvalidCell, i, s.Columns[col], cell)
			}

			if col > 0 {
				buf.WriteByte(Delimiter)
			}

			buf.WriteString(cell)
		}

		buf.WriteByte(Terminator)
	}

	return buf.Bytes(), nil
}

// Decode parses a whole table. The header must match s.Columns exactly.
// Blank lines are skipped.
func Decode[R any](s *Schema[R], data []byte) ([]R, error) {
	lines := strings.Split(string(data), string(Terminator))

	var (
		records    []R
		headerSeen bool
	)

	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			continue
		}

		cells := strings.Split(line, string(Delimiter))

		if !headerSeen {
			headerSeen = true

			if !equalColumns(cells, s.Columns) {
				return nil, &CorruptError{Line: lineNo, Row: line, Err: fmt.Errorf("header does not match %v", s.Columns)}
			}

			continue
		}

		if len(cells) != len(s.Columns) {
			return nil, &CorruptError{
				Line: lineNo,
				Row:  line,
				Err:  fmt.Errorf("%d columns, want %d", len(cells), len(s.Columns)),
			}
		}

		for col, cell := range cells {
			if strings.ContainsRune(cell, '\r') {
				return nil, &CorruptError{Line: lineNo, Row: line, Err: fmt.Errorf("column %s contains a carriage return", s.Columns[col])}
			}
		}

		rec, err := s.Decode(cells)
		if err != nil {
			return nil, &CorruptError{Line: lineNo, Row: line, Err: err}
		}

		records = append(records, rec)
	}

	if !headerSeen {
		return nil, &CorruptError{Line: 1, Err: errors.New("missing header")}
	}

	return records, nil
}

func equalColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}

	return true
}

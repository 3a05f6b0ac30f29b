// Package ingest parses operator-uploaded CSV and XLSX files into an
// in-memory table. Every cell is read as text; blanks stay empty strings.
package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is one parsed upload: a header row plus data rows. Rows shorter
// than the header are padded so column lookups never go out of range.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex resolves a column name to its position in the header.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the value at the given row and column index, or "" when the
// column does not exist.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// RowMap returns the row as a column-name-to-value mapping, the shape
// stored in a lead's original_data blob.
func (t *Table) RowMap(row []string) map[string]string {
	m := make(map[string]string, len(t.Header))
	for i, h := range t.Header {
		m[h] = t.Cell(row, i)
	}
	return m
}

// Read parses the file at path, choosing the parser by extension
// (.xlsx vs anything else, treated as CSV).
func Read(path string) (*Table, error) {
	return fromExt(path, func() ([]byte, error) {
		return readFile(path)
	})
}

// ReadFrom parses an already-open upload. The filename is only used to
// pick the parser by extension.
func ReadFrom(r io.Reader, filename string) (*Table, error) {
	return fromExt(filename, func() ([]byte, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read upload")
		}
		return data, nil
	})
}

func fromExt(name string, load func() ([]byte, error)) (*Table, error) {
	data, err := load()
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return parseXLSX(data)
	}
	return parseCSV(data)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return data, nil
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

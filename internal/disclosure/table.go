package disclosure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const utf8BOM = "\ufeff"

// Table is a raw disclosure file: normalized header names plus string cells
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable builds a table from raw header names and rows. Header names are
// normalized the same way as when loading from CSV.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: make([]string, len(columns)),
		Rows:    rows,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		name := NormalizeHeader(c)
		t.Columns[i] = name
		// first occurrence wins for duplicate headers
		if _, ok := t.index[name]; !ok {
			t.index[name] = i
		}
	}
	return t
}

// LoadCSV reads a disclosure CSV. Rows may be ragged; missing trailing
// cells read as empty strings.
func LoadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("disclosure file is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}

	return NewTable(header, rows), nil
}

// NormalizeHeader drops embedded line breaks and trims surrounding whitespace
func NormalizeHeader(name string) string {
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	return strings.TrimSpace(name)
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell returns the trimmed value of column in row i, or "" when the column
// is unknown or the row is short
func (t *Table) Cell(i int, column string) string {
	idx, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

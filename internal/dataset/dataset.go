package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Column names with fixed meaning in every tabulated dataset.
const (
	FileColumn     = "file_name"
	CategoryColumn = "category_name"
)

var (
	// ErrMalformed indicates the input is missing expected keys or fields.
	ErrMalformed = errors.New("malformed dataset")
	// ErrUnknownColumn is returned when an attribute column does not exist.
	ErrUnknownColumn = errors.New("unknown column")
)

// Row is one tabulated item. Values holds only the attributes present for the
// item; an attribute absent from the map is missing.
type Row struct {
	FileName string
	Values   map[string]string
}

// Cell is a single attribute value of one row.
type Cell struct {
	Value   string
	Missing bool
}

// Table is the tabular form of a dataset: one row per item and one column per
// attribute, in first-seen order.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Attributes returns the attribute columns (every column except the file identifier).
func (t *Table) Attributes() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c == FileColumn {
			continue
		}
		out = append(out, c)
	}
	return out
}

// HasColumn reports whether the table carries the named attribute column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the cells of one attribute column, one per row.
func (t *Table) Column(name string) ([]Cell, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	cells := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := r.Values[name]
		cells[i] = Cell{Value: v, Missing: !ok}
	}
	return cells, nil
}

// addColumn registers a column name once, preserving first-seen order.
func (t *Table) addColumn(name string, seen map[string]struct{}) {
	if _, ok := seen[name]; ok {
		return
	}
	seen[name] = struct{}{}
	t.Columns = append(t.Columns, name)
}

// Load reads a dataset file, choosing the decoder by extension: .csv and .tsv
// are read as delimited text, anything else as the tagged JSON format.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return LoadCSV(path)
	default:
		return LoadJSON(path)
	}
}

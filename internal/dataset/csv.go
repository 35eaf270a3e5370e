package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadCSV reads a delimited table. The first header column is the file
// identifier; the remaining columns are attributes. Empty cells are missing.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	t, err := ReadCSV(f, sniffDelimiter(path))
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// ReadCSV decodes delimited text from r.
func ReadCSV(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", ErrMalformed)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: csv needs a file column and at least one attribute", ErrMalformed)
	}
	t := &Table{}
	seen := map[string]struct{}{}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		if i > 0 {
			t.addColumn(names[i], seen)
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		line++
		row := Row{Values: map[string]string{}}
		for i, v := range rec {
			if i >= len(names) {
				break
			}
			v = strings.TrimSpace(v)
			if i == 0 {
				row.FileName = v
				continue
			}
			if v == "" {
				continue
			}
			row.Values[names[i]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File is the on-disk layout of a tagged dataset.
type File struct {
	Data []Entry `json:"data"`
}

// Entry is one tagged item of the dataset.
type Entry struct {
	FileName     string `json:"file_name"`
	CategoryName string `json:"category_name"`
	TagInfo      []Tag  `json:"tag_info"`
}

// Tag is a named categorical attribute of an entry.
type Tag struct {
	TagName     string `json:"tag_name"`
	TagCategory string `json:"tag_category"`
}

// LoadEntries decodes the raw entries of a tagged JSON dataset.
// Missing keys are reported as ErrMalformed with the offending entry index.
func LoadEntries(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return DecodeEntries(b)
}

// DecodeEntries parses the JSON document in b.
func DecodeEntries(b []byte) ([]Entry, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	rawData, ok := doc["data"]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformed, "data")
	}
	var rawEntries []map[string]json.RawMessage
	if err := json.Unmarshal(rawData, &rawEntries); err != nil {
		return nil, fmt.Errorf("parse data: %w", err)
	}
	entries := make([]Entry, 0, len(rawEntries))
	for i, raw := range rawEntries {
		var e Entry
		if err := requireField(raw, "file_name", &e.FileName, i); err != nil {
			return nil, err
		}
		if err := requireField(raw, "category_name", &e.CategoryName, i); err != nil {
			return nil, err
		}
		var tags []map[string]json.RawMessage
		if err := requireField(raw, "tag_info", &tags, i); err != nil {
			return nil, err
		}
		for j, rt := range tags {
			var tg Tag
			if err := requireField(rt, "tag_name", &tg.TagName, i); err != nil {
				return nil, fmt.Errorf("tag %d: %w", j, err)
			}
			if err := requireField(rt, "tag_category", &tg.TagCategory, i); err != nil {
				return nil, fmt.Errorf("tag %d: %w", j, err)
			}
			e.TagInfo = append(e.TagInfo, tg)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func requireField(raw map[string]json.RawMessage, key string, dst any, entry int) error {
	v, ok := raw[key]
	if !ok {
		return fmt.Errorf("%w: entry %d: missing %q", ErrMalformed, entry, key)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: entry %d: field %q: %v", ErrMalformed, entry, key, err)
	}
	return nil
}

// LoadJSON reads a tagged JSON dataset into a table with one row per entry.
func LoadJSON(path string) (*Table, error) {
	entries, err := LoadEntries(path)
	if err != nil {
		return nil, err
	}
	t := Tabulate(entries)
	t.Name = filepath.Base(path)
	return t, nil
}

// Tabulate turns entries into a table. The category is always the first
// attribute column; tag columns follow in first-seen order. A tag repeated
// within one entry keeps its last value. Duplicate file names are kept.
func Tabulate(entries []Entry) *Table {
	t := &Table{}
	seen := map[string]struct{}{}
	t.addColumn(CategoryColumn, seen)
	for _, e := range entries {
		row := Row{FileName: e.FileName, Values: map[string]string{CategoryColumn: e.CategoryName}}
		for _, tg := range e.TagInfo {
			if tg.TagName == FileColumn {
				row.FileName = tg.TagCategory
				continue
			}
			t.addColumn(tg.TagName, seen)
			row.Values[tg.TagName] = tg.TagCategory
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

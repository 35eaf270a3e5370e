package distribution

import (
	"fmt"
	"strings"
)

// Report is a markdown-friendly summary of every analyzed attribute.
type Report struct {
	Name          string
	Split         string
	Rows          int
	Distributions []*Distribution
	Warnings      []string
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DISTRIBUTION SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Split != "" {
		b.WriteString(fmt.Sprintf("Split: %s\n", r.Split))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Attributes: %d\n", len(r.Distributions)))

	for _, d := range r.Distributions {
		b.WriteString("\n")
		b.WriteString(d.Markdown())
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Markdown renders the value counts and grouped segments of one attribute.
func (d *Distribution) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]\n", strings.ToUpper(d.Attribute)))
	b.WriteString(fmt.Sprintf("Distinct values: %d (kept %d before grouping)\n", len(d.Rows), len(d.Kept)))
	b.WriteString("| value | count | proportion | cumulative |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, row := range d.Rows {
		b.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f |\n", safeVal(row.Value), row.Count, row.Proportion, row.Cumulative))
	}
	b.WriteString("Segments: ")
	for i, s := range d.Segments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s %.1f%%", safeVal(s.Label), s.Proportion*100))
	}
	b.WriteString("\n")
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

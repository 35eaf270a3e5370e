package distribution

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/tagdist-cli/internal/dataset"
)

const (
	// OthersLabel names the synthetic segment that carries the residual mass.
	OthersLabel = "Others"
	// MissingLabel is the display value of rows without the attribute.
	MissingLabel = "Unknown"
)

// Options controls value selection and segment grouping.
type Options struct {
	// Threshold drops segments whose proportion is strictly below it.
	Threshold float64
	// MinResidual is the smallest residual mass that earns an Others segment.
	MinResidual float64
	// SmallCardinality: columns with at most this many distinct values keep all of them.
	SmallCardinality int
	// CumulativeCutoff bounds the kept prefix for high-cardinality columns.
	CumulativeCutoff float64
	// MinKeep and MaxKeep clamp the kept prefix for high-cardinality columns.
	MinKeep int
	MaxKeep int
}

// DefaultOptions returns the standard selection policy.
func DefaultOptions() Options {
	return Options{
		Threshold:        0.02,
		MinResidual:      0.002,
		SmallCardinality: 7,
		CumulativeCutoff: 0.95,
		MinKeep:          2,
		MaxKeep:          8,
	}
}

// Row is one value of an attribute with its normalized frequency.
type Row struct {
	Value      string // display value
	Raw        string
	Missing    bool
	Count      int
	Proportion float64
	Cumulative float64
}

// Distribution is the analysis of one attribute column.
type Distribution struct {
	Attribute string
	Total     int
	// Rows holds every distinct value, sorted by descending frequency.
	Rows []Row
	// Kept is the prefix of Rows selected before grouping.
	Kept []Row
	// Segments is the grouped result ready for rendering.
	Segments Grouped
}

type valueKey struct {
	value   string
	missing bool
}

// ValueCounts computes normalized frequencies over cells. Missing cells form
// their own value. Rows are sorted by descending count; ties keep the order
// of first appearance. Cumulative proportions are derived from cumulative
// counts so the running sum ends at exactly 1.
func ValueCounts(cells []dataset.Cell) []Row {
	if len(cells) == 0 {
		return nil
	}
	counts := map[valueKey]int{}
	var order []valueKey
	for _, c := range cells {
		k := valueKey{value: c.Value, missing: c.Missing}
		if c.Missing {
			k.value = ""
		}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	title := cases.Title(language.Und)
	total := len(cells)
	rows := make([]Row, len(order))
	cum := 0
	for i, k := range order {
		n := counts[k]
		cum += n
		r := Row{
			Raw:        k.value,
			Missing:    k.missing,
			Count:      n,
			Proportion: float64(n) / float64(total),
			Cumulative: float64(cum) / float64(total),
		}
		if k.missing {
			r.Value = MissingLabel
		} else {
			r.Value = title.String(k.value)
		}
		rows[i] = r
	}
	return rows
}

// Select returns the prefix of rows kept before grouping.
// Columns with at most SmallCardinality values keep everything. Otherwise
// the prefix with cumulative proportion <= CumulativeCutoff is kept, forced
// up to MinKeep rows when it is that short or shorter, and capped at MaxKeep.
func Select(rows []Row, opt Options) []Row {
	if len(rows) <= opt.SmallCardinality {
		return rows
	}
	n := 0
	for n < len(rows) && rows[n].Cumulative <= opt.CumulativeCutoff {
		n++
	}
	if n <= opt.MinKeep {
		n = opt.MinKeep
		if n > len(rows) {
			n = len(rows)
		}
	}
	if opt.MaxKeep > 0 && n > opt.MaxKeep {
		n = opt.MaxKeep
	}
	return rows[:n]
}

// Analyze computes the distribution of an already-extracted column.
// An empty column has no segments.
func Analyze(attribute string, cells []dataset.Cell, opt Options) *Distribution {
	d := &Distribution{Attribute: attribute, Total: len(cells)}
	if len(cells) == 0 {
		return d
	}
	d.Rows = ValueCounts(cells)
	d.Kept = Select(d.Rows, opt)
	d.Segments = Group(d.Kept, opt.Threshold, opt.MinResidual)
	return d
}

// Compute analyzes one attribute column of t.
func Compute(t *dataset.Table, column string, opt Options) (*Distribution, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", column, err)
	}
	return Analyze(column, cells, opt), nil
}

// ComputeAll analyzes every attribute column of t in column order.
func ComputeAll(t *dataset.Table, opt Options) ([]*Distribution, error) {
	attrs := t.Attributes()
	out := make([]*Distribution, 0, len(attrs))
	for _, a := range attrs {
		d, err := Compute(t, a, opt)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

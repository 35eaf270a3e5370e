package distribution

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tagdist-cli/internal/dataset"
)

// cellsFromCounts builds a column where value "vI" appears counts[I] times.
func cellsFromCounts(counts ...int) []dataset.Cell {
	var cells []dataset.Cell
	for i, n := range counts {
		for j := 0; j < n; j++ {
			cells = append(cells, dataset.Cell{Value: fmt.Sprintf("v%d", i)})
		}
	}
	return cells
}

func proportions(g Grouped) []float64 {
	out := make([]float64, len(g))
	for i, s := range g {
		out[i] = s.Proportion
	}
	return out
}

func TestSmallCardinalityGroupsTail(t *testing.T) {
	d := Analyze("sleeve", cellsFromCounts(50, 30, 10, 5, 3, 1, 1), DefaultOptions())

	require.Len(t, d.Rows, 7)
	assert.Len(t, d.Kept, 7)
	assert.Equal(t, []string{"V0", "V1", "V2", "V3", "V4", OthersLabel}, d.Segments.Labels())
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.1, 0.05, 0.03, 0.02}, proportions(d.Segments), 1e-9)
	assert.InDelta(t, 1.0, d.Segments.Sum(), 1e-9)
}

func TestForceKeepTwoWhenTopDominates(t *testing.T) {
	d := Analyze("neck", cellsFromCounts(955, 5, 5, 5, 5, 5, 5, 5, 5, 5), DefaultOptions())

	require.Len(t, d.Rows, 10)
	assert.Len(t, d.Kept, 2)
	assert.Equal(t, []string{"V0", OthersLabel}, d.Segments.Labels())
	assert.InDelta(t, 0.045, d.Segments[1].Proportion, 1e-9)
}

func TestCapKeptAtEight(t *testing.T) {
	d := Analyze("pattern", cellsFromCounts(10, 10, 10, 10, 10, 10, 10, 10, 10, 10), DefaultOptions())

	require.Len(t, d.Rows, 10)
	assert.Len(t, d.Kept, 8)
	require.Len(t, d.Segments, 9)
	assert.Equal(t, OthersLabel, d.Segments[8].Label)
	assert.InDelta(t, 0.2, d.Segments[8].Proportion, 1e-9)
}

func TestCumulativePrefixWithinBounds(t *testing.T) {
	// cumulative: .40 .70 .85 .92 .95 .97 .98 .99 1.0
	d := Analyze("length", cellsFromCounts(40, 30, 15, 7, 3, 2, 1, 1, 1), DefaultOptions())
	assert.Len(t, d.Kept, 5)
	assert.Equal(t, []string{"V0", "V1", "V2", "V3", "V4", OthersLabel}, d.Segments.Labels())
	assert.InDelta(t, 0.05, d.Segments[5].Proportion, 1e-9)
}

func TestSingleCategory(t *testing.T) {
	cells := []dataset.Cell{{Value: "tops"}, {Value: "tops"}, {Value: "tops"}}
	d := Analyze(dataset.CategoryColumn, cells, DefaultOptions())

	require.Len(t, d.Rows, 1)
	require.Len(t, d.Segments, 1)
	assert.Equal(t, Segment{Label: "Tops", Proportion: 1.0}, d.Segments[0])
}

func TestMissingIsOwnCategoryAndTitleCase(t *testing.T) {
	cells := []dataset.Cell{
		{Value: "short sleeve"}, {Value: "short sleeve"}, {Missing: true},
		{Value: "t-shirt"}, {Missing: true}, {Missing: true},
	}
	rows := ValueCounts(cells)
	require.Len(t, rows, 3)
	assert.Equal(t, MissingLabel, rows[0].Value)
	assert.True(t, rows[0].Missing)
	assert.Equal(t, "Short Sleeve", rows[1].Value)
	assert.Equal(t, "short sleeve", rows[1].Raw)
	assert.Equal(t, "T-Shirt", rows[2].Value)
	assert.Equal(t, 1.0, rows[2].Cumulative)
}

func TestTiesKeepFirstAppearance(t *testing.T) {
	cells := []dataset.Cell{{Value: "b"}, {Value: "a"}, {Value: "a"}, {Value: "b"}, {Value: "c"}}
	rows := ValueCounts(cells)
	assert.Equal(t, "B", rows[0].Value)
	assert.Equal(t, "A", rows[1].Value)
	assert.Equal(t, "C", rows[2].Value)
}

func TestGroupNothingRetained(t *testing.T) {
	rows := ValueCounts(cellsFromCounts(50, 30, 20))
	g := Group(rows, 0.9, 0.002)
	require.Len(t, g, 1)
	assert.Equal(t, Segment{Label: OthersLabel, Proportion: 1.0}, g[0])

	assert.Empty(t, Group(nil, 0.02, 2), "no rows and an unreachable residual produce nothing")
}

func TestEmptyTableHasNoSegments(t *testing.T) {
	dists, err := ComputeAll(dataset.Tabulate(nil), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.Equal(t, dataset.CategoryColumn, dists[0].Attribute)
	assert.Zero(t, dists[0].Total)
	assert.Empty(t, dists[0].Segments)
	assert.Empty(t, dists[0].Rows)
}

func TestGroupSkipsNegligibleResidual(t *testing.T) {
	// 999 of 1000 retained; residual .001 is below the minimum.
	rows := ValueCounts(cellsFromCounts(600, 399, 1))
	g := Group(rows, 0.02, 0.002)
	assert.Equal(t, []string{"V0", "V1"}, g.Labels())
	assert.False(t, g.HasOthers())
}

func TestComputeUnknownColumn(t *testing.T) {
	tbl := dataset.Tabulate([]dataset.Entry{{FileName: "a", CategoryName: "TOPS"}})
	_, err := Compute(tbl, "colour", DefaultOptions())
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)

	all, err := ComputeAll(tbl, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, dataset.CategoryColumn, all[0].Attribute)
}

func TestGroupingProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	opt := DefaultOptions()
	for iter := 0; iter < 300; iter++ {
		k := 1 + rng.Intn(15)
		counts := make([]int, k)
		for i := range counts {
			counts[i] = 1 + rng.Intn(200)
		}
		d := Analyze("attr", cellsFromCounts(counts...), opt)

		if len(d.Rows) > opt.SmallCardinality {
			assert.GreaterOrEqual(t, len(d.Kept), 2)
			assert.LessOrEqual(t, len(d.Kept), 8)
		} else {
			assert.Len(t, d.Kept, len(d.Rows))
			for _, r := range d.Rows {
				if r.Proportion >= opt.Threshold {
					assert.Contains(t, d.Segments.Labels(), r.Value)
				}
			}
		}

		last := 0.0
		for _, r := range d.Kept {
			if r.Proportion >= opt.Threshold {
				last = r.Cumulative
			}
		}
		residual := 1 - last
		assert.Equal(t, residual >= opt.MinResidual, d.Segments.HasOthers(), "counts=%v", counts)
		for _, s := range d.Segments {
			assert.GreaterOrEqual(t, s.Proportion, 0.0)
		}
		if d.Segments.HasOthers() || residual < 1e-12 {
			assert.InDelta(t, 1.0, d.Segments.Sum(), 1e-9, "counts=%v", counts)
		} else {
			assert.InDelta(t, 1.0, d.Segments.Sum(), opt.MinResidual)
		}

		if math.Abs(residual-opt.MinResidual) < 1e-9 {
			continue
		}
		again := Group(d.Segments.Rows(), opt.Threshold, opt.MinResidual)
		require.Equal(t, d.Segments.Labels(), again.Labels(), "counts=%v", counts)
		assert.InDeltaSlice(t, proportions(d.Segments), proportions(again), 1e-9)
	}
}

func TestReportMarkdown(t *testing.T) {
	d := Analyze("sleeve_length", cellsFromCounts(50, 30, 10, 5, 3, 1, 1), DefaultOptions())
	rep := &Report{Name: "train.json", Split: "train", Rows: d.Total, Distributions: []*Distribution{d}, Warnings: []string{"only one segment"}}
	md := rep.Markdown()

	for _, want := range []string{
		"[DISTRIBUTION SUMMARY]",
		"File: train.json",
		"Split: train",
		"Rows: 100",
		"[SLEEVE_LENGTH]",
		"Distinct values: 7 (kept 7 before grouping)",
		"| V0 | 50 | 0.5000 | 0.5000 |",
		"Others 2.0%",
		"[NOTES]",
	} {
		assert.Contains(t, md, want)
	}
	assert.False(t, math.IsNaN(d.Segments.Sum()))
	assert.Equal(t, 1, strings.Count(md, "[SLEEVE_LENGTH]"))
}

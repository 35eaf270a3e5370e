package chart

import (
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// TwoColors is the hand-picked palette for two-segment charts.
var TwoColors = []string{"#1f77b4", "#ff7f0e"}

// Category10 is the ten-color categorical palette.
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Category20 extends Category10 with lighter companions.
var Category20 = []string{
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
}

// Palette returns n colors for a categorical chart. One or zero categories
// have no defined palette and return nil; callers warn and fall back to the
// renderer's default colors. Beyond twenty categories colors repeat.
func Palette(n int) []string {
	switch {
	case n <= 1:
		return nil
	case n == 2:
		return append([]string(nil), TwoColors...)
	case n <= len(Category10):
		return append([]string(nil), Category10[:n]...)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = Category20[i%len(Category20)]
	}
	return out
}

// parseColor converts "#rrggbb" (or "rrggbb") to a drawing color.
func parseColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(strings.TrimSpace(hex), "#"))
}

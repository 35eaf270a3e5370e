package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrTooFewHeights is returned when fewer bar heights are supplied than bars.
var ErrTooFewHeights = errors.New("fewer bar heights than categories")

// Bar is one category of the presentation bar chart. Height is supplied by
// the caller and carries no statistical meaning; Count is the real count
// printed on the label.
type Bar struct {
	Category string
	Count    int
	Height   float64
	Color    string
}

// Label returns the category annotated with its comma-formatted count.
func (b Bar) Label() string {
	return fmt.Sprintf("%s %s", b.Category, humanize.Comma(int64(b.Count)))
}

// BarOptions configures the category bar chart.
type BarOptions struct {
	Options
	Title string
	// Colors maps category names to "#rrggbb".
	Colors map[string]string
	// Heights are assigned to bars in order.
	Heights []float64
	// YMax is the top of the hidden value axis.
	YMax float64
}

// DefaultBarOptions returns the VITON-HD presentation defaults.
func DefaultBarOptions() BarOptions {
	return BarOptions{
		Options: Options{Format: FormatPNG, Width: 600, Height: 400},
		Title:   "VITON-HD distribution",
		Colors: map[string]string{
			"TOPS":        "#4477AA",
			"WHOLEBODIES": "#EE6677",
			"SKIRTS":      "#228833",
			"PANTS":       "#CCBB44",
			"OUTWEARS":    "#66CCEE",
		},
		Heights: []float64{100, 8, 4, 2, 1},
		YMax:    110,
	}
}

// Category is a category name with its real count.
type Category struct {
	Name  string
	Count int
}

// BuildBars pairs categories with the configured heights and colors.
// Categories missing from the color map take a palette color and produce a
// warning.
func BuildBars(cats []Category, opt BarOptions) ([]Bar, []string, error) {
	if len(cats) > len(opt.Heights) {
		return nil, nil, fmt.Errorf("%w: %d categories, %d heights", ErrTooFewHeights, len(cats), len(opt.Heights))
	}
	palette := Palette(len(cats))
	var warnings []string
	bars := make([]Bar, len(cats))
	for i, c := range cats {
		b := Bar{Category: c.Name, Count: c.Count, Height: opt.Heights[i]}
		if col, ok := lookupColor(opt.Colors, c.Name); ok {
			b.Color = col
		} else {
			if palette != nil {
				b.Color = palette[i]
			} else {
				b.Color = Category10[0]
			}
			log.Warn().Str("category", c.Name).Str("color", b.Color).Msg("category has no configured color")
			warnings = append(warnings, fmt.Sprintf("category %s has no configured color; using %s", c.Name, b.Color))
		}
		bars[i] = b
	}
	return bars, warnings, nil
}

// lookupColor matches category names case-insensitively; config loaders
// may lowercase map keys.
func lookupColor(colors map[string]string, name string) (string, bool) {
	if c, ok := colors[name]; ok {
		return c, true
	}
	for k, c := range colors {
		if strings.EqualFold(k, name) {
			return c, true
		}
	}
	return "", false
}

// RenderBars draws bars with their supplied heights on a hidden value axis.
func RenderBars(w io.Writer, bars []Bar, opt BarOptions) error {
	if len(bars) == 0 {
		return ErrNoSegments
	}
	opt.Options = opt.Options.withDefaults()
	ymax := opt.YMax
	if ymax <= 0 {
		for _, b := range bars {
			if b.Height > ymax {
				ymax = b.Height
			}
		}
		ymax *= 1.1
	}

	values := make([]gochart.Value, len(bars))
	for i, b := range bars {
		values[i] = gochart.Value{
			Value: b.Height,
			Label: b.Label(),
			Style: gochart.Style{
				FillColor:   parseColor(b.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		}
	}

	spacing := 20
	width := (opt.Width-120)/len(bars) - spacing
	if width < 10 {
		width = 10
	}
	bc := gochart.BarChart{
		Title:      opt.Title,
		Width:      opt.Width,
		Height:     opt.Height,
		BarWidth:   width,
		BarSpacing: spacing,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.Style{FontSize: 9},
		YAxis: gochart.YAxis{
			Style: gochart.Hidden(),
			Range: &gochart.ContinuousRange{Min: 0, Max: ymax},
		},
		Bars: values,
	}
	if err := bc.Render(opt.Format.provider(), w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/tagdist-cli/internal/distribution"
)

// ErrNoSegments is returned when there is nothing to draw.
var ErrNoSegments = errors.New("no segments to render")

// legendWidth is the space reserved right of the pie for the legend.
const legendWidth = 170

// Wedge is one slice of a pie with its angular span in radians.
type Wedge struct {
	Label      string
	Proportion float64
	Color      string
	Start      float64
	End        float64
}

// Wedges assigns colors and angles to segments. Each wedge spans
// proportion * 2π; start and end are running sums from zero.
func Wedges(segs distribution.Grouped) []Wedge {
	palette := Palette(len(segs))
	out := make([]Wedge, len(segs))
	acc := 0.0
	for i, s := range segs {
		w := Wedge{Label: s.Label, Proportion: s.Proportion, Start: acc}
		acc += s.Proportion * 2 * math.Pi
		w.End = acc
		if palette != nil {
			w.Color = palette[i]
		}
		out[i] = w
	}
	return out
}

// Title formats an attribute column name for display.
func Title(attribute string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(attribute, "_", " "))
}

// RenderPie draws the grouped distribution of one attribute as a donut chart
// with a legend. A single segment has no defined palette; it is drawn with
// the renderer's default color and reported in the returned warnings.
func RenderPie(w io.Writer, attribute string, segs distribution.Grouped, opt Options) ([]string, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%s: %w", attribute, ErrNoSegments)
	}
	opt = opt.withDefaults()

	var warnings []string
	if len(segs) == 1 {
		msg := fmt.Sprintf("%s: there is only one segment in the data", attribute)
		log.Warn().Str("attribute", attribute).Msg("only one segment in the data")
		warnings = append(warnings, msg)
	}

	wedges := Wedges(segs)
	values := make([]gochart.Value, len(wedges))
	for i, wd := range wedges {
		v := gochart.Value{
			Value: wd.Proportion,
			Label: fmt.Sprintf("%.0f%%", wd.Proportion*100),
		}
		if wd.Color != "" {
			v.Style = gochart.Style{
				FillColor:   parseColor(wd.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
				FontSize:    9,
			}
		}
		values[i] = v
	}

	pie := gochart.PieChart{
		Title:  Title(attribute),
		Width:  opt.Width,
		Height: opt.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: legendWidth, Bottom: 20},
		},
		Values:   values,
		Elements: []gochart.Renderable{donutHole(0.5), legend(wedges)},
	}
	if err := pie.Render(opt.Format.provider(), w); err != nil {
		return warnings, fmt.Errorf("render %s pie: %w", attribute, err)
	}
	return warnings, nil
}

// donutHole paints a white disc of ratio * radius over the pie center.
func donutHole(ratio float64) gochart.Renderable {
	return func(r gochart.Renderer, box gochart.Box, defaults gochart.Style) {
		cx, cy := box.Center()
		radius := float64(box.Width()) / 2 * ratio
		r.SetFillColor(drawing.ColorWhite)
		r.SetStrokeColor(drawing.ColorWhite)
		r.MoveTo(cx, cy)
		r.Circle(radius, cx, cy)
		r.Close()
		r.FillStroke()
		r.ResetStyle()
	}
}

// legend lists each wedge with a color swatch to the right of the pie.
func legend(wedges []Wedge) gochart.Renderable {
	return func(r gochart.Renderer, box gochart.Box, defaults gochart.Style) {
		text := gochart.Style{FontSize: 10, FontColor: drawing.ColorBlack}.InheritFrom(defaults)
		x := box.Right + 24
		y := box.Top + 8
		for _, wd := range wedges {
			swatch := gochart.Style{StrokeColor: drawing.ColorWhite, StrokeWidth: 1}
			if wd.Color != "" {
				swatch.FillColor = parseColor(wd.Color)
			} else {
				swatch.FillColor = parseColor(Category10[0])
			}
			gochart.Draw.Box(r, gochart.Box{Top: y, Left: x, Right: x + 12, Bottom: y + 12}, swatch)
			gochart.Draw.Text(r, wd.Label, x+18, y+11, text)
			y += 20
		}
	}
}

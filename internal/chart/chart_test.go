package chart

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tagdist-cli/internal/distribution"
	"github.com/KaramelBytes/tagdist-cli/internal/utils"
)

func TestPaletteSizes(t *testing.T) {
	assert.Nil(t, Palette(0))
	assert.Nil(t, Palette(1))
	assert.Equal(t, []string{"#1f77b4", "#ff7f0e"}, Palette(2))
	assert.Equal(t, Category10[:3], Palette(3))
	assert.Equal(t, Category10, Palette(10))

	p := Palette(23)
	require.Len(t, p, 23)
	assert.Equal(t, Category20[0], p[20])
}

func TestWedgeAngles(t *testing.T) {
	segs := distribution.Grouped{{Label: "A", Proportion: 0.5}, {Label: "B", Proportion: 0.3}, {Label: "Others", Proportion: 0.2}}
	w := Wedges(segs)
	require.Len(t, w, 3)
	assert.Equal(t, 0.0, w[0].Start)
	assert.InDelta(t, math.Pi, w[0].End, 1e-12)
	assert.Equal(t, w[0].End, w[1].Start)
	assert.InDelta(t, 2*math.Pi, w[2].End, 1e-12)
	assert.Equal(t, Category10[2], w[2].Color)
}

func TestRenderPieSVG(t *testing.T) {
	segs := distribution.Grouped{{Label: "Short Sleeve", Proportion: 0.7}, {Label: "Long Sleeve", Proportion: 0.3}}
	var buf bytes.Buffer
	warnings, err := RenderPie(&buf, "sleeve_length", segs, Options{Format: FormatSVG})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "Sleeve Length")
	assert.Contains(t, out, "Short Sleeve")
}

func TestRenderPieSingleSegmentWarns(t *testing.T) {
	var buf bytes.Buffer
	warnings, err := RenderPie(&buf, "category_name", distribution.Grouped{{Label: "Tops", Proportion: 1}}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "only one segment")
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestRenderPieEmpty(t *testing.T) {
	_, err := RenderPie(&bytes.Buffer{}, "x", nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestBuildBars(t *testing.T) {
	opt := DefaultBarOptions()
	cats := []Category{{Name: "TOPS", Count: 11647}, {Name: "HATS", Count: 3}}
	bars, warnings, err := BuildBars(cats, opt)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "#4477AA", bars[0].Color)
	assert.Equal(t, 100.0, bars[0].Height)
	assert.Equal(t, "TOPS 11,647", bars[0].Label())
	assert.Equal(t, "#ff7f0e", bars[1].Color)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "HATS")

	opt.Heights = []float64{100}
	_, _, err = BuildBars(cats, opt)
	assert.ErrorIs(t, err, ErrTooFewHeights)
}

func TestRenderBarsToFile(t *testing.T) {
	opt := DefaultBarOptions()
	opt.Format = FormatSVG
	bars, _, err := BuildBars([]Category{{Name: "TOPS", Count: 5}, {Name: "PANTS", Count: 2}}, opt)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "figures", "categories.svg")
	require.NoError(t, utils.WriteRendered(path, func(w io.Writer) error { return RenderBars(w, bars, opt) }))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "VITON-HD distribution")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "svg", f.Ext())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, "png", f.Ext())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestBuildBarsColorLookupIgnoresCase(t *testing.T) {
	opt := DefaultBarOptions()
	opt.Colors = map[string]string{"tops": "#000000"}
	bars, warnings, err := BuildBars([]Category{{Name: "TOPS", Count: 1}}, opt)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "#000000", bars[0].Color)
}

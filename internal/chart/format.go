package chart

import (
	"fmt"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// Format selects the image encoding of a rendered chart.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" in any case; empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unsupported chart format %q (want png or svg)", s)
}

// Ext is the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatSVG {
		return "svg"
	}
	return "png"
}

func (f Format) provider() gochart.RendererProvider {
	if f == FormatSVG {
		return gochart.SVG
	}
	return gochart.PNG
}

// Options holds the canvas settings shared by every chart.
type Options struct {
	Format Format
	Width  int
	Height int
}

// DefaultOptions mirrors the figure size used for attribute pies.
func DefaultOptions() Options {
	return Options{Format: FormatPNG, Width: 500, Height: 350}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

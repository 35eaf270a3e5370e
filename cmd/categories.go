package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tagdist-cli/internal/chart"
	"github.com/KaramelBytes/tagdist-cli/internal/dataset"
	"github.com/KaramelBytes/tagdist-cli/internal/distribution"
	"github.com/KaramelBytes/tagdist-cli/internal/utils"
)

var (
	catOutput string
	catFormat string
	catTitle  string
	catQuiet  bool
)

var categoriesCmd = &cobra.Command{
	Use:   "categories <dataset.json>",
	Short: "Render a bar chart of category counts with configured colors and bar heights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opt, err := c.BarOptions()
		if err != nil {
			return err
		}
		if catFormat != "" {
			if opt.Format, err = chart.ParseFormat(catFormat); err != nil {
				return err
			}
		}
		if catTitle != "" {
			opt.Title = catTitle
		}

		entries, err := dataset.LoadEntries(args[0])
		if err != nil {
			return err
		}
		cats := categoryCounts(dedupeByFile(entries))
		bars, warnings, err := chart.BuildBars(cats, opt)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			printWarn("%s", w)
		}

		path := catOutput
		if path == "" {
			path = filepath.Join(firstNonEmpty(c.FiguresDir, "figures"), "categories."+opt.Format.Ext())
		}
		if err := utils.WriteRendered(path, func(w io.Writer) error { return chart.RenderBars(w, bars, opt) }); err != nil {
			return err
		}
		if !catQuiet {
			for _, b := range bars {
				fmt.Printf("  %s\n", b.Label())
			}
			printOK("Wrote %s", path)
		}
		return nil
	},
}

// dedupeByFile keeps one entry per file name. A later entry replaces an
// earlier one but keeps its position.
func dedupeByFile(entries []dataset.Entry) []dataset.Entry {
	idx := make(map[string]int, len(entries))
	out := make([]dataset.Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := idx[e.FileName]; ok {
			out[i] = e
			continue
		}
		idx[e.FileName] = len(out)
		out = append(out, e)
	}
	return out
}

// categoryCounts orders categories by descending count with the raw names
// the color map is keyed by.
func categoryCounts(entries []dataset.Entry) []chart.Category {
	cells := make([]dataset.Cell, len(entries))
	for i, e := range entries {
		cells[i] = dataset.Cell{Value: e.CategoryName, Missing: e.CategoryName == ""}
	}
	rows := distribution.ValueCounts(cells)
	cats := make([]chart.Category, len(rows))
	for i, r := range rows {
		name := r.Raw
		if r.Missing {
			name = r.Value
		}
		cats[i] = chart.Category{Name: name, Count: r.Count}
	}
	return cats
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.Flags().StringVarP(&catOutput, "output", "o", "", "output image path (default: <figures_dir>/categories.<ext>)")
	categoriesCmd.Flags().StringVar(&catFormat, "format", "", "image format: png or svg (default: chart_format from config)")
	categoriesCmd.Flags().StringVar(&catTitle, "title", "", "chart title")
	categoriesCmd.Flags().BoolVarP(&catQuiet, "quiet", "q", false, "suppress non-essential output")
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/stoewer/go-strcase"

	"github.com/KaramelBytes/tagdist-cli/internal/chart"
	"github.com/KaramelBytes/tagdist-cli/internal/dataset"
	"github.com/KaramelBytes/tagdist-cli/internal/distribution"
	"github.com/KaramelBytes/tagdist-cli/internal/manifest"
	"github.com/KaramelBytes/tagdist-cli/internal/store"
	"github.com/KaramelBytes/tagdist-cli/internal/utils"
)

var (
	anaSplit     string
	anaOut       string
	anaSave      bool
	anaThreshold float64
	anaFormat    string
	anaSQLite    string
	anaReport    bool
	anaQuiet     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset.json|dataset.csv>",
	Short: "Compute attribute distributions and render one pie chart per attribute",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opt := c.GroupingOptions()
		if cmd.Flags().Changed("threshold") {
			if anaThreshold <= 0 || anaThreshold >= 1 {
				return fmt.Errorf("--threshold must be in (0,1), got %v", anaThreshold)
			}
			opt.Threshold = anaThreshold
		}
		chartOpt, err := c.ChartOptions()
		if err != nil {
			return err
		}
		if anaFormat != "" {
			if chartOpt.Format, err = chart.ParseFormat(anaFormat); err != nil {
				return err
			}
		}

		table, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		dists, err := distribution.ComputeAll(table, opt)
		if err != nil {
			return err
		}
		log.Info().Str("dataset", table.Name).Int("rows", len(table.Rows)).Int("attributes", len(dists)).Msg("distributions computed")
		report := &distribution.Report{Name: table.Name, Split: anaSplit, Rows: len(table.Rows), Distributions: dists}
		if !anaQuiet {
			for _, d := range dists {
				fmt.Println(d.Markdown())
			}
		}

		if anaSave {
			out := firstNonEmpty(anaOut, c.FiguresDir, "figures")
			if err := writeFigures(out, table, report, chartOpt); err != nil {
				return err
			}
		}
		if path := firstNonEmpty(anaSQLite, c.SQLitePath); path != "" {
			if err := recordAnalysis(cmd, path, table, dists, opt); err != nil {
				return err
			}
		}
		return nil
	},
}

// writeFigures renders every distribution under <out>/<split>/ and records
// them in the split's manifest.
func writeFigures(out string, table *dataset.Table, report *distribution.Report, opt chart.Options) error {
	dir := filepath.Join(out, anaSplit)
	m, err := manifest.LoadOrNew(table.Name, anaSplit, dir)
	if err != nil {
		return err
	}
	m.Rows = len(table.Rows)

	names := chartFileNames(report.Distributions, opt.Format)
	for _, d := range report.Distributions {
		path := filepath.Join(dir, names[d.Attribute])
		var warnings []string
		err := utils.WriteRendered(path, func(w io.Writer) error {
			var rerr error
			warnings, rerr = chart.RenderPie(w, d.Attribute, d.Segments, opt)
			return rerr
		})
		if errors.Is(err, chart.ErrNoSegments) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: no segments to draw, chart skipped", d.Attribute))
			printWarn("%s has no segments to draw; skipping chart", d.Attribute)
			continue
		}
		if err != nil {
			return fmt.Errorf("chart %s: %w", d.Attribute, err)
		}
		for _, w := range warnings {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", d.Attribute, w))
			printWarn("%s: %s", d.Attribute, w)
		}
		m.AddChart(manifest.Chart{
			Attribute: d.Attribute,
			Path:      path,
			Format:    string(opt.Format),
			Segments:  len(d.Segments),
			Others:    d.Segments.HasOthers(),
		})
		if !anaQuiet {
			printOK("Wrote %s", path)
		}
	}

	if anaReport {
		if err := utils.SafeWriteFile(filepath.Join(dir, "summary.md"), []byte(report.Markdown())); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		m.Summary = "summary.md"
	}
	m.Warnings = report.Warnings
	if err := m.Save(); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	if !anaQuiet {
		printOK("Charts for %d attributes in %s", len(m.Charts), dir)
	}
	return nil
}

func recordAnalysis(cmd *cobra.Command, path string, table *dataset.Table, dists []*distribution.Distribution, opt distribution.Options) error {
	ctx := cmd.Context()
	st, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()

	run := store.NewRun("analyze", table.Name, anaSplit, len(table.Rows), opt)
	if err := st.SaveRun(ctx, run); err != nil {
		return err
	}
	for _, d := range dists {
		if err := st.SaveDistribution(ctx, run.ID, d); err != nil {
			return err
		}
	}
	if !anaQuiet {
		printOK("Recorded run %s in %s", run.ID, path)
	}
	return nil
}

// chartFileName maps an attribute to a file name, e.g. "Sleeve Length" to
// sleeve_length.png.
func chartFileName(attribute string, f chart.Format) string {
	name := strcase.SnakeCase(attribute)
	if name == "" {
		name = "attribute"
	}
	return name + "." + f.Ext()
}

// chartFileNames assigns every attribute a distinct file name. Attributes
// that map to the same snake_case name get a numeric suffix in column order.
func chartFileNames(dists []*distribution.Distribution, f chart.Format) map[string]string {
	out := make(map[string]string, len(dists))
	used := make(map[string]bool, len(dists))
	for _, d := range dists {
		name := chartFileName(d.Attribute, f)
		if used[name] {
			base := strings.TrimSuffix(name, "."+f.Ext())
			for i := 2; used[name]; i++ {
				name = fmt.Sprintf("%s_%d.%s", base, i, f.Ext())
			}
			printWarn("%s collides with another attribute's chart name; writing %s", d.Attribute, name)
		}
		used[name] = true
		out[d.Attribute] = name
	}
	return out
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaSplit, "split", "train", "split label; charts go to <out>/<split>/")
	analyzeCmd.Flags().StringVarP(&anaOut, "out", "o", "", "output directory (default: figures_dir from config)")
	analyzeCmd.Flags().BoolVar(&anaSave, "save", true, "write charts and manifest to disk")
	analyzeCmd.Flags().Float64Var(&anaThreshold, "threshold", 0, "segment grouping threshold (default: group_threshold from config)")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "", "image format: png or svg (default: chart_format from config)")
	analyzeCmd.Flags().StringVar(&anaSQLite, "sqlite", "", "record the run in this SQLite database")
	analyzeCmd.Flags().BoolVar(&anaReport, "report", true, "write summary.md next to the charts")
	analyzeCmd.Flags().BoolVarP(&anaQuiet, "quiet", "q", false, "suppress non-essential output")
}

package cmd

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tagdist-cli/internal/ai"
	"github.com/KaramelBytes/tagdist-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/tagdist-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tagdist configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "openai_api_key: %s\n", mask(cfg.OpenAIAPIKey))
		fmt.Fprintf(out, "anthropic_api_key: %s\n", mask(cfg.AnthropicAPIKey))
		if cfg.BaseURL != "" {
			fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "max_caption_tokens: %d\n", cfg.MaxCaptionTokens)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(out, "figures_dir: %s\n", cfg.FiguresDir)
		fmt.Fprintf(out, "chart_format: %s\n", cfg.ChartFormat)
		fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
		fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
		fmt.Fprintf(out, "group_threshold: %g\n", cfg.GroupThreshold)
		fmt.Fprintf(out, "min_residual: %g\n", cfg.MinResidual)
		if len(cfg.CategoryColors) > 0 {
			keys := make([]string, 0, len(cfg.CategoryColors))
			for k := range cfg.CategoryColors {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(out, "category_colors:")
			for _, k := range keys {
				fmt.Fprintf(out, "  %s: %s\n", k, cfg.CategoryColors[k])
			}
		}
		if len(cfg.CategoryBarHeights) > 0 {
			fmt.Fprintf(out, "category_bar_heights: %v\n", cfg.CategoryBarHeights)
		}
		if cfg.SQLitePath != "" {
			fmt.Fprintf(out, "sqlite_path: %s\n", cfg.SQLitePath)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

category_colors takes NAME=#rrggbb pairs separated by commas;
category_bar_heights takes a comma-separated list of numbers.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if !slices.Contains(ai.Providers(), p) {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		if c.Model == "" || c.Model == ai.DefaultModel(c.Provider) {
			c.Model = ai.DefaultModel(p)
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "api_key":
		c.APIKey = val
	case "openai_api_key":
		c.OpenAIAPIKey = val
	case "anthropic_api_key":
		c.AnthropicAPIKey = val
	case "base_url":
		c.BaseURL = val
	case "ollama_host":
		c.OllamaHost = val
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for max_tokens: %w", err)
		}
		c.MaxTokens = i
	case "max_caption_tokens":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid non-negative int for max_caption_tokens: %v", val)
		}
		c.MaxCaptionTokens = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for temperature: %w", err)
		}
		c.Temperature = f
	case "figures_dir":
		c.FiguresDir = val
	case "chart_format":
		f, err := chart.ParseFormat(val)
		if err != nil {
			return err
		}
		c.ChartFormat = string(f)
	case "chart_width", "chart_height":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		if key == "chart_width" {
			c.ChartWidth = i
		} else {
			c.ChartHeight = i
		}
	case "group_threshold", "min_residual":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 || f >= 1 {
			return fmt.Errorf("invalid float in (0,1) for %s: %v", key, val)
		}
		if key == "group_threshold" {
			c.GroupThreshold = f
		} else {
			c.MinResidual = f
		}
	case "category_colors":
		m := map[string]string{}
		for _, pair := range strings.Split(val, ",") {
			name, color, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || name == "" || !strings.HasPrefix(color, "#") {
				return fmt.Errorf("invalid category_colors entry %q (want NAME=#rrggbb)", pair)
			}
			m[name] = color
		}
		c.CategoryColors = m
	case "category_bar_heights":
		var hs []float64
		for _, part := range strings.Split(val, ",") {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid bar height %q", part)
			}
			hs = append(hs, f)
		}
		c.CategoryBarHeights = hs
	case "sqlite_path":
		c.SQLitePath = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

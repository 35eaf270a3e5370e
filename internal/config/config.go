package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tagdist-cli/internal/ai"
	"github.com/KaramelBytes/tagdist-cli/internal/chart"
	"github.com/KaramelBytes/tagdist-cli/internal/distribution"
)

// EnvPrefix prefixes every environment override, e.g. TAGDIST_MODEL.
const EnvPrefix = "TAGDIST"

// Global configuration structure.
type Global struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	// Captions longer than this many estimated tokens are cut before prompting; 0 disables.
	MaxCaptionTokens int `mapstructure:"max_caption_tokens" yaml:"max_caption_tokens"`

	// Credentials per provider; injected into the runtime, never read by it.
	APIKey          string `mapstructure:"api_key" yaml:"api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" yaml:"anthropic_api_key"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Figures
	FiguresDir  string `mapstructure:"figures_dir" yaml:"figures_dir"`
	ChartFormat string `mapstructure:"chart_format" yaml:"chart_format"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`

	// Grouping
	GroupThreshold float64 `mapstructure:"group_threshold" yaml:"group_threshold"`
	MinResidual    float64 `mapstructure:"min_residual" yaml:"min_residual"`

	// Category bar chart
	CategoryColors     map[string]string `mapstructure:"category_colors" yaml:"category_colors"`
	CategoryBarHeights []float64         `mapstructure:"category_bar_heights" yaml:"category_bar_heights"`

	// Optional SQLite database recording every run.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`
}

// Dir returns ~/.tagdist.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tagdist"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tagdist/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	grouping := distribution.DefaultOptions()
	pie := chart.DefaultOptions()

	v.SetDefault("provider", ai.ProviderOpenAI)
	v.SetDefault("model", "")
	v.SetDefault("max_tokens", 64)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_caption_tokens", 256)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	v.SetDefault("figures_dir", "figures")
	v.SetDefault("chart_format", string(pie.Format))
	v.SetDefault("chart_width", pie.Width)
	v.SetDefault("chart_height", pie.Height)
	v.SetDefault("group_threshold", grouping.Threshold)
	v.SetDefault("min_residual", grouping.MinResidual)
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.tagdist/config.yaml) > defaults.
// Provider keys also fall back to their conventional variables
// (OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY).
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openai_api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", EnvPrefix+"_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Model == "" {
		c.Model = ai.DefaultModel(c.Provider)
	}
	return &c, nil
}

// GroupingOptions returns the distribution options with the configured
// threshold and minimum residual.
func (c *Global) GroupingOptions() distribution.Options {
	opt := distribution.DefaultOptions()
	if c.GroupThreshold > 0 {
		opt.Threshold = c.GroupThreshold
	}
	if c.MinResidual > 0 {
		opt.MinResidual = c.MinResidual
	}
	return opt
}

// ChartOptions returns the pie chart canvas settings.
func (c *Global) ChartOptions() (chart.Options, error) {
	f, err := chart.ParseFormat(c.ChartFormat)
	if err != nil {
		return chart.Options{}, err
	}
	return chart.Options{Format: f, Width: c.ChartWidth, Height: c.ChartHeight}, nil
}

// BarOptions returns the category bar chart settings.
func (c *Global) BarOptions() (chart.BarOptions, error) {
	opt := chart.DefaultBarOptions()
	f, err := chart.ParseFormat(c.ChartFormat)
	if err != nil {
		return opt, err
	}
	opt.Format = f
	if len(c.CategoryColors) > 0 {
		opt.Colors = c.CategoryColors
	}
	if len(c.CategoryBarHeights) > 0 {
		opt.Heights = c.CategoryBarHeights
	}
	return opt, nil
}

// RuntimeConfig builds the runtime settings for provider with the matching
// credentials injected.
func (c *Global) RuntimeConfig(provider string) ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		BaseURL:     c.BaseURL,
	}
	switch provider {
	case ai.ProviderOpenAI:
		rc.APIKey = c.OpenAIAPIKey
	case ai.ProviderAnthropic:
		rc.APIKey = c.AnthropicAPIKey
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	default:
		rc.APIKey = c.APIKey
	}
	return rc
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tagdist-cli/internal/ai"
	"github.com/KaramelBytes/tagdist-cli/internal/caption"
	"github.com/KaramelBytes/tagdist-cli/internal/dataset"
	"github.com/KaramelBytes/tagdist-cli/internal/store"
	"github.com/KaramelBytes/tagdist-cli/internal/utils"
)

var (
	clsOutput      string
	clsProvider    string
	clsModel       string
	clsTemperature float64
	clsMaxTokens   int
	clsCaptionMax  int
	clsPromptFile  string
	clsSQLite      string
	clsTimeoutSec  int
	clsQuiet       bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <captions.txt>",
	Short: "Classify garment captions into sleeves type, neck type and item",
	Long: `Reads one caption per line ("<filename> <description>"), asks the configured
model to label each description as "sleeves_type, neck_type, item" and writes
the results as CSV. Use --output - to print the CSV to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		caps, err := dataset.LoadCaptions(args[0])
		if err != nil {
			return err
		}
		if len(caps) == 0 {
			return fmt.Errorf("no captions found in %s", args[0])
		}

		providerName := strings.ToLower(firstNonEmpty(clsProvider, c.Provider, ai.ProviderOpenAI))
		model := clsModel
		if model == "" {
			if clsProvider != "" && !strings.EqualFold(clsProvider, c.Provider) {
				model = ai.DefaultModel(providerName)
			} else {
				model = c.Model
			}
		}
		rt, err := ai.GetRuntime(providerName, c.RuntimeConfig(providerName))
		if err != nil {
			return err
		}

		temperature := c.Temperature
		if cmd.Flags().Changed("temperature") {
			temperature = clsTemperature
		}
		maxTokens := c.MaxTokens
		if clsMaxTokens > 0 {
			maxTokens = clsMaxTokens
		}
		captionMax := c.MaxCaptionTokens
		if cmd.Flags().Changed("max-caption-tokens") {
			captionMax = clsCaptionMax
		}
		prompt := ""
		if clsPromptFile != "" {
			b, err := os.ReadFile(clsPromptFile)
			if err != nil {
				return fmt.Errorf("read prompt file: %w", err)
			}
			prompt = string(b)
		}
		classifier, err := caption.New(caption.Config{
			Runtime:          rt,
			Model:            model,
			Temperature:      temperature,
			MaxTokens:        maxTokens,
			Prompt:           prompt,
			MaxCaptionTokens: captionMax,
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if clsTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(clsTimeoutSec)*time.Second)
			defer cancel()
		}

		var sp *spinner.Spinner
		if !clsQuiet {
			fmt.Printf("⚙ Classifying %d captions with %s model=%s ...\n", len(caps), providerName, model)
			sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = fmt.Sprintf(" 0/%d", len(caps))
			sp.Start()
		}
		results, err := classifier.Classify(ctx, caps, func(done, total int) {
			log.Debug().Int("done", done).Int("total", total).Msg("caption classified")
			if sp != nil {
				sp.Lock()
				sp.Suffix = fmt.Sprintf(" %d/%d", done, total)
				sp.Unlock()
			}
		})
		if sp != nil {
			sp.Stop()
		}
		if err != nil {
			return providerHint(err, providerName, model)
		}

		if clsOutput == "-" {
			if err := caption.WriteCSV(cmd.OutOrStdout(), results); err != nil {
				return err
			}
		} else {
			out := firstNonEmpty(clsOutput, "classifications.csv")
			if err := utils.WriteRendered(out, func(w io.Writer) error { return caption.WriteCSV(w, results) }); err != nil {
				return err
			}
			if !clsQuiet {
				printOK("Wrote %d classifications to %s", len(results), out)
			}
		}

		if path := firstNonEmpty(clsSQLite, c.SQLitePath); path != "" {
			st, err := store.Open(ctx, path)
			if err != nil {
				return err
			}
			defer st.Close()
			run := store.NewRun("classify", filepath.Base(args[0]), "", len(results), c.GroupingOptions())
			if err := st.SaveRun(ctx, run); err != nil {
				return err
			}
			if err := st.SaveClassifications(ctx, run.ID, results); err != nil {
				return err
			}
			if !clsQuiet {
				printOK("Recorded run %s in %s", run.ID, path)
			}
		}
		return nil
	},
}

// providerHint wraps err with a user-facing hint for common error classes.
func providerHint(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set TAGDIST_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set %s or add %s in config (~/.tagdist/config.yaml): %w", keyEnvVar(providerName), keyConfigName(providerName), err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name or set --model: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a shorter prompt or lower max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return fmt.Errorf("classification failed: %w", err)
	}
}

func keyEnvVar(providerName string) string {
	switch providerName {
	case ai.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ai.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

func keyConfigName(providerName string) string {
	switch providerName {
	case ai.ProviderOpenAI:
		return "openai_api_key"
	case ai.ProviderAnthropic:
		return "anthropic_api_key"
	default:
		return "api_key"
	}
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVarP(&clsOutput, "output", "o", "", "CSV output path, or - for stdout (default: classifications.csv)")
	classifyCmd.Flags().StringVar(&clsProvider, "provider", "", "model provider: "+strings.Join(ai.Providers(), ", "))
	classifyCmd.Flags().StringVar(&clsModel, "model", "", "model name (default: config model or the provider default)")
	classifyCmd.Flags().Float64Var(&clsTemperature, "temperature", 0, "sampling temperature (overrides config)")
	classifyCmd.Flags().IntVar(&clsMaxTokens, "max-tokens", 0, "max tokens per answer (overrides config)")
	classifyCmd.Flags().IntVar(&clsCaptionMax, "max-caption-tokens", 0, "truncate captions to about this many tokens, 0 disables (overrides config)")
	classifyCmd.Flags().StringVar(&clsPromptFile, "prompt-file", "", "prompt template file; must contain "+caption.Placeholder)
	classifyCmd.Flags().StringVar(&clsSQLite, "sqlite", "", "record the run in this SQLite database")
	classifyCmd.Flags().IntVar(&clsTimeoutSec, "timeout", 0, "overall timeout in seconds")
	classifyCmd.Flags().BoolVarP(&clsQuiet, "quiet", "q", false, "suppress progress output")
}

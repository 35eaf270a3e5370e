// Package caption classifies free-text garment captions into sleeve type,
// neck type and item through a text-generation runtime.
package caption

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/tagdist-cli/internal/ai"
	"github.com/KaramelBytes/tagdist-cli/internal/dataset"
	"github.com/KaramelBytes/tagdist-cli/internal/utils"
)

// NotPresent marks a field the caption does not mention.
const NotPresent = "N/A"

// Placeholder is replaced by the caption text in the prompt template.
const Placeholder = "{{text}}"

// DefaultPrompt asks for the three fields as one comma-separated line.
const DefaultPrompt = `Classify the following text into three categories: sleeves type, neck type, and item.
Provide the result in a string format separated by ',' as "sleeves_type, neck_type, item".
If a category is not present, mark it as "N/A".
Example:
Text: "Short Sleeves Round Neck T-Shirt"
Result: "Short Sleeves, Round Neck, T-Shirt"

Text: "` + Placeholder + `"
Result:`

// Columns is the header of the classification CSV.
var Columns = []string{"filename", "sleeves_type", "neck_type", "item"}

// ErrUnparsable is returned when a model answer is not three comma-separated fields.
var ErrUnparsable = errors.New("unparsable classification")

// Config is the explicit configuration of a Classifier. Credentials live in
// the Runtime, which the caller builds.
type Config struct {
	Runtime     ai.Runtime
	Model       string
	Temperature float64
	MaxTokens   int
	// Prompt is a template containing Placeholder; empty uses DefaultPrompt.
	Prompt string
	// MaxCaptionTokens truncates long captions before prompting; 0 disables.
	MaxCaptionTokens int
}

// Result is the classification of one caption.
type Result struct {
	FileName    string `json:"filename"`
	SleevesType string `json:"sleeves_type"`
	NeckType    string `json:"neck_type"`
	Item        string `json:"item"`
}

// Record returns the CSV record for r in Columns order.
func (r Result) Record() []string {
	return []string{r.FileName, r.SleevesType, r.NeckType, r.Item}
}

// Classifier sends one request per caption.
type Classifier struct {
	cfg Config
}

// New validates cfg and returns a Classifier.
func New(cfg Config) (*Classifier, error) {
	if cfg.Runtime == nil {
		return nil, errors.New("caption: runtime is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("caption: model is required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if !strings.Contains(cfg.Prompt, Placeholder) {
		return nil, fmt.Errorf("caption: prompt template must contain %s", Placeholder)
	}
	return &Classifier{cfg: cfg}, nil
}

// Prompt renders the prompt for one caption description.
func (c *Classifier) Prompt(description string) string {
	text := utils.TruncateToTokenLimit(description, c.cfg.MaxCaptionTokens)
	return strings.ReplaceAll(c.cfg.Prompt, Placeholder, text)
}

// ClassifyOne sends a single caption to the model and parses the answer.
func (c *Classifier) ClassifyOne(ctx context.Context, item dataset.Caption) (Result, error) {
	prompt := c.Prompt(item.Description)
	log.Debug().Str("file", item.FileName).Int("prompt_tokens", utils.CountTokens(prompt)).Msg("classifying caption")
	resp, err := c.cfg.Runtime.Generate(ctx, ai.UserPrompt(c.cfg.Model, prompt, c.cfg.MaxTokens, c.cfg.Temperature))
	if err != nil {
		return Result{}, fmt.Errorf("classify %s: %w", item.FileName, err)
	}
	res, err := ParseResult(resp.Text())
	if err != nil {
		return Result{}, fmt.Errorf("classify %s: %w", item.FileName, err)
	}
	res.FileName = item.FileName
	return res, nil
}

// Classify processes captions in order and stops at the first failure.
// progress, when non-nil, is called after each caption with the number done.
func (c *Classifier) Classify(ctx context.Context, caps []dataset.Caption, progress func(done, total int)) ([]Result, error) {
	out := make([]Result, 0, len(caps))
	for i, item := range caps {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := c.ClassifyOne(ctx, item)
		if err != nil {
			return out, err
		}
		out = append(out, res)
		if progress != nil {
			progress(i+1, len(caps))
		}
	}
	return out, nil
}

// ParseResult reads a model answer of the form
// "sleeves_type, neck_type, item". A leading "Result:" label, surrounding
// quotes and any lines after the first non-empty one are ignored.
func ParseResult(text string) (Result, error) {
	line := ""
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if len(line) >= len("result:") && strings.EqualFold(line[:len("result:")], "result:") {
		line = strings.TrimSpace(line[len("result:"):])
	}
	line = strings.Trim(line, "\"'` ")
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Result{}, fmt.Errorf("%w: %q", ErrUnparsable, text)
	}
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), "\"'")
		if parts[i] == "" {
			parts[i] = NotPresent
		}
	}
	return Result{SleevesType: parts[0], NeckType: parts[1], Item: parts[2]}, nil
}

// WriteCSV writes results with a Columns header.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write %s: %w", r.FileName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

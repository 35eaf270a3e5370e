package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

// defaultAnthropicMaxTokens is sent when the request leaves MaxTokens unset;
// the Messages API requires the field.
const defaultAnthropicMaxTokens = 1024

// AnthropicRuntime generates through the Anthropic Messages API.
type AnthropicRuntime struct {
	client *anthropic.Client
}

// NewAnthropicRuntime builds a runtime from injected credentials.
func NewAnthropicRuntime(cfg RuntimeConfig) (*AnthropicRuntime, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Anthropic API key is missing")
	}
	opts := []anoption.RequestOption{
		anoption.WithAPIKey(cfg.APIKey),
		anoption.WithMaxRetries(cfg.RetryMax),
		anoption.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anoption.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicRuntime{client: &client}, nil
}

func (r *AnthropicRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	maxTokens := int64(defaultAnthropicMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	for _, m := range req.Messages {
		switch strings.ToLower(m.Role) {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := &GenerateResponse{
		ID:        resp.ID,
		RequestID: resp.ID,
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	log.Debug().
		Str("model", req.Model).
		Int("input_tokens", out.Usage.PromptTokens).
		Int("output_tokens", out.Usage.CompletionTokens).
		Msg("anthropic message finished")
	return out, nil
}

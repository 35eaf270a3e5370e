package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	oaoption "github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// OpenAIRuntime generates through the official OpenAI SDK.
type OpenAIRuntime struct {
	client *openai.Client
}

// NewOpenAIRuntime builds a runtime from injected credentials. The SDK's own
// retry loop is bounded by cfg.RetryMax.
func NewOpenAIRuntime(cfg RuntimeConfig) (*OpenAIRuntime, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is missing")
	}
	opts := []oaoption.RequestOption{
		oaoption.WithAPIKey(cfg.APIKey),
		oaoption.WithMaxRetries(cfg.RetryMax),
		oaoption.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, oaoption.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIRuntime{client: &client}, nil
}

func (r *OpenAIRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: openAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(err)
	}
	out := &GenerateResponse{
		ID:        resp.ID,
		RequestID: resp.ID,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: "assistant", Content: ch.Message.Content}})
	}
	log.Debug().
		Str("model", req.Model).
		Int("prompt_tokens", out.Usage.PromptTokens).
		Int("completion_tokens", out.Usage.CompletionTokens).
		Msg("openai completion finished")
	return out, nil
}

func openAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

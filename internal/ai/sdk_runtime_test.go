package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestOpenAIRuntimeGenerate(t *testing.T) {
	var body map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Short Sleeves, Round Neck, T-Shirt"},
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
		})
	}))
	defer srv.Close()

	rt, err := NewOpenAIRuntime(RuntimeConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", HTTPTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := rt.Generate(ctx, UserPrompt("gpt-4o-mini", "Text: \"Short Sleeves Round Neck T-Shirt\"", 64, 0.2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "Short Sleeves, Round Neck, T-Shirt" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 19 || resp.ID != "chatcmpl-1" {
		t.Fatalf("unexpected metadata: %+v", resp)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Fatalf("model not forwarded: %v", body["model"])
	}
}

func TestOpenAIRuntimeSendsZeroTemperature(t *testing.T) {
	var body map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-2",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "N/A, N/A, Skirt"},
			}},
		})
	}))
	defer srv.Close()

	rt, err := NewOpenAIRuntime(RuntimeConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if _, err := rt.Generate(context.Background(), UserPrompt("gpt-4o-mini", "Denim Skirt", 0, 0)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	temp, ok := body["temperature"]
	if !ok || temp.(float64) != 0 {
		t.Fatalf("expected temperature 0 in request, got %v", body)
	}
}

func TestOpenAIRuntimeAuthError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "Incorrect API key", "type": "invalid_request_error", "code": "invalid_api_key"}})
	}))
	defer srv.Close()

	rt, err := NewOpenAIRuntime(RuntimeConfig{APIKey: "sk-bad", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	_, err = rt.Generate(context.Background(), UserPrompt("gpt-4o-mini", "hi", 0, 0))
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
}

func TestAnthropicRuntimeGenerate(t *testing.T) {
	var body map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("X-Api-Key"); got != "ak-test" {
			t.Errorf("unexpected api key header %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-3-5-haiku-latest",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": "Long Sleeves, V-Neck, Blouse"}},
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 6},
		})
	}))
	defer srv.Close()

	rt, err := NewAnthropicRuntime(RuntimeConfig{APIKey: "ak-test", BaseURL: srv.URL + "/", HTTPTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	req := GenerateRequest{
		Model: "claude-3-5-haiku-latest",
		Messages: []Message{
			{Role: "system", Content: "You classify garments."},
			{Role: "user", Content: "Long Sleeve V-Neck Blouse"},
		},
	}
	resp, err := rt.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "Long Sleeves, V-Neck, Blouse" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 16 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if mt, _ := body["max_tokens"].(float64); mt != defaultAnthropicMaxTokens {
		t.Fatalf("expected default max_tokens, got %v", body["max_tokens"])
	}
	if _, ok := body["temperature"]; ok {
		t.Fatalf("unset temperature must be omitted: %v", body["temperature"])
	}
	if _, ok := body["system"]; !ok {
		t.Fatalf("system prompt not forwarded: %v", body)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one user message, got %d", len(msgs))
	}
}

func TestSDKRuntimesRequireKey(t *testing.T) {
	if _, err := NewOpenAIRuntime(RuntimeConfig{}); err == nil {
		t.Fatalf("expected missing OpenAI key error")
	}
	if _, err := NewAnthropicRuntime(RuntimeConfig{}); err == nil {
		t.Fatalf("expected missing Anthropic key error")
	}
}

func TestRegistryProviders(t *testing.T) {
	got := strings.Join(Providers(), ",")
	if got != "anthropic,ollama,openai,openrouter" {
		t.Fatalf("unexpected providers %s", got)
	}
	if _, err := GetRuntime("gemini", RuntimeConfig{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	rt, err := GetRuntime(ProviderOllama, RuntimeConfig{Host: "http://127.0.0.1:11434"})
	if err != nil {
		t.Fatalf("ollama runtime: %v", err)
	}
	if _, ok := rt.(*OllamaClient); !ok {
		t.Fatalf("unexpected runtime type %T", rt)
	}
	if DefaultModel(ProviderOpenAI) != "gpt-4o-mini" {
		t.Fatalf("unexpected default model %s", DefaultModel(ProviderOpenAI))
	}
}

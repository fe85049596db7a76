package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
)

func newTestVLLM(t *testing.T, handler http.HandlerFunc) *VLLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewVLLM(VLLMConfig{BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create vLLM client: %v", err)
	}
	return client
}

func TestVLLM_RespondForwardsSampling(t *testing.T) {
	var got map[string]interface{}
	client := newTestVLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"text":" The sky is blue. ","finish_reason":"stop"}],"usage":{"completion_tokens":6}}`))
	})

	sampling := entities.DefaultSamplingConfig()
	sampling.Temperature = 0
	sampling.MaxTokens = 64

	reply, err := client.Respond(context.Background(), entities.ConversationRequest{Prompt: "<|im_start|>system\nhi"}, sampling)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if reply.Text != "The sky is blue." {
		t.Errorf("Expected trimmed reply, got %q", reply.Text)
	}
	if reply.TokenCount != 6 {
		t.Errorf("Expected 6 tokens, got %d", reply.TokenCount)
	}

	temperature, ok := got["temperature"]
	if !ok || temperature.(float64) != 0 {
		t.Errorf("Expected temperature 0 to be forwarded, got %v", temperature)
	}
	if got["max_tokens"].(float64) != 64 {
		t.Errorf("Expected max_tokens 64, got %v", got["max_tokens"])
	}
	if got["repetition_penalty"].(float64) != 1.05 {
		t.Errorf("Expected repetition_penalty 1.05, got %v", got["repetition_penalty"])
	}
	if got["model"] != defaultVLLMModel {
		t.Errorf("Expected default model %s, got %v", defaultVLLMModel, got["model"])
	}
}

func TestVLLM_RespondErrors(t *testing.T) {
	client := newTestVLLM(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})
	request := entities.ConversationRequest{Prompt: "prompt"}

	_, err := client.Respond(context.Background(), request, entities.DefaultSamplingConfig())
	if !errors.Is(err, domain.ErrGeneration) {
		t.Errorf("Expected ErrGeneration for server error, got %v", err)
	}

	bad := entities.DefaultSamplingConfig()
	bad.MaxTokens = 0
	_, err = client.Respond(context.Background(), request, bad)
	if !errors.Is(err, domain.ErrGeneration) {
		t.Errorf("Expected ErrGeneration for invalid sampling, got %v", err)
	}

	empty := newTestVLLM(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":"   "}]}`))
	})
	_, err = empty.Respond(context.Background(), request, entities.DefaultSamplingConfig())
	if !errors.Is(err, domain.ErrGeneration) {
		t.Errorf("Expected ErrGeneration for empty reply, got %v", err)
	}
}

func TestValidateVLLMConfig(t *testing.T) {
	if err := ValidateVLLMConfig(VLLMConfig{BaseURL: "localhost:8000"}); err == nil {
		t.Error("Expected error for base URL without scheme")
	}
	if err := ValidateVLLMConfig(VLLMConfig{TimeoutSeconds: -1}); err == nil {
		t.Error("Expected error for negative timeout")
	}
	if err := ValidateVLLMConfig(VLLMConfig{}); err != nil {
		t.Errorf("Expected empty config to be valid, got %v", err)
	}
}

func TestVLLMBenchmarkModel_Stages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"Qwen/Qwen2.5-7B-Instruct"}]}`))
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[1,2,3],"count":3}`))
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["return_tokens_as_token_ids"] != true {
			t.Errorf("Expected token ids to be requested, got %v", req["return_tokens_as_token_ids"])
		}
		if req["max_tokens"].(float64) != 512 {
			t.Errorf("Expected max_tokens 512, got %v", req["max_tokens"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"text":"Hi","logprobs":{"tokens":["token_id:10","token_id:11"]}}]}`))
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []int `json:"tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tokens) != 2 {
			t.Errorf("Expected only generated tokens to be decoded, got %v", req.Tokens)
		}
		_, _ = w.Write([]byte(`{"prompt":"Hello there<|im_end|>"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	model, err := NewVLLMBenchmarkModel(VLLMConfig{BaseURL: server.URL, Model: "Qwen/Qwen2.5-7B-Instruct"},
		entities.DefaultSamplingConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create benchmark model: %v", err)
	}
	ctx := context.Background()

	if err := model.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ids, err := model.Tokenize(ctx, "prompt")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	out, err := model.Generate(ctx, ids, 512)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	expected := []int{1, 2, 3, 10, 11}
	if len(out) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, out)
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Expected id %d at %d, got %d", expected[i], i, out[i])
		}
	}

	text, err := model.Decode(ctx, out[len(ids):])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if text != "Hello there" {
		t.Errorf("Expected special tokens to be stripped, got %q", text)
	}
}

func TestVLLMBenchmarkModel_LoadTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"other-model"}]}`))
	}))
	defer server.Close()

	model, err := NewVLLMBenchmarkModel(VLLMConfig{BaseURL: server.URL}, entities.DefaultSamplingConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create benchmark model: %v", err)
	}
	model.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := model.Load(ctx); err == nil {
		t.Error("Expected Load to fail when the model is never served")
	}
}

func TestParseTokenID(t *testing.T) {
	if id, err := parseTokenID("token_id:151645"); err != nil || id != 151645 {
		t.Errorf("Expected 151645, got %d (%v)", id, err)
	}
	if _, err := parseTokenID("Hello"); err == nil {
		t.Error("Expected error for token without id prefix")
	}
	if _, err := parseTokenID("token_id:abc"); err == nil {
		t.Error("Expected error for non-numeric id")
	}
}

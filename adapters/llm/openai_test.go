package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
)

const chatResponse = `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"The sky is blue."},"finish_reason":"stop"}],"usage":{"prompt_tokens":20,"completion_tokens":5,"total_tokens":25}}`

func TestOpenAILLM_Respond(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse))
	}))
	defer server.Close()

	client, err := NewOpenAILLM(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	sampling := entities.DefaultSamplingConfig()
	sampling.Temperature = 0
	sampling.MaxTokens = 32

	reply, err := client.Respond(context.Background(), entities.ConversationRequest{System: "be kind", User: "What is the sky?"}, sampling)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if reply.Text != "The sky is blue." || reply.TokenCount != 5 {
		t.Errorf("Unexpected reply %+v", reply)
	}

	messages := got["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("Expected system and user messages, got %d", len(messages))
	}
	if messages[0].(map[string]interface{})["role"] != "system" {
		t.Errorf("Expected first message to be the system role, got %v", messages[0])
	}
	if got["max_tokens"].(float64) != 32 {
		t.Errorf("Expected max_tokens 32, got %v", got["max_tokens"])
	}
	temperature, ok := got["temperature"].(float64)
	if !ok || temperature <= 0 || temperature > 1e-30 {
		t.Errorf("Expected a near-zero temperature for greedy decoding, got %v", got["temperature"])
	}
}

func TestOpenAILLM_Errors(t *testing.T) {
	if _, err := NewOpenAILLM(OpenAIConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error when API key is not set")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client, _ := NewOpenAILLM(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"}, zaptest.NewLogger(t))
	_, err := client.Respond(context.Background(), entities.ConversationRequest{System: "s", User: "u"}, entities.DefaultSamplingConfig())
	if !errors.Is(err, domain.ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
}

func TestFrequencyPenalty(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.0, 0},
		{1.5, 0.5},
		{5, 2},
		{0.001, -0.999},
	}
	for _, tt := range tests {
		if got := frequencyPenalty(tt.in); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("frequencyPenalty(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

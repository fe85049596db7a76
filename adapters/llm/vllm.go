package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const (
	defaultVLLMBaseURL        = "http://localhost:8000"
	defaultVLLMModel          = "Qwen/Qwen2-7B-Instruct"
	defaultVLLMTimeoutSeconds = 120
)

// VLLMConfig holds configuration for an OpenAI-compatible vLLM server
type VLLMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// VLLM sends ChatML-formatted prompts to the raw completions endpoint of a vLLM server,
// which keeps the repetition penalty and special-token handling of the local runtime.
type VLLM struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Ensure VLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*VLLM)(nil)

type completionRequest struct {
	Model                  string      `json:"model"`
	Prompt                 interface{} `json:"prompt"`
	TopP                   float64     `json:"top_p"`
	Temperature            float64     `json:"temperature"`
	RepetitionPenalty      float64     `json:"repetition_penalty"`
	MaxTokens              int         `json:"max_tokens"`
	SkipSpecialTokens      bool        `json:"skip_special_tokens"`
	Logprobs               *int        `json:"logprobs,omitempty"`
	ReturnTokensAsTokenIDs bool        `json:"return_tokens_as_token_ids,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
		Logprobs     *struct {
			Tokens []string `json:"tokens"`
		} `json:"logprobs"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ValidateVLLMConfig validates the VLLMConfig
func ValidateVLLMConfig(config VLLMConfig) error {
	if config.BaseURL != "" && !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return fmt.Errorf("base URL must start with http:// or https://, got %q", config.BaseURL)
	}
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}
	return nil
}

// NewVLLM creates a new vLLM client
func NewVLLM(config VLLMConfig, logger *zap.Logger) (*VLLM, error) {
	if err := ValidateVLLMConfig(config); err != nil {
		return nil, err
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultVLLMBaseURL
		logger.Info("Using default vLLM base URL", zap.String("baseURL", baseURL))
	}

	model := config.Model
	if model == "" {
		model = defaultVLLMModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultVLLMTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	return &VLLM{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:     logger,
	}, nil
}

// Respond completes the rendered prompt. Temperature 0 is sent as is and selects greedy decoding.
func (v *VLLM) Respond(ctx context.Context, request entities.ConversationRequest, sampling entities.SamplingConfig) (entities.Reply, error) {
	if err := sampling.Validate(); err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, err)
	}
	if request.Prompt == "" {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, fmt.Errorf("prompt cannot be empty"))
	}

	var resp completionResponse
	err := v.postJSON(ctx, "/v1/completions", completionRequest{
		Model:             v.model,
		Prompt:            request.Prompt,
		TopP:              sampling.TopP,
		Temperature:       sampling.Temperature,
		RepetitionPenalty: sampling.RepetitionPenalty,
		MaxTokens:         sampling.MaxTokens,
		SkipSpecialTokens: true,
	}, &resp)
	if err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Text) == "" {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, fmt.Errorf("no content generated"))
	}

	reply := entities.Reply{
		Text:       strings.TrimSpace(resp.Choices[0].Text),
		TokenCount: resp.Usage.CompletionTokens,
	}

	v.logger.Info("Generated reply",
		zap.String("model", v.model),
		zap.Int("tokens", reply.TokenCount),
		zap.String("finishReason", resp.Choices[0].FinishReason))

	return reply, nil
}

func (v *VLLM) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return v.do(httpReq, out)
}

func (v *VLLM) getJSON(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	return v.do(httpReq, out)
}

func (v *VLLM) do(httpReq *http.Request, out interface{}) error {
	if v.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	v.logger.Debug("Sending request to vLLM", zap.String("url", httpReq.URL.String()))

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(errorBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

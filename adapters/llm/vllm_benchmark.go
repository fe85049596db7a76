package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const tokenIDPrefix = "token_id:"

// VLLMBenchmarkModel exposes load, tokenize, generate and decode of a vLLM server as separate calls
type VLLMBenchmarkModel struct {
	*VLLM
	sampling     entities.SamplingConfig
	pollInterval time.Duration
}

// Ensure VLLMBenchmarkModel implements the BenchmarkModel interface
var _ repositories.BenchmarkModel = (*VLLMBenchmarkModel)(nil)

// NewVLLMBenchmarkModel creates a benchmark model that samples with sampling
func NewVLLMBenchmarkModel(config VLLMConfig, sampling entities.SamplingConfig, logger *zap.Logger) (*VLLMBenchmarkModel, error) {
	client, err := NewVLLM(config, logger)
	if err != nil {
		return nil, err
	}
	if err := sampling.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sampling configuration: %w", err)
	}
	return &VLLMBenchmarkModel{
		VLLM:         client,
		sampling:     sampling,
		pollInterval: time.Second,
	}, nil
}

// Name implements repositories.BenchmarkModel
func (b *VLLMBenchmarkModel) Name() string {
	return b.model
}

// Load waits until the server lists the model
func (b *VLLMBenchmarkModel) Load(ctx context.Context) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		err := b.modelServed(ctx)
		if err == nil {
			b.logger.Info("Model is being served", zap.String("model", b.model))
			return nil
		}

		b.logger.Debug("Model not ready yet", zap.String("model", b.model), zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to load model %s: %w", b.model, err)
		case <-ticker.C:
		}
	}
}

func (b *VLLMBenchmarkModel) modelServed(ctx context.Context) error {
	var models struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := b.getJSON(ctx, "/v1/models", &models); err != nil {
		return err
	}
	for _, m := range models.Data {
		if m.ID == b.model {
			return nil
		}
	}
	return fmt.Errorf("model %s is not served", b.model)
}

// Tokenize implements repositories.BenchmarkModel. The prompt already carries the chat markers.
func (b *VLLMBenchmarkModel) Tokenize(ctx context.Context, prompt string) ([]int, error) {
	var resp struct {
		Tokens []int `json:"tokens"`
	}
	err := b.postJSON(ctx, "/tokenize", map[string]interface{}{
		"model":              b.model,
		"prompt":             prompt,
		"add_special_tokens": false,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize prompt: %w", err)
	}
	return resp.Tokens, nil
}

// Generate implements repositories.BenchmarkModel
func (b *VLLMBenchmarkModel) Generate(ctx context.Context, inputIDs []int, maxNewTokens int) ([]int, error) {
	if len(inputIDs) == 0 {
		return nil, fmt.Errorf("input ids cannot be empty")
	}

	logprobs := 0
	var resp completionResponse
	err := b.postJSON(ctx, "/v1/completions", completionRequest{
		Model:                  b.model,
		Prompt:                 inputIDs,
		TopP:                   b.sampling.TopP,
		Temperature:            b.sampling.Temperature,
		RepetitionPenalty:      b.sampling.RepetitionPenalty,
		MaxTokens:              maxNewTokens,
		Logprobs:               &logprobs,
		ReturnTokensAsTokenIDs: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to generate: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Logprobs == nil {
		return nil, fmt.Errorf("response carries no generated token ids")
	}

	ids := make([]int, 0, len(inputIDs)+len(resp.Choices[0].Logprobs.Tokens))
	ids = append(ids, inputIDs...)
	for _, token := range resp.Choices[0].Logprobs.Tokens {
		id, err := parseTokenID(token)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Decode implements repositories.BenchmarkModel
func (b *VLLMBenchmarkModel) Decode(ctx context.Context, ids []int) (string, error) {
	var resp struct {
		Prompt string `json:"prompt"`
	}
	err := b.postJSON(ctx, "/detokenize", map[string]interface{}{
		"model":  b.model,
		"tokens": ids,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to decode tokens: %w", err)
	}
	return stripSpecialTokens(resp.Prompt), nil
}

func parseTokenID(token string) (int, error) {
	raw, ok := strings.CutPrefix(token, tokenIDPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected token format %q", token)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q: %w", token, err)
	}
	return id, nil
}

// stripSpecialTokens drops the ChatML and end-of-text markers /detokenize keeps
func stripSpecialTokens(text string) string {
	for _, marker := range []string{"<|im_start|>", "<|im_end|>", "<|endoftext|>"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	return strings.TrimSpace(text)
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const (
	defaultGeminiModel          = "gemini-2.0-flash"
	defaultGeminiTimeoutSeconds = 30
)

// GeminiConfig holds configuration for the Gemini responder
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client         *genai.Client
	logger         *zap.Logger
	model          string
	timeoutSeconds int
}

// Ensure GeminiLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	// Validate timeout is reasonable if specified
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultGeminiTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	return &GeminiLLM{
		client:         client,
		logger:         logger,
		model:          model,
		timeoutSeconds: timeoutSeconds,
	}, nil
}

// Respond sends the system role as system instruction and the user role as content
func (g *GeminiLLM) Respond(ctx context.Context, request entities.ConversationRequest, sampling entities.SamplingConfig) (entities.Reply, error) {
	if err := sampling.Validate(); err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, err)
	}

	contents := []*genai.Content{genai.NewContentFromText(request.User, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(request.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(sampling.Temperature)),
		TopP:              genai.Ptr(float32(sampling.TopP)),
		MaxOutputTokens:   int32(sampling.MaxTokens),
		FrequencyPenalty:  genai.Ptr(float32(frequencyPenalty(sampling.RepetitionPenalty))),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.timeoutSeconds)*time.Second)
	defer cancel()

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration,
			fmt.Errorf("failed to generate content: %w", err))
	}

	text := strings.TrimSpace(responseText(response))
	if text == "" {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, fmt.Errorf("no content generated"))
	}

	reply := entities.Reply{Text: text}
	if response.UsageMetadata != nil {
		reply.TokenCount = int(response.UsageMetadata.CandidatesTokenCount)
	}

	g.logger.Info("Generated reply",
		zap.String("model", g.model),
		zap.Int("tokens", reply.TokenCount))

	return reply, nil
}

func responseText(response *genai.GenerateContentResponse) string {
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

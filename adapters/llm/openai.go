package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const defaultOpenAIChatModel = openai.GPT4oMini

// OpenAIConfig holds configuration for the OpenAI chat responder
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// OpenAILLM implements LargeLanguageModel with the chat completions API
type OpenAILLM struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Ensure OpenAILLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	return nil
}

// NewOpenAILLM creates a new OpenAI chat responder
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultOpenAIChatModel
		logger.Info("Using default model", zap.String("model", model))
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAILLM{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Respond sends the system and user roles as chat messages
func (o *OpenAILLM) Respond(ctx context.Context, request entities.ConversationRequest, sampling entities.SamplingConfig) (entities.Reply, error) {
	if err := sampling.Validate(); err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: request.System},
			{Role: openai.ChatMessageRoleUser, Content: request.User},
		},
		Temperature:      chatTemperature(sampling),
		TopP:             float32(sampling.TopP),
		MaxTokens:        sampling.MaxTokens,
		FrequencyPenalty: float32(frequencyPenalty(sampling.RepetitionPenalty)),
	})
	if err != nil {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration,
			fmt.Errorf("failed to create chat completion: %w", err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return entities.Reply{}, domain.WrapStage(domain.ErrGeneration, fmt.Errorf("no content generated"))
	}

	reply := entities.Reply{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokenCount: resp.Usage.CompletionTokens,
	}

	o.logger.Info("Generated reply",
		zap.String("model", o.model),
		zap.Int("tokens", reply.TokenCount))

	return reply, nil
}

// chatTemperature keeps greedy requests greedy. The client omits a zero temperature from
// the payload, which would make the API fall back to its default of 1.
func chatTemperature(sampling entities.SamplingConfig) float32 {
	if sampling.IsGreedy() {
		return math.SmallestNonzeroFloat32
	}
	return float32(sampling.Temperature)
}

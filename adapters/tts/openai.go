package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/audio"
)

// OpenAIConfig holds configuration for OpenAI speech synthesis
type OpenAIConfig struct {
	APIKey  string  `mapstructure:"api_key"`
	BaseURL string  `mapstructure:"base_url"`
	Model   string  `mapstructure:"model"`
	Voice   string  `mapstructure:"voice"`
	Speed   float64 `mapstructure:"speed"`
}

// OpenAITTS synthesizes speech with the OpenAI audio API. The pcm response
// format is 16-bit mono at 24000 Hz, the rate the writer expects.
type OpenAITTS struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	speed  float64
	logger *zap.Logger
}

// Ensure OpenAITTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*OpenAITTS)(nil)

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if config.Speed != 0 && (config.Speed < 0.25 || config.Speed > 4) {
		return fmt.Errorf("speed must be between 0.25 and 4, got %f", config.Speed)
	}
	return nil
}

// NewOpenAITTS creates a new OpenAI speech synthesizer
func NewOpenAITTS(config OpenAIConfig, logger *zap.Logger) (*OpenAITTS, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	model := openai.SpeechModel(config.Model)
	if model == "" {
		model = openai.TTSModel1
		logger.Info("Using default speech model", zap.String("model", string(model)))
	}

	voice := openai.SpeechVoice(config.Voice)
	if voice == "" {
		voice = openai.VoiceNova
		logger.Info("Using default voice", zap.String("voice", string(voice)))
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAITTS{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		voice:  voice,
		speed:  config.Speed,
		logger: logger,
	}, nil
}

// Synthesize implements repositories.TextToSpeech
func (o *OpenAITTS) Synthesize(ctx context.Context, reply entities.Reply) (entities.WaveformSet, error) {
	if strings.TrimSpace(reply.Text) == "" {
		return nil, domain.WrapStage(domain.ErrSynthesis, fmt.Errorf("text cannot be empty"))
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          reply.Text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          o.speed,
	})
	if err != nil {
		return nil, domain.WrapStage(domain.ErrSynthesis, fmt.Errorf("failed to create speech: %w", err))
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, domain.WrapStage(domain.ErrSynthesis, fmt.Errorf("failed to read audio data: %w", err))
	}

	samples, err := audio.DecodePCM16LE(data)
	if err != nil {
		return nil, domain.WrapStage(domain.ErrSynthesis, err)
	}
	if len(samples) == 0 {
		return nil, domain.WrapStage(domain.ErrSynthesis, fmt.Errorf("no audio returned"))
	}

	o.logger.Info("Synthesized speech",
		zap.String("model", string(o.model)),
		zap.Int("samples", len(samples)))

	return entities.WaveformSet{entities.NewWaveform(samples)}, nil
}

package stt

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

// OpenAIConfig holds configuration for Whisper transcription
type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

// WhisperSpeechToText transcribes audio files with the OpenAI transcription API
type WhisperSpeechToText struct {
	client *openai.Client
	config OpenAIConfig
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

// ValidateOpenAIConfig validates the Whisper configuration
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	return nil
}

// NewWhisperSpeechToText creates a new Whisper transcriber
func NewWhisperSpeechToText(config OpenAIConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, fmt.Errorf("invalid OpenAI configuration: %w", err)
	}

	if config.Model == "" {
		config.Model = openai.Whisper1
		logger.Info("Using default transcription model", zap.String("model", config.Model))
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &WhisperSpeechToText{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// Transcribe uploads the audio file and returns its text
func (w *WhisperSpeechToText) Transcribe(ctx context.Context, audioPath string) (entities.Utterance, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription,
			fmt.Errorf("failed to open audio file: %w", err))
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: audioPath,
		Language: w.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription,
			fmt.Errorf("failed to transcribe audio: %w", err))
	}

	utterance := entities.NewUtterance(resp.Text)
	w.logger.Info("Transcription completed",
		zap.String("audioPath", audioPath),
		zap.String("model", w.config.Model),
		zap.Int("length", len(utterance.Text)))

	return utterance, nil
}

package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/audio"
)

// GoogleConfig holds configuration for Google Cloud Speech-to-Text
type GoogleConfig struct {
	Language string `mapstructure:"language"`
	Model    string `mapstructure:"model"`
}

// recognizer is the subset of the speech client used by GoogleSpeechToText
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client recognizer
	config GoogleConfig
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a speech client using application default credentials
func NewGoogleSpeechToText(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return newGoogleSpeechToText(client, config, logger), nil
}

func newGoogleSpeechToText(client recognizer, config GoogleConfig, logger *zap.Logger) *GoogleSpeechToText {
	if config.Language == "" {
		config.Language = "en-US"
		logger.Info("Using default speech language", zap.String("language", config.Language))
	}
	return &GoogleSpeechToText{
		client: client,
		config: config,
		logger: logger,
	}
}

// Transcribe recognizes the WAV file at audioPath in a single request
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audioPath string) (entities.Utterance, error) {
	info, err := audio.ReadInfo(audioPath)
	if err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription, err)
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription,
			fmt.Errorf("failed to read audio file: %w", err))
	}

	config := audioConfig(info, g.config.Language)
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription, err)
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          encoding,
			SampleRateHertz:   int32(config.SampleRate),
			AudioChannelCount: int32(info.Channels),
			LanguageCode:      config.Language,
			Model:             g.config.Model,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription,
			fmt.Errorf("failed to recognize speech: %w", err))
	}

	// Results cover consecutive portions of the audio
	var parts []string
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) > 0 {
			parts = append(parts, strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()))
		}
	}

	utterance := entities.NewUtterance(strings.Join(parts, " "))
	g.logger.Info("Transcription completed",
		zap.String("audioPath", audioPath),
		zap.Int("sampleRate", config.SampleRate),
		zap.Int("length", len(utterance.Text)))

	return utterance, nil
}

// Close releases the speech client
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

func audioConfig(info *audio.Info, language string) repositories.AudioConfig {
	return repositories.AudioConfig{
		SampleRate: info.SampleRate,
		Encoding:   "LINEAR16",
		Language:   language,
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

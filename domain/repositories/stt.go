package repositories

import (
	"context"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts the audio file at audioPath to text
	Transcribe(ctx context.Context, audioPath string) (entities.Utterance, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

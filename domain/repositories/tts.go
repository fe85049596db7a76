package repositories

import (
	"context"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// TextToSpeech abstracts speech synthesis services.
// Implementations return mono waveforms sampled at 24000 Hz.
type TextToSpeech interface {
	// Synthesize vocalizes the reply into one or more waveforms
	Synthesize(ctx context.Context, reply entities.Reply) (entities.WaveformSet, error)
}

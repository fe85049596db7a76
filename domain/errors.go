package domain

import (
	"errors"
	"fmt"
)

// Stage errors. Every failure returned by the assistant pipeline wraps exactly one of these.
var (
	ErrTranscription = errors.New("transcription error")
	ErrTemplate      = errors.New("template error")
	ErrGeneration    = errors.New("generation error")
	ErrSynthesis     = errors.New("synthesis error")
	ErrWrite         = errors.New("write error")
)

// ErrShapeMismatch reports a waveform whose layout the audio writer cannot store.
// It is the only write failure that triggers the reshape fallback.
var ErrShapeMismatch = errors.New("waveform shape mismatch")

// WrapStage tags err with a stage sentinel so callers can match it with errors.Is
func WrapStage(sentinel, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

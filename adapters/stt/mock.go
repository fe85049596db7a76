package stt

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

// MockSpeechToText returns a fixed transcript for any readable audio file
type MockSpeechToText struct {
	mu         sync.Mutex
	logger     *zap.Logger
	transcript string
	Calls      []string
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(transcript string, logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger:     logger,
		transcript: transcript,
	}
}

// Transcribe returns the configured transcript
func (m *MockSpeechToText) Transcribe(ctx context.Context, audioPath string) (entities.Utterance, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, audioPath)
	m.mu.Unlock()

	if _, err := os.Stat(audioPath); err != nil {
		return entities.Utterance{}, domain.WrapStage(domain.ErrTranscription,
			fmt.Errorf("failed to open audio file: %w", err))
	}

	m.logger.Info("Mock transcription", zap.String("audioPath", audioPath), zap.String("text", m.transcript))
	return entities.NewUtterance(m.transcript), nil
}

package tts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/audio"
)

const mockSamplesPerChar = audio.DefaultSampleRate / 20

// MockTextToSpeech produces a quiet tone sized by the reply and records every text it receives
type MockTextToSpeech struct {
	mu           sync.Mutex
	channelFirst bool
	Received     []string
}

// Ensure MockTextToSpeech implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a mock synthesizer. With channelFirst the waveform is
// shaped [1, N], otherwise [N].
func NewMockTextToSpeech(channelFirst bool) *MockTextToSpeech {
	return &MockTextToSpeech{channelFirst: channelFirst}
}

// Synthesize implements repositories.TextToSpeech
func (m *MockTextToSpeech) Synthesize(ctx context.Context, reply entities.Reply) (entities.WaveformSet, error) {
	m.mu.Lock()
	m.Received = append(m.Received, reply.Text)
	m.mu.Unlock()

	if strings.TrimSpace(reply.Text) == "" {
		return nil, domain.WrapStage(domain.ErrSynthesis, fmt.Errorf("text cannot be empty"))
	}

	samples := make([]float32, len(reply.Text)*mockSamplesPerChar)
	for i := range samples {
		samples[i] = float32(0.1 * math.Sin(2*math.Pi*440*float64(i)/audio.DefaultSampleRate))
	}

	if m.channelFirst {
		return entities.WaveformSet{entities.NewWaveformWithShape(samples, 1, len(samples))}, nil
	}
	return entities.WaveformSet{entities.NewWaveform(samples)}, nil
}

package repositories

import "github.com/rairaimanish/kidsGPT/domain/entities"

// AudioWriter stores waveforms in an audio container.
// Write reports layout problems through the result instead of failing outright,
// so the caller decides whether to retry with another layout.
type AudioWriter interface {
	Write(path string, waveform entities.Waveform, sampleRate int) entities.WriteResult
}

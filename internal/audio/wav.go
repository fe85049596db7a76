package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
)

const (
	// DefaultSampleRate is the rate of synthesized speech
	DefaultSampleRate = 24000

	bitDepth       = 16
	pcmFormat      = 1
	maxChannels    = 2
	maxSampleValue = math.MaxInt16
)

// WAVWriter writes channel-first waveforms as PCM16 WAV files
type WAVWriter struct {
	logger *zap.Logger
}

// Ensure WAVWriter implements the AudioWriter interface
var _ repositories.AudioWriter = (*WAVWriter)(nil)

// NewWAVWriter creates a new WAV writer
func NewWAVWriter(logger *zap.Logger) *WAVWriter {
	return &WAVWriter{logger: logger}
}

// Write stores waveform at path. The waveform must be shaped [channels, frames];
// any other layout yields WriteNeedsFallback and leaves the filesystem untouched.
func (w *WAVWriter) Write(path string, waveform entities.Waveform, sampleRate int) entities.WriteResult {
	channels, frames, err := channelFirstLayout(waveform)
	if err != nil && !errors.Is(err, domain.ErrShapeMismatch) {
		return entities.WriteResult{Status: entities.WriteFailed, Err: err}
	}
	if err != nil {
		w.logger.Debug("Rejected waveform layout",
			zap.String("path", path),
			zap.Ints("shape", waveform.Shape),
			zap.Error(err))
		return entities.WriteResult{Status: entities.WriteNeedsFallback, Err: err}
	}

	if sampleRate <= 0 {
		return entities.WriteResult{
			Status: entities.WriteFailed,
			Err:    fmt.Errorf("sample rate must be positive, got %d", sampleRate),
		}
	}

	if err := encodeFile(path, waveform.Samples, channels, frames, sampleRate); err != nil {
		return entities.WriteResult{Status: entities.WriteFailed, Err: err}
	}

	w.logger.Info("Wrote audio file",
		zap.String("path", path),
		zap.Int("channels", channels),
		zap.Int("frames", frames),
		zap.Int("sampleRate", sampleRate))

	return entities.WriteResult{Status: entities.WriteOK}
}

func channelFirstLayout(waveform entities.Waveform) (int, int, error) {
	if waveform.Rank() != 2 {
		return 0, 0, fmt.Errorf("%w: expected [channels, frames], got %v", domain.ErrShapeMismatch, waveform.Shape)
	}

	channels, frames := waveform.Shape[0], waveform.Shape[1]
	if channels < 1 || channels > maxChannels {
		return 0, 0, fmt.Errorf("%w: unsupported channel count %d", domain.ErrShapeMismatch, channels)
	}
	if waveform.Size() != len(waveform.Samples) {
		return 0, 0, fmt.Errorf("%w: shape %v describes %d samples, have %d",
			domain.ErrShapeMismatch, waveform.Shape, waveform.Size(), len(waveform.Samples))
	}
	if frames == 0 {
		return 0, 0, errors.New("cannot encode empty audio samples")
	}

	return channels, frames, nil
}

func encodeFile(path string, samples []float32, channels, frames, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           interleave(samples, channels, frames),
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}

	return nil
}

// interleave converts channel-first float samples to interleaved PCM16 values
func interleave(samples []float32, channels, frames int) []int {
	out := make([]int, channels*frames)
	for c := 0; c < channels; c++ {
		for i := 0; i < frames; i++ {
			out[i*channels+c] = floatToPCM16(samples[c*frames+i])
		}
	}
	return out
}

func floatToPCM16(v float32) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(math.Round(float64(v) * maxSampleValue))
}

// Info describes a WAV file
type Info struct {
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
}

// ReadInfo reads the format and duration of a WAV file
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	info := &Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if info.SampleRate > 0 && info.Channels > 0 {
		frames := len(buf.Data) / info.Channels
		info.Duration = time.Duration(frames) * time.Second / time.Duration(info.SampleRate)
	}

	return info, nil
}

// ReadWaveform decodes a PCM16 WAV file into a channel-first waveform and its sample rate
func ReadWaveform(path string) (entities.Waveform, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return entities.Waveform{}, 0, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return entities.Waveform{}, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return entities.Waveform{}, 0, fmt.Errorf("failed to decode audio data: %w", err)
	}

	channels := int(dec.NumChans)
	if channels == 0 {
		return entities.Waveform{}, 0, errors.New("no channels in audio file")
	}
	frames := len(buf.Data) / channels

	samples := make([]float32, channels*frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			samples[c*frames+i] = float32(buf.Data[i*channels+c]) / maxSampleValue
		}
	}

	return entities.NewWaveformWithShape(samples, channels, frames), int(dec.SampleRate), nil
}

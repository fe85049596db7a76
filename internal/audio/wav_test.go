package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rairaimanish/kidsGPT/domain"
	"github.com/rairaimanish/kidsGPT/domain/entities"
)

func sineSamples(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		t := float64(i) / DefaultSampleRate
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*t))
	}
	return samples
}

func TestWAVWriter_ChannelFirst(t *testing.T) {
	writer := NewWAVWriter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "out0.wav")

	samples := sineSamples(2400)
	result := writer.Write(path, entities.NewWaveform(samples).Unsqueeze(), DefaultSampleRate)
	if result.Status != entities.WriteOK {
		t.Fatalf("Expected write to succeed, got %s: %v", result.Status, result.Err)
	}

	info, err := ReadInfo(path)
	if err != nil {
		t.Fatalf("Failed to read WAV info: %v", err)
	}
	if info.SampleRate != DefaultSampleRate {
		t.Errorf("Expected sample rate %d, got %d", DefaultSampleRate, info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}
	if info.BitDepth != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitDepth)
	}

	decoded, rate, err := ReadWaveform(path)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}
	if rate != DefaultSampleRate {
		t.Errorf("Expected rate %d, got %d", DefaultSampleRate, rate)
	}
	if decoded.Frames() != len(samples) {
		t.Fatalf("Expected %d frames, got %d", len(samples), decoded.Frames())
	}
	for i := range samples {
		if math.Abs(float64(decoded.Samples[i]-samples[i])) > 1.0/maxSampleValue*2 {
			t.Fatalf("Sample %d mismatch: expected %f, got %f", i, samples[i], decoded.Samples[i])
		}
	}
}

func TestWAVWriter_FlatWaveformNeedsFallback(t *testing.T) {
	writer := NewWAVWriter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "flat.wav")

	result := writer.Write(path, entities.NewWaveform(sineSamples(100)), DefaultSampleRate)
	if result.Status != entities.WriteNeedsFallback {
		t.Fatalf("Expected needs_fallback, got %s", result.Status)
	}
	if !errors.Is(result.Err, domain.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", result.Err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Rejected layout must not create a file")
	}
}

func TestWAVWriter_RankThreeNeedsFallback(t *testing.T) {
	writer := NewWAVWriter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "rank3.wav")

	batched := entities.NewWaveformWithShape(sineSamples(100), 1, 100)
	result := writer.Write(path, batched.Unsqueeze(), DefaultSampleRate)
	if result.Status != entities.WriteNeedsFallback {
		t.Fatalf("Expected needs_fallback for [1 1 100], got %s", result.Status)
	}

	result = writer.Write(path, batched, DefaultSampleRate)
	if result.Status != entities.WriteOK {
		t.Fatalf("Expected [1 100] to be written, got %s: %v", result.Status, result.Err)
	}
}

func TestWAVWriter_IOErrorIsNotShapeMismatch(t *testing.T) {
	writer := NewWAVWriter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "missing-dir", "out.wav")

	result := writer.Write(path, entities.NewWaveform(sineSamples(10)).Unsqueeze(), DefaultSampleRate)
	if result.Status != entities.WriteFailed {
		t.Fatalf("Expected failed status, got %s", result.Status)
	}
	if errors.Is(result.Err, domain.ErrShapeMismatch) {
		t.Error("I/O failures must not be reported as shape mismatches")
	}
}

func TestWAVWriter_StereoInterleaving(t *testing.T) {
	writer := NewWAVWriter(zaptest.NewLogger(t))
	path := filepath.Join(t.TempDir(), "stereo.wav")

	// channel 0 positive, channel 1 negative
	samples := []float32{0.5, 0.5, 0.5, -0.5, -0.5, -0.5}
	result := writer.Write(path, entities.NewWaveformWithShape(samples, 2, 3), DefaultSampleRate)
	if result.Status != entities.WriteOK {
		t.Fatalf("Expected write to succeed, got %s: %v", result.Status, result.Err)
	}

	decoded, _, err := ReadWaveform(path)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}
	if decoded.Shape[0] != 2 || decoded.Shape[1] != 3 {
		t.Fatalf("Expected shape [2 3], got %v", decoded.Shape)
	}
	if decoded.Samples[0] <= 0 || decoded.Samples[3] >= 0 {
		t.Errorf("Channels were not preserved: %v", decoded.Samples)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 1, -1}
	decoded, err := DecodePCM16LE(EncodePCM16LE(samples))
	if err != nil {
		t.Fatalf("DecodePCM16LE failed: %v", err)
	}
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > 1.0/maxSampleValue {
			t.Errorf("Sample %d: expected %f, got %f", i, samples[i], decoded[i])
		}
	}

	if _, err := DecodePCM16LE([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

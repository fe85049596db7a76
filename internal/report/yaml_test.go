package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	run := entities.NewRun("run-1", "prompt.wav", start)
	run.StartStage(entities.StageTranscribe, start)
	run.CompleteStage(entities.StageTranscribe, start.Add(300*time.Millisecond))
	run.Transcript = "What is the sky?"
	run.Outputs = []string{"basic_output0.wav"}
	run.Complete(start.Add(2 * time.Second))

	path := filepath.Join(t.TempDir(), "reports", "run-1.yaml")
	require.NoError(t, WriteRun(path, run))

	got, err := ReadRun(path)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, entities.RunStatusCompleted, got.Status)
	assert.Equal(t, run.Transcript, got.Transcript)
	assert.Equal(t, run.Outputs, got.Outputs)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))

	record, ok := got.Stage(entities.StageTranscribe)
	require.True(t, ok)
	assert.Equal(t, 300.0, record.DurationMs)
}

func TestWriteBenchmark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	err := WriteBenchmark(path, &entities.BenchmarkReport{
		Model:          "Qwen/Qwen2.5-7B-Instruct",
		LoadTime:       3 * time.Second,
		GenerationTime: 1500 * time.Millisecond,
		TotalMemoryMB:  540.25,
		InputTokens:    31,
		OutputTokens:   12,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "model: Qwen/Qwen2.5-7B-Instruct"), text)
	assert.True(t, strings.Contains(text, "load_time: 3s"), text)
	assert.True(t, strings.Contains(text, "generation_time: 1.5s"), text)
	assert.True(t, strings.Contains(text, "total_memory_mb: 540.25"), text)
}

func TestReadRun_Missing(t *testing.T) {
	_, err := ReadRun(filepath.Join(t.TempDir(), "none.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

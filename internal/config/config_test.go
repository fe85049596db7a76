package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/usecase"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, usecase.DefaultSystemInstruction, cfg.Assistant.SystemInstruction)
	assert.Equal(t, "basic_output%d.wav", cfg.Assistant.OutputPattern)
	assert.Equal(t, 24000, cfg.Assistant.SampleRate)
	assert.Equal(t, entities.DefaultSamplingConfig(), cfg.Assistant.Sampling)
	assert.Equal(t, "Qwen/Qwen2-7B-Instruct", cfg.LLM.VLLM.Model)
	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", cfg.Bench.Model)
	assert.Equal(t, 512, cfg.Bench.MaxNewTokens)
	assert.Equal(t, ProviderVLLM, cfg.LLM.Provider)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidsgpt.yaml")
	content := []byte(`
assistant:
  output_pattern: "reply_%02d.wav"
  sampling:
    temperature: 0
llm:
  provider: gemini
tts:
  provider: mock
  mock_channel_first: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("KIDSGPT_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "reply_%02d.wav", cfg.Assistant.OutputPattern)
	assert.Equal(t, 0.0, cfg.Assistant.Sampling.Temperature)
	assert.Equal(t, 0.8, cfg.Assistant.Sampling.TopP, "unset keys keep their defaults")
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider, "environment overrides the file")
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "sk-test", cfg.STT.OpenAI.APIKey)
	assert.Equal(t, ProviderMock, cfg.TTS.Provider)
	assert.True(t, cfg.TTS.MockChannelFirst)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown llm provider", map[string]string{"KIDSGPT_LLM_PROVIDER": "llama"}},
		{"unknown storage driver", map[string]string{"KIDSGPT_STORAGE_DRIVER": "redis"}},
		{"mongo without uri", map[string]string{"KIDSGPT_STORAGE_DRIVER": "mongo", "MONGODB_URI": ""}},
		{"output pattern without verb", map[string]string{"KIDSGPT_ASSISTANT_OUTPUT_PATTERN": "out.wav"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// Package config loads settings from defaults, an optional YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rairaimanish/kidsGPT/adapters/llm"
	"github.com/rairaimanish/kidsGPT/adapters/mongo"
	"github.com/rairaimanish/kidsGPT/adapters/stt"
	"github.com/rairaimanish/kidsGPT/adapters/tts"
	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/internal/audio"
	"github.com/rairaimanish/kidsGPT/usecase"
)

// EnvPrefix prefixes every environment override, e.g. KIDSGPT_LLM_PROVIDER
const EnvPrefix = "KIDSGPT"

// Provider names
const (
	ProviderMock       = "mock"
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
	ProviderVLLM       = "vllm"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"

	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config is the complete application configuration
type Config struct {
	Log       LogConfig               `mapstructure:"log"`
	Assistant usecase.AssistantConfig `mapstructure:"assistant"`
	STT       STTConfig               `mapstructure:"stt"`
	LLM       LLMConfig               `mapstructure:"llm"`
	TTS       TTSConfig               `mapstructure:"tts"`
	Bench     BenchConfig             `mapstructure:"bench"`
	Storage   StorageConfig           `mapstructure:"storage"`
	Server    ServerConfig            `mapstructure:"server"`
}

// LogConfig selects the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// STTConfig selects and configures the transcriber
type STTConfig struct {
	Provider       string           `mapstructure:"provider"`
	MockTranscript string           `mapstructure:"mock_transcript"`
	OpenAI         stt.OpenAIConfig `mapstructure:"openai"`
	Google         stt.GoogleConfig `mapstructure:"google"`
}

// LLMConfig selects and configures the responder
type LLMConfig struct {
	Provider  string           `mapstructure:"provider"`
	MockReply string           `mapstructure:"mock_reply"`
	VLLM      llm.VLLMConfig   `mapstructure:"vllm"`
	OpenAI    llm.OpenAIConfig `mapstructure:"openai"`
	Gemini    llm.GeminiConfig `mapstructure:"gemini"`
}

// TTSConfig selects and configures the synthesizer
type TTSConfig struct {
	Provider         string               `mapstructure:"provider"`
	MockChannelFirst bool                 `mapstructure:"mock_channel_first"`
	ElevenLabs       tts.ElevenLabsConfig `mapstructure:"elevenlabs"`
	OpenAI           tts.OpenAIConfig     `mapstructure:"openai"`
}

// BenchConfig configures the benchmark. The model is served by the vLLM settings in llm.vllm.
type BenchConfig struct {
	Model          string                  `mapstructure:"model"`
	SystemPrompt   string                  `mapstructure:"system_prompt"`
	Prompt         string                  `mapstructure:"prompt"`
	MaxNewTokens   int                     `mapstructure:"max_new_tokens"`
	TimeoutSeconds int                     `mapstructure:"timeout_seconds"`
	Sampling       entities.SamplingConfig `mapstructure:"sampling"`
}

// StorageConfig selects where run records are kept
type StorageConfig struct {
	Driver string       `mapstructure:"driver"`
	Mongo  mongo.Config `mapstructure:"mongo"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	OutputDir     string `mapstructure:"output_dir"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb"`
}

// BenchmarkConfig returns the benchmark prompt settings
func (b BenchConfig) BenchmarkConfig() usecase.BenchmarkConfig {
	return usecase.BenchmarkConfig{
		SystemPrompt: b.SystemPrompt,
		Prompt:       b.Prompt,
		MaxNewTokens: b.MaxNewTokens,
	}
}

// Load reads .env (if present), then the YAML file at path (if set), then KIDSGPT_* variables
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindProviderEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	sampling := entities.DefaultSamplingConfig()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("assistant.system_instruction", usecase.DefaultSystemInstruction)
	v.SetDefault("assistant.output_pattern", usecase.DefaultOutputPattern)
	v.SetDefault("assistant.sample_rate", audio.DefaultSampleRate)
	v.SetDefault("assistant.sampling.top_p", sampling.TopP)
	v.SetDefault("assistant.sampling.temperature", sampling.Temperature)
	v.SetDefault("assistant.sampling.repetition_penalty", sampling.RepetitionPenalty)
	v.SetDefault("assistant.sampling.max_tokens", sampling.MaxTokens)

	v.SetDefault("stt.provider", ProviderOpenAI)
	v.SetDefault("stt.mock_transcript", "What is the sky?")
	v.SetDefault("stt.openai.api_key", "")
	v.SetDefault("stt.openai.base_url", "")
	v.SetDefault("stt.openai.model", "whisper-1")
	v.SetDefault("stt.openai.language", "")
	v.SetDefault("stt.google.language", "en-US")
	v.SetDefault("stt.google.model", "")

	v.SetDefault("llm.provider", ProviderVLLM)
	v.SetDefault("llm.mock_reply", "The sky is blue because of how sunlight scatters.")
	v.SetDefault("llm.vllm.base_url", "http://localhost:8000")
	v.SetDefault("llm.vllm.api_key", "")
	v.SetDefault("llm.vllm.model", "Qwen/Qwen2-7B-Instruct")
	v.SetDefault("llm.vllm.timeout_seconds", 120)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.openai.model", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.gemini.model", "")
	v.SetDefault("llm.gemini.timeout_seconds", 30)

	v.SetDefault("tts.provider", ProviderOpenAI)
	v.SetDefault("tts.mock_channel_first", false)
	v.SetDefault("tts.elevenlabs.api_key", "")
	v.SetDefault("tts.elevenlabs.base_url", "")
	v.SetDefault("tts.elevenlabs.voice_id", "")
	v.SetDefault("tts.elevenlabs.model_id", "")
	v.SetDefault("tts.elevenlabs.stability", 0.0)
	v.SetDefault("tts.elevenlabs.clarity", 0.0)
	v.SetDefault("tts.openai.api_key", "")
	v.SetDefault("tts.openai.base_url", "")
	v.SetDefault("tts.openai.model", "")
	v.SetDefault("tts.openai.voice", "")
	v.SetDefault("tts.openai.speed", 0.0)

	v.SetDefault("bench.model", "Qwen/Qwen2.5-7B-Instruct")
	v.SetDefault("bench.system_prompt", usecase.DefaultBenchmarkSystemPrompt)
	v.SetDefault("bench.prompt", usecase.DefaultBenchmarkPrompt)
	v.SetDefault("bench.max_new_tokens", usecase.DefaultMaxNewTokens)
	v.SetDefault("bench.timeout_seconds", 900)
	v.SetDefault("bench.sampling.top_p", sampling.TopP)
	v.SetDefault("bench.sampling.temperature", sampling.Temperature)
	v.SetDefault("bench.sampling.repetition_penalty", sampling.RepetitionPenalty)
	v.SetDefault("bench.sampling.max_tokens", sampling.MaxTokens)

	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.mongo.uri", "")
	v.SetDefault("storage.mongo.database", "kidsgpt")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl_hours", 24)
	v.SetDefault("server.output_dir", "outputs")
	v.SetDefault("server.max_upload_mb", 25)
}

// bindProviderEnv accepts the variable names the providers document alongside the KIDSGPT_ ones
func bindProviderEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"stt.openai.api_key":     {"KIDSGPT_STT_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"llm.openai.api_key":     {"KIDSGPT_LLM_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"tts.openai.api_key":     {"KIDSGPT_TTS_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"llm.gemini.api_key":     {"KIDSGPT_LLM_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"tts.elevenlabs.api_key": {"KIDSGPT_TTS_ELEVENLABS_API_KEY", "ELEVEN_LABS_API_KEY"},
		"storage.mongo.uri":      {"KIDSGPT_STORAGE_MONGO_URI", "MONGODB_URI"},
		"storage.mongo.database": {"KIDSGPT_STORAGE_MONGO_DATABASE", "MONGODB_DATABASE"},
		"server.jwt_secret":      {"KIDSGPT_SERVER_JWT_SECRET", "JWT_SECRET"},
	}
	for key, names := range bindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks provider names and value ranges
func (c *Config) Validate() error {
	if err := oneOf("stt.provider", c.STT.Provider, ProviderMock, ProviderOpenAI, ProviderGoogle); err != nil {
		return err
	}
	if err := oneOf("llm.provider", c.LLM.Provider, ProviderMock, ProviderVLLM, ProviderOpenAI, ProviderGemini); err != nil {
		return err
	}
	if err := oneOf("tts.provider", c.TTS.Provider, ProviderMock, ProviderOpenAI, ProviderElevenLabs); err != nil {
		return err
	}
	if err := oneOf("storage.driver", c.Storage.Driver, StorageMemory, StorageMongo); err != nil {
		return err
	}
	if err := usecase.ValidateAssistantConfig(c.Assistant); err != nil {
		return fmt.Errorf("invalid assistant configuration: %w", err)
	}
	if err := c.Bench.Sampling.Validate(); err != nil {
		return fmt.Errorf("invalid bench sampling: %w", err)
	}
	if c.Storage.Driver == StorageMongo && c.Storage.Mongo.URI == "" {
		return errors.New("storage.mongo.uri is required when storage.driver is mongo")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

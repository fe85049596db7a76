package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/adapters"
	"github.com/rairaimanish/kidsGPT/adapters/llm"
	"github.com/rairaimanish/kidsGPT/adapters/mongo"
	"github.com/rairaimanish/kidsGPT/adapters/stt"
	"github.com/rairaimanish/kidsGPT/adapters/tts"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/audio"
	"github.com/rairaimanish/kidsGPT/internal/chattemplate"
	"github.com/rairaimanish/kidsGPT/internal/config"
	"github.com/rairaimanish/kidsGPT/internal/metrics"
	"github.com/rairaimanish/kidsGPT/internal/tracker"
	"github.com/rairaimanish/kidsGPT/usecase"
)

// app holds what every command shares: configuration, logger, metrics and the resources to release
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func()
}

func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.NewMetrics(registry),
	}, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapConfig.Level = level

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// newAssistant wires the configured providers into an AssistantService
func (a *app) newAssistant(ctx context.Context, out io.Writer, opts ...tracker.Option) (*usecase.AssistantService, *tracker.Tracker, repositories.RunRepository, error) {
	speechToText, err := a.newSpeechToText(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	languageModel, err := a.newLanguageModel(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	textToSpeech, err := a.newTextToSpeech()
	if err != nil {
		return nil, nil, nil, err
	}
	runs, err := a.newRunRepository(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	opts = append([]tracker.Option{tracker.WithMetrics(a.metrics)}, opts...)
	runTracker := tracker.NewTracker(runs, a.logger, opts...)

	assistant, err := usecase.NewAssistantService(
		speechToText,
		languageModel,
		textToSpeech,
		chattemplate.New(),
		audio.NewWAVWriter(a.logger),
		runTracker,
		a.cfg.Assistant,
		out,
		a.logger,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create assistant: %w", err)
	}
	return assistant, runTracker, runs, nil
}

func (a *app) newSpeechToText(ctx context.Context) (repositories.SpeechToText, error) {
	cfg := a.cfg.STT
	a.logger.Info("Using speech-to-text provider", zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case config.ProviderMock:
		return stt.NewMockSpeechToText(cfg.MockTranscript, a.logger), nil
	case config.ProviderOpenAI:
		return stt.NewWhisperSpeechToText(cfg.OpenAI, a.logger)
	case config.ProviderGoogle:
		google, err := stt.NewGoogleSpeechToText(ctx, cfg.Google, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func() {
			if err := google.Close(); err != nil {
				a.logger.Warn("Failed to close speech client", zap.Error(err))
			}
		})
		return google, nil
	default:
		return nil, fmt.Errorf("unknown speech-to-text provider %q", cfg.Provider)
	}
}

func (a *app) newLanguageModel(ctx context.Context) (repositories.LargeLanguageModel, error) {
	cfg := a.cfg.LLM
	a.logger.Info("Using language model provider", zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case config.ProviderMock:
		return llm.NewMockLLM(cfg.MockReply), nil
	case config.ProviderVLLM:
		return llm.NewVLLM(cfg.VLLM, a.logger)
	case config.ProviderOpenAI:
		return llm.NewOpenAILLM(cfg.OpenAI, a.logger)
	case config.ProviderGemini:
		return llm.NewGeminiLLM(ctx, cfg.Gemini, a.logger)
	default:
		return nil, fmt.Errorf("unknown language model provider %q", cfg.Provider)
	}
}

func (a *app) newTextToSpeech() (repositories.TextToSpeech, error) {
	cfg := a.cfg.TTS
	a.logger.Info("Using text-to-speech provider", zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case config.ProviderMock:
		return tts.NewMockTextToSpeech(cfg.MockChannelFirst), nil
	case config.ProviderOpenAI:
		return tts.NewOpenAITTS(cfg.OpenAI, a.logger)
	case config.ProviderElevenLabs:
		return tts.NewElevenLabsTTS(cfg.ElevenLabs, a.logger)
	default:
		return nil, fmt.Errorf("unknown text-to-speech provider %q", cfg.Provider)
	}
}

func (a *app) newRunRepository(ctx context.Context) (repositories.RunRepository, error) {
	cfg := a.cfg.Storage
	if cfg.Driver != config.StorageMongo {
		return adapters.NewMemoryRunRepository(), nil
	}

	client, err := mongo.NewClient(ctx, cfg.Mongo, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = client.Close(context.Background()) })

	repo := mongo.NewRunRepository(client.Database, a.logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

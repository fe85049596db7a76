package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/domain/entities"
	"github.com/rairaimanish/kidsGPT/domain/repositories"
	"github.com/rairaimanish/kidsGPT/internal/metrics"
)

const (
	DefaultBenchmarkSystemPrompt = "You are Qwen, created by Alibaba Cloud. You are a helpful assistant."
	DefaultBenchmarkPrompt       = "Give me a short introduction to large language model."
	DefaultMaxNewTokens          = 512
)

// MemoryProbe reports the resident memory of the process in MB
type MemoryProbe interface {
	ResidentMB() (float64, error)
}

// BenchmarkConfig holds the benchmark prompt
type BenchmarkConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
	Prompt       string `mapstructure:"prompt"`
	MaxNewTokens int    `mapstructure:"max_new_tokens"`
}

// BenchmarkService measures load, tokenize, generate and decode of a language model
type BenchmarkService struct {
	model    repositories.BenchmarkModel
	template repositories.ChatTemplate
	probe    MemoryProbe
	clock    clock.Clock
	metrics  *metrics.Metrics
	config   BenchmarkConfig
	out      io.Writer
	logger   *zap.Logger
}

// NewBenchmarkService creates a benchmark runner. metrics may be nil.
func NewBenchmarkService(
	model repositories.BenchmarkModel,
	template repositories.ChatTemplate,
	probe MemoryProbe,
	clk clock.Clock,
	m *metrics.Metrics,
	config BenchmarkConfig,
	out io.Writer,
	logger *zap.Logger,
) (*BenchmarkService, error) {
	if model == nil || template == nil || probe == nil {
		return nil, errors.New("benchmark service requires a model, a template and a memory probe")
	}
	if config.MaxNewTokens < 0 {
		return nil, fmt.Errorf("max new tokens must be positive, got %d", config.MaxNewTokens)
	}

	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultBenchmarkSystemPrompt
		logger.Info("Using default benchmark system prompt")
	}
	if config.Prompt == "" {
		config.Prompt = DefaultBenchmarkPrompt
		logger.Info("Using default benchmark prompt", zap.String("prompt", config.Prompt))
	}
	if config.MaxNewTokens == 0 {
		config.MaxNewTokens = DefaultMaxNewTokens
		logger.Info("Using default maxNewTokens", zap.Int("maxNewTokens", config.MaxNewTokens))
	}
	if clk == nil {
		clk = clock.New()
	}
	if out == nil {
		out = io.Discard
	}

	return &BenchmarkService{
		model:    model,
		template: template,
		probe:    probe,
		clock:    clk,
		metrics:  m,
		config:   config,
		out:      out,
		logger:   logger,
	}, nil
}

// Run measures one pass and prints each measurement as soon as it is known.
// An empty prompt uses the configured one.
func (s *BenchmarkService) Run(ctx context.Context, prompt string) (*entities.BenchmarkReport, error) {
	if prompt == "" {
		prompt = s.config.Prompt
	}
	report := &entities.BenchmarkReport{Model: s.model.Name()}

	start := s.clock.Now()
	initialMemory, err := s.probe.ResidentMB()
	if err != nil {
		return nil, err
	}

	if err := s.model.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	report.LoadTime = s.clock.Since(start)
	afterLoad, err := s.probe.ResidentMB()
	if err != nil {
		return nil, err
	}
	report.MemoryAfterLoadMB = afterLoad - initialMemory
	fmt.Fprintf(s.out, "Model loaded in %.2f seconds.\n", report.LoadTime.Seconds())
	fmt.Fprintf(s.out, "Memory used after loading model: %.2f MB\n", report.MemoryAfterLoadMB)

	tokenizationStart := s.clock.Now()
	request, err := s.template.Format(s.config.SystemPrompt, entities.NewUtterance(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt: %w", err)
	}
	inputIDs, err := s.model.Tokenize(ctx, request.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize prompt: %w", err)
	}
	report.TokenizationTime = s.clock.Since(tokenizationStart)
	report.InputTokens = len(inputIDs)
	fmt.Fprintf(s.out, "Tokenization time: %.2f seconds.\n", report.TokenizationTime.Seconds())

	generationStart := s.clock.Now()
	generatedIDs, err := s.model.Generate(ctx, inputIDs, s.config.MaxNewTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to generate: %w", err)
	}
	report.GenerationTime = s.clock.Since(generationStart)
	fmt.Fprintf(s.out, "Generation time: %.2f seconds.\n", report.GenerationTime.Seconds())

	decodingStart := s.clock.Now()
	if len(generatedIDs) < len(inputIDs) {
		return nil, fmt.Errorf("model returned %d ids for %d input ids", len(generatedIDs), len(inputIDs))
	}
	// Generated ids repeat the input as prefix
	outputIDs := generatedIDs[len(inputIDs):]
	response, err := s.model.Decode(ctx, outputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	report.DecodingTime = s.clock.Since(decodingStart)
	report.OutputTokens = len(outputIDs)
	report.Response = response
	fmt.Fprintf(s.out, "Decoding time: %.2f seconds.\n", report.DecodingTime.Seconds())

	report.TotalTime = s.clock.Since(start)
	finalMemory, err := s.probe.ResidentMB()
	if err != nil {
		return nil, err
	}
	report.TotalMemoryMB = finalMemory - initialMemory

	fmt.Fprintf(s.out, "Total time: %.2f seconds.\n", report.TotalTime.Seconds())
	fmt.Fprintf(s.out, "Total memory used: %.2f MB.\n", report.TotalMemoryMB)
	fmt.Fprintf(s.out, "Generated response: %s\n", report.Response)

	s.observe(report)
	s.logger.Info("Benchmark completed",
		zap.String("model", report.Model),
		zap.Duration("total", report.TotalTime),
		zap.Int("inputTokens", report.InputTokens),
		zap.Int("outputTokens", report.OutputTokens))

	return report, nil
}

func (s *BenchmarkService) observe(report *entities.BenchmarkReport) {
	if s.metrics == nil {
		return
	}
	stages := map[string]time.Duration{
		"load":     report.LoadTime,
		"tokenize": report.TokenizationTime,
		"generate": report.GenerationTime,
		"decode":   report.DecodingTime,
		"total":    report.TotalTime,
	}
	for stage, d := range stages {
		s.metrics.BenchmarkStageSeconds.WithLabelValues(report.Model, stage).Set(d.Seconds())
	}
	s.metrics.BenchmarkMemoryMB.WithLabelValues(report.Model, "after_load").Set(report.MemoryAfterLoadMB)
	s.metrics.BenchmarkMemoryMB.WithLabelValues(report.Model, "total").Set(report.TotalMemoryMB)
}

package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/rairaimanish/kidsGPT/internal/chattemplate"
	"github.com/rairaimanish/kidsGPT/internal/metrics"
)

// stubModel advances a mock clock to simulate stage latencies
type stubModel struct {
	clock        *clock.Mock
	load         time.Duration
	tokenize     time.Duration
	generate     time.Duration
	decode       time.Duration
	prompt       string
	decodedIDs   []int
	maxNewTokens int
	generateErr  error
}

func (m *stubModel) Name() string { return "stub-model" }

func (m *stubModel) Load(ctx context.Context) error {
	m.clock.Add(m.load)
	return nil
}

func (m *stubModel) Tokenize(ctx context.Context, prompt string) ([]int, error) {
	m.clock.Add(m.tokenize)
	m.prompt = prompt
	return []int{1, 2, 3}, nil
}

func (m *stubModel) Generate(ctx context.Context, inputIDs []int, maxNewTokens int) ([]int, error) {
	m.clock.Add(m.generate)
	m.maxNewTokens = maxNewTokens
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return append(append([]int{}, inputIDs...), 7, 8), nil
}

func (m *stubModel) Decode(ctx context.Context, ids []int) (string, error) {
	m.clock.Add(m.decode)
	m.decodedIDs = ids
	return "A large language model is a program that predicts text.", nil
}

// stubProbe returns the readings in order
type stubProbe struct {
	readings []float64
	calls    int
}

func (p *stubProbe) ResidentMB() (float64, error) {
	v := p.readings[p.calls]
	p.calls++
	return v, nil
}

func TestBenchmarkService_Run(t *testing.T) {
	mockClock := clock.NewMock()
	model := &stubModel{
		clock:    mockClock,
		load:     3 * time.Second,
		tokenize: time.Second,
		generate: 2 * time.Second,
		decode:   500 * time.Millisecond,
	}
	probe := &stubProbe{readings: []float64{100, 612.5, 640.25}}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	out := &bytes.Buffer{}

	service, err := NewBenchmarkService(model, chattemplate.New(), probe, mockClock, m, BenchmarkConfig{}, out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create benchmark service: %v", err)
	}

	report, err := service.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []string{
		"Model loaded in 3.00 seconds.",
		"Memory used after loading model: 512.50 MB",
		"Tokenization time: 1.00 seconds.",
		"Generation time: 2.00 seconds.",
		"Decoding time: 0.50 seconds.",
		"Total time: 6.50 seconds.",
		"Total memory used: 540.25 MB.",
		"Generated response: A large language model is a program that predicts text.",
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(expected), len(lines), out.String())
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}

	if report.TotalTime < report.TokenizationTime+report.GenerationTime+report.DecodingTime {
		t.Errorf("Total time %v is less than the sum of the stages", report.TotalTime)
	}
	if report.InputTokens != 3 || report.OutputTokens != 2 {
		t.Errorf("Expected 3 input and 2 output tokens, got %d and %d", report.InputTokens, report.OutputTokens)
	}
	if len(model.decodedIDs) != 2 || model.decodedIDs[0] != 7 {
		t.Errorf("Expected only generated ids to be decoded, got %v", model.decodedIDs)
	}
	if model.maxNewTokens != DefaultMaxNewTokens {
		t.Errorf("Expected max new tokens %d, got %d", DefaultMaxNewTokens, model.maxNewTokens)
	}
	if !strings.Contains(model.prompt, DefaultBenchmarkSystemPrompt) || !strings.HasSuffix(model.prompt, "<|im_start|>assistant\n") {
		t.Errorf("Expected a ChatML prompt with the generation marker, got %q", model.prompt)
	}

	if got := testutil.ToFloat64(m.BenchmarkStageSeconds.WithLabelValues("stub-model", "generate")); got != 2 {
		t.Errorf("Expected generate gauge 2, got %v", got)
	}
}

func TestBenchmarkService_GenerateError(t *testing.T) {
	mockClock := clock.NewMock()
	model := &stubModel{clock: mockClock, generateErr: errors.New("out of memory")}
	probe := &stubProbe{readings: []float64{1, 2, 3}}

	service, err := NewBenchmarkService(model, chattemplate.New(), probe, mockClock, nil, BenchmarkConfig{}, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create benchmark service: %v", err)
	}

	if _, err := service.Run(context.Background(), "hello"); err == nil {
		t.Error("Expected generation error to be returned")
	}
}

func TestNewBenchmarkService_RequiresCollaborators(t *testing.T) {
	if _, err := NewBenchmarkService(nil, chattemplate.New(), &stubProbe{}, nil, nil, BenchmarkConfig{}, nil, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without a model")
	}
}

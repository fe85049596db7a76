package entities

import "testing"

func TestWaveformUnsqueeze(t *testing.T) {
	w := NewWaveform([]float32{0.1, 0.2, 0.3})

	if w.Rank() != 1 || w.Frames() != 3 {
		t.Fatalf("Expected shape [3], got %v", w.Shape)
	}

	u := w.Unsqueeze()
	if u.Rank() != 2 {
		t.Fatalf("Expected rank 2 after unsqueeze, got %d", u.Rank())
	}
	if u.Shape[0] != 1 || u.Shape[1] != 3 {
		t.Errorf("Expected shape [1 3], got %v", u.Shape)
	}
	if u.Size() != len(w.Samples) {
		t.Errorf("Expected size %d, got %d", len(w.Samples), u.Size())
	}

	// The original shape must not change
	if w.Rank() != 1 {
		t.Errorf("Unsqueeze modified the source shape: %v", w.Shape)
	}
}

func TestWaveformWithShape(t *testing.T) {
	shape := []int{1, 4}
	w := NewWaveformWithShape(make([]float32, 4), shape...)
	shape[0] = 9

	if w.Shape[0] != 1 {
		t.Error("Shape should be copied")
	}
	if w.Unsqueeze().Rank() != 3 {
		t.Errorf("Expected rank 3, got %d", w.Unsqueeze().Rank())
	}
}

func TestSamplingConfigValidate(t *testing.T) {
	if err := DefaultSamplingConfig().Validate(); err != nil {
		t.Fatalf("Default sampling config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*SamplingConfig)
	}{
		{"zero top_p", func(c *SamplingConfig) { c.TopP = 0 }},
		{"top_p above one", func(c *SamplingConfig) { c.TopP = 1.2 }},
		{"negative temperature", func(c *SamplingConfig) { c.Temperature = -0.1 }},
		{"zero repetition penalty", func(c *SamplingConfig) { c.RepetitionPenalty = 0 }},
		{"zero max tokens", func(c *SamplingConfig) { c.MaxTokens = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSamplingConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	greedy := DefaultSamplingConfig()
	greedy.Temperature = 0
	if err := greedy.Validate(); err != nil {
		t.Errorf("Greedy config should be valid: %v", err)
	}
	if !greedy.IsGreedy() {
		t.Error("Temperature 0 should be greedy")
	}
}

func TestNewUtterance(t *testing.T) {
	u := NewUtterance("  What is the sky?\n")
	if u.Text != "What is the sky?" {
		t.Errorf("Expected trimmed text, got %q", u.Text)
	}
	if NewUtterance("   ").IsEmpty() != true {
		t.Error("Whitespace-only utterance should be empty")
	}
}

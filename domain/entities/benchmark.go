package entities

import "time"

// BenchmarkReport holds the measurements of one load/tokenize/generate/decode pass
type BenchmarkReport struct {
	Model             string        `json:"model" yaml:"model"`
	LoadTime          time.Duration `json:"load_time" yaml:"load_time"`
	TokenizationTime  time.Duration `json:"tokenization_time" yaml:"tokenization_time"`
	GenerationTime    time.Duration `json:"generation_time" yaml:"generation_time"`
	DecodingTime      time.Duration `json:"decoding_time" yaml:"decoding_time"`
	TotalTime         time.Duration `json:"total_time" yaml:"total_time"`
	MemoryAfterLoadMB float64       `json:"memory_after_load_mb" yaml:"memory_after_load_mb"`
	TotalMemoryMB     float64       `json:"total_memory_mb" yaml:"total_memory_mb"`
	InputTokens       int           `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens      int           `json:"output_tokens" yaml:"output_tokens"`
	Response          string        `json:"response" yaml:"response"`
}

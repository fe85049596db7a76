package entities

import (
	"fmt"
	"strings"
)

const (
	defaultTopP              = 0.8
	defaultTemperature       = 0.7
	defaultRepetitionPenalty = 1.05
	defaultMaxTokens         = 512
)

// Utterance is the text recognized from one audio input
type Utterance struct {
	Text string `json:"text" bson:"text" yaml:"text"`
}

// NewUtterance trims recognizer output, which often carries leading whitespace
func NewUtterance(text string) Utterance {
	return Utterance{Text: strings.TrimSpace(text)}
}

// IsEmpty reports whether nothing was recognized
func (u Utterance) IsEmpty() bool {
	return u.Text == ""
}

// ConversationRequest is the two-role request handed to a language model.
// Prompt holds System and User rendered through a chat template.
type ConversationRequest struct {
	System string `json:"system" yaml:"system"`
	User   string `json:"user" yaml:"user"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// Reply is the text produced by the language model
type Reply struct {
	Text       string `json:"text" bson:"text" yaml:"text"`
	TokenCount int    `json:"token_count,omitempty" bson:"token_count,omitempty" yaml:"token_count,omitempty"`
}

// SamplingConfig controls generation
type SamplingConfig struct {
	TopP              float64 `json:"top_p" mapstructure:"top_p" yaml:"top_p"`
	Temperature       float64 `json:"temperature" mapstructure:"temperature" yaml:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty" mapstructure:"repetition_penalty" yaml:"repetition_penalty"`
	MaxTokens         int     `json:"max_tokens" mapstructure:"max_tokens" yaml:"max_tokens"`
}

// DefaultSamplingConfig returns the sampling values the assistant ships with
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		TopP:              defaultTopP,
		Temperature:       defaultTemperature,
		RepetitionPenalty: defaultRepetitionPenalty,
		MaxTokens:         defaultMaxTokens,
	}
}

// IsGreedy reports whether the config asks for deterministic decoding
func (c SamplingConfig) IsGreedy() bool {
	return c.Temperature == 0
}

// Validate checks the sampling ranges accepted by the supported runtimes
func (c SamplingConfig) Validate() error {
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got %f", c.TopP)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %f", c.Temperature)
	}
	if c.RepetitionPenalty <= 0 {
		return fmt.Errorf("repetition_penalty must be positive, got %f", c.RepetitionPenalty)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

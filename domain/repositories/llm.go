package repositories

import (
	"context"

	"github.com/rairaimanish/kidsGPT/domain/entities"
)

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Respond generates a reply for a formatted two-role request
	Respond(ctx context.Context, request entities.ConversationRequest, sampling entities.SamplingConfig) (entities.Reply, error)
}

// ChatTemplate renders a system instruction and a user utterance into one prompt
type ChatTemplate interface {
	Format(system string, utterance entities.Utterance) (entities.ConversationRequest, error)
}

// BenchmarkModel exposes the individual stages of a causal language model runtime
type BenchmarkModel interface {
	// Name identifies the model being measured
	Name() string
	// Load makes the model ready to serve requests
	Load(ctx context.Context) error
	// Tokenize encodes a formatted prompt into input token ids
	Tokenize(ctx context.Context, prompt string) ([]int, error)
	// Generate returns the input ids followed by at most maxNewTokens generated ids
	Generate(ctx context.Context, inputIDs []int, maxNewTokens int) ([]int, error)
	// Decode turns token ids back into text, skipping special tokens
	Decode(ctx context.Context, ids []int) (string, error)
}

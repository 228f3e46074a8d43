package ai

import "context"

// ScoreInput carries one matched pair to be judged.
type ScoreInput struct {
	Question  string
	Reference string
	Answer    string
}

// Judgement is the verdict produced by a judge for one matched pair.
type Judgement struct {
	Correct      bool     `json:"correct"`
	Correctness  *float64 `json:"correctness,omitempty"`
	Relevance    *float64 `json:"relevance,omitempty"`
	Reasoning    string   `json:"reasoning,omitempty"`
	InputTokens  int      `json:"input_tokens,omitempty"`
	OutputTokens int      `json:"output_tokens,omitempty"`
	Provider     string   `json:"provider"`
}

// Judge decides whether a produced answer matches its reference answer.
type Judge interface {
	Score(ctx context.Context, input ScoreInput) (Judgement, error)
}

// Provider names accepted by configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderFallback  = "fallback"
)

// DefaultPassThreshold is the minimum correctness score (0-5) counted as correct.
const DefaultPassThreshold = 3.0

package ai

import (
	"context"
	"strings"
)

// FallbackJudge compares answers deterministically without calling a model.
// An answer is correct when its normalized text equals the normalized
// reference or contains it. An empty reference is never correct, even
// against an empty answer; callers skip such pairs as unjudged.
type FallbackJudge struct{}

// NewFallbackJudge returns the deterministic judge.
func NewFallbackJudge() *FallbackJudge {
	return &FallbackJudge{}
}

// Score never returns an error.
func (FallbackJudge) Score(_ context.Context, input ScoreInput) (Judgement, error) {
	answer := normalizeAnswer(input.Answer)
	reference := normalizeAnswer(input.Reference)

	correct := reference != "" && (answer == reference || strings.Contains(answer, reference))

	return Judgement{Correct: correct, Provider: ProviderFallback}, nil
}

func normalizeAnswer(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

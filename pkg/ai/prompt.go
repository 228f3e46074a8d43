package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var reasoningPolicy = bluemonday.StrictPolicy()

func judgeSystemPrompt() string {
	return `You are an expert evaluator. Score the AI-generated answer compared to the reference answer.

For each criterion, give a score from 0 to 5:
- correctness: factual correctness (0=completely wrong, 5=perfectly correct)
- relevance: how relevant the answer is to the question (0=irrelevant, 5=highly relevant)

Return ONLY valid JSON in the following format:
{
  "correctness": <0-5>,
  "relevance": <0-5>,
  "reasoning": "<one sentence>"
}`
}

func buildUserPrompt(input ScoreInput) (string, error) {
	payload := struct {
		Question        string `json:"question"`
		ReferenceAnswer string `json:"reference_answer"`
		GeneratedAnswer string `json:"generated_answer"`
	}{
		Question:        input.Question,
		ReferenceAnswer: input.Reference,
		GeneratedAnswer: input.Answer,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode judge payload: %w", err)
	}
	return string(data), nil
}

// parseJudgement decodes the judge JSON and applies the pass threshold.
func parseJudgement(content string, passThreshold float64) (Judgement, error) {
	type payload struct {
		Correctness *float64 `json:"correctness"`
		Relevance   *float64 `json:"relevance"`
		Reasoning   string   `json:"reasoning"`
	}

	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var data payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &data); err != nil {
		return Judgement{}, fmt.Errorf("parse judge json: %w", err)
	}
	if data.Correctness == nil {
		return Judgement{}, fmt.Errorf("parse judge json: correctness missing")
	}

	correctness := clampScore(*data.Correctness)
	judgement := Judgement{
		Correct:     correctness >= passThreshold,
		Correctness: &correctness,
		Reasoning:   strings.TrimSpace(reasoningPolicy.Sanitize(data.Reasoning)),
	}
	if data.Relevance != nil {
		relevance := clampScore(*data.Relevance)
		judgement.Relevance = &relevance
	}

	return judgement, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}

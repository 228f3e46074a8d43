package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseJudgementAppliesThreshold(t *testing.T) {
	judgement, err := parseJudgement("```json\n{\"correctness\": 4, \"relevance\": 7, \"reasoning\": \"<b>close</b> enough\"}\n```", 3)
	require.NoError(t, err)
	require.True(t, judgement.Correct)
	require.Equal(t, 4.0, *judgement.Correctness)
	require.Equal(t, 5.0, *judgement.Relevance)
	require.Equal(t, "close enough", judgement.Reasoning)

	judgement, err = parseJudgement(`{"correctness": 2.5}`, 3)
	require.NoError(t, err)
	require.False(t, judgement.Correct)
	require.Nil(t, judgement.Relevance)
}

func TestParseJudgementRejectsInvalidPayloads(t *testing.T) {
	_, err := parseJudgement("not json", 3)
	require.Error(t, err)

	_, err = parseJudgement(`{"relevance": 5}`, 3)
	require.ErrorContains(t, err, "correctness missing")
}

func TestFallbackJudge(t *testing.T) {
	judge := NewFallbackJudge()

	cases := []struct {
		name      string
		answer    string
		reference string
		want      bool
	}{
		{name: "exact", answer: "Paris", reference: "paris", want: true},
		{name: "contains", answer: "The capital is  Paris, France", reference: "paris, france", want: true},
		{name: "different", answer: "Lyon", reference: "Paris", want: false},
		{name: "empty reference", answer: "Paris", reference: " ", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			judgement, err := judge.Score(context.Background(), ScoreInput{Answer: tc.answer, Reference: tc.reference})
			require.NoError(t, err)
			require.Equal(t, tc.want, judgement.Correct)
			require.Equal(t, ProviderFallback, judgement.Provider)
		})
	}
}

func TestFallbackJudgeEmptyStrings(t *testing.T) {
	judge := NewFallbackJudge()
	for _, input := range []ScoreInput{
		{Answer: "", Reference: ""},
		{Answer: "  \t", Reference: " \n"},
		{Answer: "Go", Reference: ""},
	} {
		judgement, err := judge.Score(context.Background(), input)
		require.NoError(t, err)
		require.False(t, judgement.Correct, "answer %q reference %q", input.Answer, input.Reference)
	}
}

func TestNewJudgeSelectsProvider(t *testing.T) {
	judge, err := NewJudge(Settings{})
	require.NoError(t, err)
	require.IsType(t, &FallbackJudge{}, judge)

	var logs bytes.Buffer
	judge, err = NewJudge(Settings{Provider: ProviderOpenAI, OpenAIAPIKey: "  ", Logger: zerolog.New(&logs)})
	require.NoError(t, err)
	require.IsType(t, &FallbackJudge{}, judge)
	require.Contains(t, logs.String(), "judge api key missing")
	require.Contains(t, logs.String(), `"provider":"openai"`)

	judge, err = NewJudge(Settings{Provider: ProviderAnthropic, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.IsType(t, &FallbackJudge{}, judge)

	judge, err = NewJudge(Settings{Provider: "Anthropic", AnthropicAPIKey: "key"})
	require.NoError(t, err)
	require.IsType(t, &AnthropicJudge{}, judge)

	_, err = NewJudge(Settings{Provider: "gemini"})
	require.ErrorContains(t, err, "unknown judge provider")
}

func TestOpenAIJudgeScore(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"correctness\": 5, \"relevance\": 4, \"reasoning\": \"matches\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
		}`))
	}))
	defer server.Close()

	judge, err := NewOpenAIJudge(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	judgement, err := judge.Score(context.Background(), ScoreInput{Question: "q", Reference: "ref", Answer: "ans"})
	require.NoError(t, err)
	require.True(t, judgement.Correct)
	require.Equal(t, ProviderOpenAI, judgement.Provider)
	require.Equal(t, 42, judgement.InputTokens)
	require.Equal(t, 9, judgement.OutputTokens)
	require.Equal(t, "gpt-4o-mini", received["model"])
}

func TestOpenAIJudgeReportsMalformedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "I think it is fine"}}]}`))
	}))
	defer server.Close()

	judge, err := NewOpenAIJudge(OpenAIConfig{APIKey: "test", BaseURL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = judge.Score(context.Background(), ScoreInput{Question: "q", Reference: "ref", Answer: "ans"})
	require.ErrorContains(t, err, "parse judge json")
}

func TestAnthropicJudgeScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "{\"correctness\": 1, \"reasoning\": \"wrong city\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 7}
		}`))
	}))
	defer server.Close()

	judge, err := NewAnthropicJudge(AnthropicConfig{APIKey: "test", BaseURL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	judgement, err := judge.Score(context.Background(), ScoreInput{Question: "q", Reference: "Paris", Answer: "Lyon"})
	require.NoError(t, err)
	require.False(t, judgement.Correct)
	require.Equal(t, ProviderAnthropic, judgement.Provider)
	require.Equal(t, "wrong city", judgement.Reasoning)
	require.Equal(t, 30, judgement.InputTokens)
}

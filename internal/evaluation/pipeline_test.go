package evaluation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

func TestEvaluateEndToEndWithFallbackJudge(t *testing.T) {
	dir := t.TempDir()
	src := Sources{
		IdentifiersPath: writeFile(t, dir, "ids.txt", "A\nB\nC\n"),
		GroundTruthPath: writeFile(t, dir, "gt.csv", "Question,Answers,Source_Name\n"+
			"What is Go?,An open source language,Docs\n"+
			"what is go?,A duplicate row,Docs\n"+
			"Who maintains Go?,Google,Wiki\n"),
		ResponseLogPath: writeFile(t, dir, "responses.jsonl",
			`{"response_id":"A","orchestrator_request_id":"req-a","assistant_response":"Go is an open source language."}`+"\n"+
				`{"response_id":"B","question":"Who maintains Go?","assistant_response":"The community"}`+"\n"),
		RoutingLogPath: writeFile(t, dir, "routing.jsonl",
			`{"orchestrator_request_id":"req-a","question":"What is Go?","selected_sources":["docs"]}`+"\n"),
	}

	diags := newTestDiagnostics()
	outcome, err := Evaluate(context.Background(), src, ai.NewFallbackJudge(), JudgeOptions{Concurrency: 2}, diags)
	require.NoError(t, err)

	require.Len(t, outcome.Rows, 3)
	require.Equal(t, VerdictCorrect, outcome.Results[0].Verdict)
	require.Equal(t, VerdictIncorrect, outcome.Results[1].Verdict)
	require.Equal(t, VerdictUnmatchedNoLog, outcome.Results[2].Verdict)

	require.Equal(t, 3, outcome.Summary.Total)
	require.Equal(t, 2, outcome.Summary.Matched)
	require.Equal(t, 1, outcome.Summary.Unmatched)
	require.Equal(t, 1, diags.Count(DiagnosticDuplicateGroundTruth))
	require.Equal(t, "An open source language", outcome.Results[0].GroundTruth.Answer)
}

func TestEvaluateFailsOnUnreadableInputs(t *testing.T) {
	dir := t.TempDir()
	ids := writeFile(t, dir, "ids.txt", "A\n")
	gt := writeFile(t, dir, "gt.csv", "Question,Answers\nq,a\n")

	_, err := Evaluate(context.Background(), Sources{
		IdentifiersPath: filepath.Join(dir, "missing.txt"),
		GroundTruthPath: gt,
		ResponseLogPath: filepath.Join(dir, "responses.jsonl"),
	}, nil, JudgeOptions{}, newTestDiagnostics())
	require.ErrorIs(t, err, ErrSourceUnreadable)

	_, err = Evaluate(context.Background(), Sources{
		IdentifiersPath: ids,
		GroundTruthPath: writeFile(t, dir, "bad.csv", "Prompt\nq\n"),
		ResponseLogPath: filepath.Join(dir, "responses.jsonl"),
	}, nil, JudgeOptions{}, newTestDiagnostics())
	require.ErrorIs(t, err, ErrMissingRequiredColumn)

	_, err = Evaluate(context.Background(), Sources{
		IdentifiersPath: ids,
		GroundTruthPath: gt,
		ResponseLogPath: filepath.Join(dir, "responses.jsonl"),
	}, nil, JudgeOptions{}, newTestDiagnostics())
	require.ErrorIs(t, err, ErrLogUnreadable)
}

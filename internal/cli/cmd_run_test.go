package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
)

func writeInputs(t *testing.T, dir string) (ids, gt, responses string) {
	t.Helper()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	ids = write("ids.txt", "r1\nr2\n")
	gt = write("gt.csv", "Question,Answers\nCapital of France?,Paris\n")
	responses = write("responses.jsonl", `{"response_id":"r1","question":"capital of france?","assistant_response":"It is Paris"}`+"\n")
	return ids, gt, responses
}

func TestRunCommandWritesResultsAndJSONSummary(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ids, gt, responses := writeInputs(t, dir)
	out := filepath.Join(dir, "results")

	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), []string{
		"run",
		"--ids", ids,
		"--ground-truth", gt,
		"--responses", responses,
		"--routing", filepath.Join(dir, "routing.jsonl"),
		"--judge", "fallback",
		"--out", out,
		"--mode", "unique",
		"--json",
	}, &stdout, &stderr)
	require.NoError(t, err)

	var decoded struct {
		ResultFile string             `json:"result_file"`
		Summary    evaluation.Summary `json:"summary"`
		Warnings   []string           `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.True(t, strings.HasPrefix(decoded.ResultFile, out))
	require.FileExists(t, decoded.ResultFile)
	require.Equal(t, 2, decoded.Summary.Total)
	require.Equal(t, 1, decoded.Summary.Correct)
	require.Equal(t, 1, decoded.Summary.Unmatched)
	require.Len(t, decoded.Warnings, 2)
}

func TestRunCommandPrintsTable(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ids, gt, responses := writeInputs(t, dir)

	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), []string{
		"run", "--ids", ids, "--ground-truth", gt, "--responses", responses,
		"--judge", "fallback", "--out", dir,
	}, &stdout, &stderr)
	require.NoError(t, err)

	output := stdout.String()
	require.Contains(t, output, "Matched")
	require.Contains(t, output, "Pass rate")
	require.Contains(t, output, "100.0%")
	require.Contains(t, output, "results: ")
}

func TestRunCommandRequiresInputs(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), []string{"run", "--judge", "fallback"}, &stdout, &stderr)
	require.ErrorContains(t, err, "required flag")
}

func TestRunCommandFailsOnMissingResponseLog(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ids, gt, _ := writeInputs(t, dir)

	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), []string{
		"run", "--ids", ids, "--ground-truth", gt,
		"--responses", filepath.Join(dir, "nope.jsonl"), "--judge", "fallback", "--out", dir,
	}, &stdout, &stderr)
	require.ErrorIs(t, err, evaluation.ErrLogUnreadable)
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows(evaluation.Summary{Total: 4, Correct: 1, Incorrect: 3, PassRate: 0.25, AverageCorrectness: 2.5})
	require.Equal(t, []string{"Total", "4"}, rows[0])
	require.Equal(t, []string{"Pass rate", "25.0%"}, rows[10])
	require.Equal(t, []string{"Avg correctness", "2.50"}, rows[11])
}

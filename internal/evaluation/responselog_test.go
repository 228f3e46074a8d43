package evaluation

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildResponseIndexLaterEntriesWinAndMalformedLinesAreSkipped(t *testing.T) {
	log := strings.Join([]string{
		`{"response_id":"r1","question":"What is Go?","assistant_response":"draft"}`,
		`not json`,
		`{"question":"no id"}`,
		``,
		`{"response_id":"r1","question":"What is Go?","assistant_response":"final"}`,
		`{"response_id":"r2","user_query":"Who wrote it?","answer":"Google"}`,
	}, "\n")

	diags := newTestDiagnostics()
	index, err := BuildResponseIndex(strings.NewReader(log), nil, diags)
	require.NoError(t, err)

	require.Equal(t, 2, index.Len())
	require.Equal(t, 2, index.Skipped)
	require.Equal(t, 2, diags.Count(DiagnosticMalformedLogLine))

	r1, ok := index.Lookup("r1")
	require.True(t, ok)
	require.Equal(t, "final", r1.Answer)

	r2, ok := index.Lookup("r2")
	require.True(t, ok)
	require.Equal(t, "Who wrote it?", r2.Question)
	require.Equal(t, "Google", r2.Answer)

	_, ok = index.Lookup("missing")
	require.False(t, ok)
}

func TestBuildResponseIndexJoinsRoutingLog(t *testing.T) {
	routing := strings.Join([]string{
		`{"orchestrator_request_id":"req-1","question":"Where is the office?","selected_sources":["HR_Policy","Facilities"],"decision":"route","reasoning":"mentions office","model":"gpt-4o"}`,
		`{"orchestrator_request_id":"req-2","question":"ignored","selected_sources":"Wiki"}`,
	}, "\n")
	responses := strings.Join([]string{
		`{"response_id":"r1","orchestrator_request_id":"req-1","assistant_response":"Jakarta"}`,
		`{"response_id":"r2","orchestrator_request_id":"req-2","question":"From response","assistant_response":"x","source":"Docs"}`,
	}, "\n")

	index, err := BuildResponseIndex(strings.NewReader(responses), strings.NewReader(routing), newTestDiagnostics())
	require.NoError(t, err)

	r1, ok := index.Lookup("r1")
	require.True(t, ok)
	require.Equal(t, "Where is the office?", r1.Question)
	require.Equal(t, []string{"HR_Policy", "Facilities"}, r1.Sources)
	require.Equal(t, "route", r1.MetadataString("decision"))
	require.Equal(t, "gpt-4o", r1.MetadataString("model"))

	r2, ok := index.Lookup("r2")
	require.True(t, ok)
	require.Equal(t, "From response", r2.Question, "response entry takes precedence over routing")
	require.Equal(t, []string{"Docs"}, r2.Sources)
}

func TestBuildResponseIndexDerivesConversationTurns(t *testing.T) {
	responses := strings.Join([]string{
		`{"response_id":"r1","question":"q1"}`,
		`{"response_id":"r2","previous_response_id":"r1","question":"q2"}`,
		`{"response_id":"r3","previous_response_id":"r2","question":"q3"}`,
		`{"response_id":"x1","previous_response_id":"x2","question":"loop"}`,
		`{"response_id":"x2","previous_response_id":"x1","question":"loop"}`,
	}, "\n")

	index, err := BuildResponseIndex(strings.NewReader(responses), nil, newTestDiagnostics())
	require.NoError(t, err)

	r3, _ := index.Lookup("r3")
	require.Equal(t, "r1", r3.ConversationID)
	require.Equal(t, 3, r3.Turn)

	r1, _ := index.Lookup("r1")
	require.Equal(t, "r1", r1.ConversationID)
	require.Equal(t, 1, r1.Turn)

	x1, _ := index.Lookup("x1")
	require.Equal(t, 2, x1.Turn, "cycles terminate")
}

func TestBuildResponseIndexFailsWhenNothingParses(t *testing.T) {
	_, err := BuildResponseIndex(strings.NewReader("{bad\n{worse\n"), nil, newTestDiagnostics())
	require.ErrorIs(t, err, ErrLogUnreadable)

	index, err := BuildResponseIndex(strings.NewReader(""), nil, newTestDiagnostics())
	require.NoError(t, err)
	require.Equal(t, 0, index.Len())
}

func TestLoadResponseIndexMissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadResponseIndex(filepath.Join(dir, "responses.jsonl"), "", newTestDiagnostics())
	require.ErrorIs(t, err, ErrLogUnreadable)

	responses := writeFile(t, dir, "responses.jsonl", `{"response_id":"r1","question":"q"}`+"\n")
	diags := newTestDiagnostics()
	index, err := LoadResponseIndex(responses, filepath.Join(dir, "routing.jsonl"), diags)
	require.NoError(t, err)
	require.Equal(t, 1, index.Len())
	require.Equal(t, 1, diags.Count(DiagnosticMissingRoutingLog))
}

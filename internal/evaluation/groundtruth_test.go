package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeQuestionIsIdempotent(t *testing.T) {
	samples := []string{
		"  What IS\tGo?  ",
		"multi\n\nline   question",
		"ALREADY normal",
		"",
		"Ünïcödé  Spaces",
	}
	for _, sample := range samples {
		once := NormalizeQuestion(sample)
		require.Equal(t, once, NormalizeQuestion(once), sample)
	}
	require.Equal(t, "what is go?", NormalizeQuestion("  What IS\tGo?  "))
}

func TestLoadGroundTruthParsesHeadersLoosely(t *testing.T) {
	csv := "\ufeff question , ANSWERS,source_name\n" +
		"What is Go?,A language,Docs\n" +
		"\"Who, exactly?\",\"Someone, somewhere\",\n" +
		",orphan answer,Docs\n"

	table, err := LoadGroundTruth(strings.NewReader(csv), newTestDiagnostics())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	record, ok := table.LookupQuestion("  what is GO? ")
	require.True(t, ok)
	require.Equal(t, "A language", record.Answer)
	require.Equal(t, "Docs", record.Source)
	require.Equal(t, 2, record.Row)

	record, ok = table.LookupQuestion("who, exactly?")
	require.True(t, ok)
	require.Equal(t, "Someone, somewhere", record.Answer)
	require.Empty(t, record.Source)
}

func TestLoadGroundTruthFirstDuplicateWins(t *testing.T) {
	csv := "Question,Answers\n" +
		"What is Go?,first\n" +
		"what  is go?,second\n" +
		"WHAT IS GO?,third\n"

	diags := newTestDiagnostics()
	table, err := LoadGroundTruth(strings.NewReader(csv), diags)
	require.NoError(t, err)

	record, ok := table.LookupQuestion("What is Go?")
	require.True(t, ok)
	require.Equal(t, "first", record.Answer)
	require.Equal(t, 2, table.Duplicates)
	require.Equal(t, 2, diags.Count(DiagnosticDuplicateGroundTruth))
}

func TestLoadGroundTruthRequiresColumns(t *testing.T) {
	_, err := LoadGroundTruth(strings.NewReader("Question,Source_Name\nq,s\n"), newTestDiagnostics())
	require.ErrorIs(t, err, ErrMissingRequiredColumn)
	require.ErrorContains(t, err, ColumnAnswers)

	_, err = LoadGroundTruth(strings.NewReader("Prompt,Answers\nq,a\n"), newTestDiagnostics())
	require.ErrorIs(t, err, ErrMissingRequiredColumn)

	_, err = LoadGroundTruth(strings.NewReader(""), newTestDiagnostics())
	require.ErrorIs(t, err, ErrMissingRequiredColumn)
}

func TestLoadGroundTruthFileRejectsMissingFile(t *testing.T) {
	_, err := LoadGroundTruthFile(t.TempDir()+"/nope.csv", newTestDiagnostics())
	require.ErrorIs(t, err, ErrSourceUnreadable)
}

package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
)

func newSummaryTable(w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader([]string{"Metric", "Value"}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

func summaryRows(s evaluation.Summary) [][]string {
	return [][]string{
		{"Total", fmt.Sprint(s.Total)},
		{"Matched", fmt.Sprint(s.Matched)},
		{"Unmatched", fmt.Sprint(s.Unmatched)},
		{"Missing ground truth", fmt.Sprint(s.MissingGroundTruth)},
		{"Correct", fmt.Sprint(s.Correct)},
		{"Incorrect", fmt.Sprint(s.Incorrect)},
		{"Unjudged", fmt.Sprint(s.Unjudged)},
		{"Judge errors", fmt.Sprint(s.JudgeErrors)},
		{"Routing agreed", fmt.Sprint(s.SourceAgreed)},
		{"Routing disagreed", fmt.Sprint(s.SourceDisagreed)},
		{"Pass rate", fmt.Sprintf("%.1f%%", s.PassRate*100)},
		{"Avg correctness", fmt.Sprintf("%.2f", s.AverageCorrectness)},
	}
}

func renderSummary(w io.Writer, s evaluation.Summary) {
	table := newSummaryTable(w)
	for _, row := range summaryRows(s) {
		_ = table.Append(row)
	}
	_ = table.Render()
}

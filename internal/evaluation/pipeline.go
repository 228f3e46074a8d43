package evaluation

import (
	"context"

	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

// Sources names the inputs of one evaluation run.
type Sources struct {
	IdentifiersPath string
	GroundTruthPath string
	ResponseLogPath string
	RoutingLogPath  string
}

// Outcome is the product of the load, match, judge and aggregate stages.
type Outcome struct {
	Results []MatchResult
	Rows    []ResultRow
	Summary Summary
}

// Evaluate runs every stage up to, but excluding, persistence. Load failures
// are fatal and returned; everything else lands in diags.
func Evaluate(ctx context.Context, src Sources, judge ai.Judge, opts JudgeOptions, diags *Diagnostics) (Outcome, error) {
	ids, err := LoadIdentifiersFile(src.IdentifiersPath)
	if err != nil {
		return Outcome{}, err
	}

	table, err := LoadGroundTruthFile(src.GroundTruthPath, diags)
	if err != nil {
		return Outcome{}, err
	}

	index, err := LoadResponseIndex(src.ResponseLogPath, src.RoutingLogPath, diags)
	if err != nil {
		return Outcome{}, err
	}

	results := Match(ids, index, table, diags)
	JudgeAll(ctx, results, judge, opts, diags)

	return Outcome{
		Results: results,
		Rows:    Rows(results),
		Summary: Aggregate(results),
	}, nil
}

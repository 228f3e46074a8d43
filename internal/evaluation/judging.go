package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

// JudgeOptions bounds the judge fan-out.
type JudgeOptions struct {
	Concurrency int
	Timeout     time.Duration
}

// JudgeAll sets the verdict of every matched result. Unmatched results keep
// their verdict and are never sent to the judge. Each matched pair is scored
// at most once; a failed call marks only that item as judge_error.
func JudgeAll(ctx context.Context, results []MatchResult, judge ai.Judge, opts JudgeOptions, diags *Diagnostics) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Concurrency)

	for i := range results {
		item := &results[i]
		if !item.Matched() {
			continue
		}
		if strings.TrimSpace(item.Response.Answer) == "" || strings.TrimSpace(item.GroundTruth.Answer) == "" {
			item.Verdict = VerdictUnjudged
			if strings.TrimSpace(item.GroundTruth.Answer) == "" {
				item.Error = "No ground truth available"
			} else {
				item.Error = "No generated answer"
			}
			continue
		}
		if judge == nil {
			item.Verdict = VerdictUnjudged
			continue
		}

		group.Go(func() error {
			scoreItem(groupCtx, item, judge, opts.Timeout, diags)
			return nil
		})
	}

	_ = group.Wait()
}

func scoreItem(ctx context.Context, item *MatchResult, judge ai.Judge, timeout time.Duration, diags *Diagnostics) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	judgement, err := judge.Score(callCtx, ai.ScoreInput{
		Question:  item.Response.Question,
		Reference: item.GroundTruth.Answer,
		Answer:    item.Response.Answer,
	})
	if err != nil {
		item.Verdict = VerdictJudgeError
		item.Error = fmt.Sprintf("judge error: %v", err)
		diags.Add(DiagnosticJudgeError, item.ID, err.Error())
		return
	}

	item.Judgement = &judgement
	if judgement.Correct {
		item.Verdict = VerdictCorrect
	} else {
		item.Verdict = VerdictIncorrect
	}
}

package evaluation

import (
	"strconv"
	"strings"
)

// ResultColumns is the header of the results table.
var ResultColumns = []string{
	"response_id", "conversation_id", "turn", "question",
	"reference_answer", "generated_answer", "verdict", "error",
	"routing_correct", "expected_sources", "selected_sources",
	"routing_decision", "routing_reasoning", "routing_model",
	"judge_correctness", "judge_relevance",
	"judge_usage_input", "judge_usage_output", "judge_reasoning",
}

// ResultRow is one line of the results table.
type ResultRow struct {
	ResponseID       string
	ConversationID   string
	Turn             int
	Question         string
	ReferenceAnswer  string
	GeneratedAnswer  string
	Verdict          Verdict
	Error            string
	RoutingCorrect   *bool
	ExpectedSources  string
	SelectedSources  string
	RoutingDecision  string
	RoutingReasoning string
	RoutingModel     string
	JudgeCorrectness *float64
	JudgeRelevance   *float64
	JudgeUsageInput  *int
	JudgeUsageOutput *int
	JudgeReasoning   string
}

// Record renders the row in ResultColumns order.
func (r ResultRow) Record() []string {
	turn := ""
	if r.Turn > 0 {
		turn = strconv.Itoa(r.Turn)
	}
	return []string{
		r.ResponseID,
		r.ConversationID,
		turn,
		r.Question,
		r.ReferenceAnswer,
		r.GeneratedAnswer,
		string(r.Verdict),
		r.Error,
		formatBool(r.RoutingCorrect),
		r.ExpectedSources,
		r.SelectedSources,
		r.RoutingDecision,
		r.RoutingReasoning,
		r.RoutingModel,
		formatFloat(r.JudgeCorrectness),
		formatFloat(r.JudgeRelevance),
		formatInt(r.JudgeUsageInput),
		formatInt(r.JudgeUsageOutput),
		r.JudgeReasoning,
	}
}

// Rows converts match results into table rows, preserving order.
func Rows(results []MatchResult) []ResultRow {
	rows := make([]ResultRow, 0, len(results))
	for _, result := range results {
		row := ResultRow{
			ResponseID:     result.ID,
			Verdict:        result.Verdict,
			Error:          result.Error,
			RoutingCorrect: result.SourceAgreement,
		}

		if result.Response != nil {
			response := result.Response
			row.ConversationID = response.ConversationID
			row.Turn = response.Turn
			row.Question = response.Question
			row.GeneratedAnswer = response.Answer
			row.SelectedSources = strings.Join(response.Sources, ",")
			row.RoutingDecision = response.MetadataString("decision")
			row.RoutingReasoning = response.MetadataString("reasoning")
			row.RoutingModel = response.MetadataString("model")
		}

		if result.GroundTruth != nil {
			row.ReferenceAnswer = result.GroundTruth.Answer
			row.ExpectedSources = result.GroundTruth.Source
		}

		if j := result.Judgement; j != nil {
			row.JudgeCorrectness = j.Correctness
			row.JudgeRelevance = j.Relevance
			row.JudgeReasoning = j.Reasoning
			if j.InputTokens > 0 || j.OutputTokens > 0 {
				in, out := j.InputTokens, j.OutputTokens
				row.JudgeUsageInput = &in
				row.JudgeUsageOutput = &out
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// Aggregate folds match results into a summary. It performs no I/O.
func Aggregate(results []MatchResult) Summary {
	summary := Summary{Total: len(results)}

	var correctnessSum float64
	var correctnessCount int
	for _, result := range results {
		if result.Response != nil {
			summary.Matched++
		} else {
			summary.Unmatched++
		}

		switch result.Verdict {
		case VerdictUnmatchedNoGroundTruth:
			summary.MissingGroundTruth++
		case VerdictCorrect:
			summary.Correct++
		case VerdictIncorrect:
			summary.Incorrect++
		case VerdictJudgeError:
			summary.JudgeErrors++
		case VerdictUnjudged, "":
			if result.Matched() {
				summary.Unjudged++
			}
		}

		if result.SourceAgreement != nil {
			if *result.SourceAgreement {
				summary.SourceAgreed++
			} else {
				summary.SourceDisagreed++
			}
		}

		if result.Judgement != nil && result.Judgement.Correctness != nil {
			correctnessSum += *result.Judgement.Correctness
			correctnessCount++
		}
	}

	if judged := summary.Correct + summary.Incorrect; judged > 0 {
		summary.PassRate = float64(summary.Correct) / float64(judged)
	}
	if correctnessCount > 0 {
		summary.AverageCorrectness = correctnessSum / float64(correctnessCount)
	}

	return summary
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "True"
	}
	return "False"
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

package evaluation

import "strings"

// Match resolves every requested identifier against the log index and the
// ground truth table. It returns exactly one result per identifier, in order.
func Match(ids []string, index *ResponseIndex, table *GroundTruthTable, diags *Diagnostics) []MatchResult {
	results := make([]MatchResult, 0, len(ids))

	for _, id := range ids {
		result := MatchResult{ID: id}

		record, ok := index.Lookup(id)
		if !ok {
			result.Verdict = VerdictUnmatchedNoLog
			result.Error = "response id not found in log"
			diags.Add(DiagnosticUnmatched, id, "response id not found in log")
			results = append(results, result)
			continue
		}
		response := record
		result.Response = &response

		truth, ok := table.LookupQuestion(record.Question)
		if !ok {
			result.Verdict = VerdictUnmatchedNoGroundTruth
			result.Error = "No ground truth available"
			diags.Add(DiagnosticUnmatched, id, "no ground truth for question")
			results = append(results, result)
			continue
		}
		reference := truth
		result.GroundTruth = &reference
		result.SourceAgreement = sourceAgreement(truth.Source, record.Sources)

		results = append(results, result)
	}

	return results
}

// sourceAgreement is nil unless both an expected label and at least one
// response label are present.
func sourceAgreement(expected string, actual []string) *bool {
	expected = strings.TrimSpace(expected)
	if expected == "" || len(actual) == 0 {
		return nil
	}
	agreed := false
	for _, label := range actual {
		if strings.EqualFold(strings.TrimSpace(label), expected) {
			agreed = true
			break
		}
	}
	return &agreed
}

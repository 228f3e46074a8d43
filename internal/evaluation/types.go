package evaluation

import (
	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

// Verdict classifies the outcome of a single requested identifier.
type Verdict string

const (
	VerdictCorrect                Verdict = "correct"
	VerdictIncorrect              Verdict = "incorrect"
	VerdictUnjudged               Verdict = "unjudged"
	VerdictJudgeError             Verdict = "judge_error"
	VerdictUnmatchedNoLog         Verdict = "unmatched_no_log"
	VerdictUnmatchedNoGroundTruth Verdict = "unmatched_no_ground_truth"
)

// ResponseRecord is one logged model response.
type ResponseRecord struct {
	ID             string
	RequestID      string
	PreviousID     string
	ConversationID string
	Turn           int
	Question       string
	Answer         string
	Sources        []string
	Metadata       map[string]any
}

// MetadataString returns a metadata value rendered as a string, or "" when absent.
func (r ResponseRecord) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	value, ok := r.Metadata[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return stringify(value)
}

// GroundTruthRecord is one reference answer keyed by its normalized question.
type GroundTruthRecord struct {
	Key      string
	Question string
	Answer   string
	Source   string
	Row      int
}

// MatchResult pairs a requested identifier with the records it resolved to.
type MatchResult struct {
	ID              string
	Response        *ResponseRecord
	GroundTruth     *GroundTruthRecord
	SourceAgreement *bool
	Verdict         Verdict
	Judgement       *ai.Judgement
	Error           string
}

// Matched reports whether both a log entry and a ground-truth row were found.
func (m MatchResult) Matched() bool {
	return m.Response != nil && m.GroundTruth != nil
}

// Summary aggregates verdict counts over one job.
type Summary struct {
	Total              int     `json:"total"`
	Matched            int     `json:"matched"`
	Unmatched          int     `json:"unmatched"`
	MissingGroundTruth int     `json:"missing_ground_truth"`
	Correct            int     `json:"correct"`
	Incorrect          int     `json:"incorrect"`
	Unjudged           int     `json:"unjudged"`
	JudgeErrors        int     `json:"judge_errors"`
	SourceAgreed       int     `json:"source_agreed"`
	SourceDisagreed    int     `json:"source_disagreed"`
	PassRate           float64 `json:"pass_rate"`
	AverageCorrectness float64 `json:"average_correctness"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationResult is one row of a job's results table persisted by the
// database sink.
type EvaluationResult struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	JobID            string            `gorm:"size:64;index;not null" json:"job_id"`
	Position         int               `gorm:"not null" json:"position"`
	ResponseID       string            `gorm:"size:128;index" json:"response_id"`
	ConversationID   string            `gorm:"size:128" json:"conversation_id"`
	Turn             int               `json:"turn"`
	Question         string            `gorm:"type:text" json:"question"`
	ReferenceAnswer  string            `gorm:"type:text" json:"reference_answer"`
	GeneratedAnswer  string            `gorm:"type:text" json:"generated_answer"`
	Verdict          string            `gorm:"size:32;index" json:"verdict"`
	Error            string            `gorm:"type:text" json:"error"`
	RoutingCorrect   *bool             `json:"routing_correct"`
	JudgeCorrectness *float64          `json:"judge_correctness"`
	JudgeRelevance   *float64          `json:"judge_relevance"`
	Routing          datatypes.JSONMap `json:"routing"`
	Usage            datatypes.JSONMap `json:"usage"`
	CreatedAt        time.Time         `json:"created_at"`
}

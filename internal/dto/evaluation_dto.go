package dto

import (
	"time"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/models"
)

// EvaluationJobRequest is the payload accepted by POST /api/v1/eval.
type EvaluationJobRequest struct {
	ResponseIDPath  string `json:"response_id_path" validate:"required,max=1024"`
	GroundTruthPath string `json:"ground_truth_path" validate:"required,max=1024"`
	WebhookURL      string `json:"webhook_url" validate:"required,url,max=2048"`
	ResponseLogPath string `json:"response_log_path" validate:"omitempty,max=1024"`
	RoutingLogPath  string `json:"routing_log_path" validate:"omitempty,max=1024"`
}

// EvaluationAcceptedResponse acknowledges a queued job.
type EvaluationAcceptedResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// EvaluationJobResponse is the snapshot returned by GET /api/v1/eval/:id.
type EvaluationJobResponse struct {
	JobID       string              `json:"job_id"`
	Status      string              `json:"status"`
	ResultFile  string              `json:"result_file,omitempty"`
	ResultURL   string              `json:"result_url,omitempty"`
	TotalItems  int                 `json:"total_items"`
	DurationSec float64             `json:"duration_sec"`
	Error       string              `json:"error,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Summary     *evaluation.Summary `json:"summary,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

// NewEvaluationJobResponse converts a job into its public snapshot.
func NewEvaluationJobResponse(job models.EvaluationJob) EvaluationJobResponse {
	return EvaluationJobResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		ResultFile:  job.ResultFile,
		ResultURL:   job.ResultURL,
		TotalItems:  job.TotalItems,
		DurationSec: job.DurationSec,
		Error:       job.Error,
		Warnings:    job.Warnings,
		Summary:     job.Summary,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
	}
}

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
)

// JobStatus tracks the lifecycle of an evaluation job.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// ErrInvalidTransition is returned when a job would move backwards or leave a
// terminal state.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// EvaluationJob is one run of the evaluation pipeline.
type EvaluationJob struct {
	ID              string              `json:"id"`
	Status          JobStatus           `json:"status"`
	ResponseIDPath  string              `json:"response_id_path"`
	GroundTruthPath string              `json:"ground_truth_path"`
	ResponseLogPath string              `json:"response_log_path,omitempty"`
	RoutingLogPath  string              `json:"routing_log_path,omitempty"`
	WebhookURL      string              `json:"webhook_url"`
	CorrelationID   string              `json:"correlation_id,omitempty"`
	ResultFile      string              `json:"result_file,omitempty"`
	ResultURL       string              `json:"result_url,omitempty"`
	TotalItems      int                 `json:"total_items"`
	DurationSec     float64             `json:"duration_sec"`
	Error           string              `json:"error,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
	Summary         *evaluation.Summary `json:"summary,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	FinishedAt      *time.Time          `json:"finished_at,omitempty"`
}

// Transition moves the job to the next status, stamping timestamps. Only
// pending→running, running→success and running→failed are allowed.
func (j *EvaluationJob) Transition(to JobStatus, at time.Time) error {
	allowed := false
	switch j.Status {
	case JobStatusPending:
		allowed = to == JobStatusRunning
	case JobStatusRunning:
		allowed = to.Terminal()
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}

	j.Status = to
	stamp := at
	if to == JobStatusRunning {
		j.StartedAt = &stamp
	} else {
		j.FinishedAt = &stamp
	}
	return nil
}

// Clone returns a copy that shares no mutable state with j.
func (j EvaluationJob) Clone() EvaluationJob {
	out := j
	if j.Warnings != nil {
		out.Warnings = append([]string(nil), j.Warnings...)
	}
	if j.Summary != nil {
		summary := *j.Summary
		out.Summary = &summary
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

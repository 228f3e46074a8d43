package sink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

// DatabaseSink stores result rows in the evaluation_results table.
type DatabaseSink struct {
	repo   repository.EvaluationResultRepository
	logger zerolog.Logger
}

// NewDatabaseSink constructs a sink backed by the given repository.
func NewDatabaseSink(repo repository.EvaluationResultRepository, logger zerolog.Logger) *DatabaseSink {
	return &DatabaseSink{
		repo:   repo,
		logger: logger.With().Str("component", "database_sink").Logger(),
	}
}

func (s *DatabaseSink) Write(ctx context.Context, batch Batch) (Artifact, error) {
	rows := make([]models.EvaluationResult, 0, len(batch.Rows))
	for i, row := range batch.Rows {
		rows = append(rows, toModel(batch.JobID, i, row))
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return Artifact{}, fmt.Errorf("%w: insert evaluation results: %v", ErrWriteFailure, err)
	}

	ref := fmt.Sprintf("db:evaluation_results?job_id=%s", batch.JobID)
	s.logger.Info().Str("job_id", batch.JobID).Int("rows", len(rows)).Msg("results stored")

	return Artifact{Ref: ref, Rows: len(rows)}, nil
}

func toModel(jobID string, position int, row evaluation.ResultRow) models.EvaluationResult {
	routing := datatypes.JSONMap{}
	setIfPresent(routing, "expected_sources", row.ExpectedSources)
	setIfPresent(routing, "selected_sources", row.SelectedSources)
	setIfPresent(routing, "decision", row.RoutingDecision)
	setIfPresent(routing, "reasoning", row.RoutingReasoning)
	setIfPresent(routing, "model", row.RoutingModel)

	usage := datatypes.JSONMap{}
	if row.JudgeUsageInput != nil {
		usage["input"] = *row.JudgeUsageInput
	}
	if row.JudgeUsageOutput != nil {
		usage["output"] = *row.JudgeUsageOutput
	}
	setIfPresent(usage, "reasoning", row.JudgeReasoning)

	return models.EvaluationResult{
		JobID:            jobID,
		Position:         position,
		ResponseID:       row.ResponseID,
		ConversationID:   row.ConversationID,
		Turn:             row.Turn,
		Question:         row.Question,
		ReferenceAnswer:  row.ReferenceAnswer,
		GeneratedAnswer:  row.GeneratedAnswer,
		Verdict:          string(row.Verdict),
		Error:            row.Error,
		RoutingCorrect:   row.RoutingCorrect,
		JudgeCorrectness: row.JudgeCorrectness,
		JudgeRelevance:   row.JudgeRelevance,
		Routing:          routing,
		Usage:            usage,
	}
}

func setIfPresent(m datatypes.JSONMap, key, value string) {
	if value != "" {
		m[key] = value
	}
}

package sink

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

func TestDatabaseSinkStoresRowsInOrder(t *testing.T) {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EvaluationResult{}))

	repo := repository.NewEvaluationResultRepository(db)
	s := NewDatabaseSink(repo, zerolog.Nop())

	input := 12
	output := 3
	batch := sampleBatch("job-db", "a", "b")
	batch.Rows[0].SelectedSources = "docs,wiki"
	batch.Rows[0].JudgeUsageInput = &input
	batch.Rows[0].JudgeUsageOutput = &output

	artifact, err := s.Write(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, "db:evaluation_results?job_id=job-db", artifact.Ref)
	require.Equal(t, 2, artifact.Rows)

	stored, err := repo.ListByJob(context.Background(), "job-db")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "a", stored[0].ResponseID)
	require.Equal(t, 0, stored[0].Position)
	require.Equal(t, string(evaluation.VerdictCorrect), stored[0].Verdict)
	require.Equal(t, "docs,wiki", stored[0].Routing["selected_sources"])
	require.EqualValues(t, 12, stored[0].Usage["input"])
	require.Empty(t, stored[1].Usage)
}

type failingResultRepo struct {
	repository.EvaluationResultRepository
}

func (failingResultRepo) CreateBatch(context.Context, []models.EvaluationResult) error {
	return fmt.Errorf("connection refused")
}

func TestDatabaseSinkWrapsFailures(t *testing.T) {
	s := NewDatabaseSink(failingResultRepo{}, zerolog.Nop())
	_, err := s.Write(context.Background(), sampleBatch("job", "a"))
	require.ErrorIs(t, err, ErrWriteFailure)
	require.ErrorContains(t, err, "connection refused")
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/models"
)

func TestMemoryJobRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()

	job := models.EvaluationJob{ID: "job-1", Status: models.JobStatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, job))
	require.Error(t, repo.Create(ctx, job))

	updated, err := repo.Update(ctx, "job-1", func(j *models.EvaluationJob) error {
		return j.Transition(models.JobStatusRunning, time.Now())
	})
	require.NoError(t, err)
	require.Equal(t, models.JobStatusRunning, updated.Status)

	_, err = repo.Update(ctx, "job-1", func(j *models.EvaluationJob) error {
		j.Warnings = append(j.Warnings, "discarded")
		return errors.New("boom")
	})
	require.Error(t, err)

	stored, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusRunning, stored.Status)
	require.Empty(t, stored.Warnings)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
	_, err = repo.Update(ctx, "missing", func(*models.EvaluationJob) error { return nil })
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryJobRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, models.EvaluationJob{ID: "job-1", Warnings: []string{"a"}}))

	got, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	got.Warnings[0] = "mutated"

	again, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "a", again.Warnings[0])
}

func TestRedisJobRepositoryMirrorsSnapshots(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx := context.Background()
	writer := NewRedisJobRepository(client, "eval:jobs", time.Hour, zerolog.Nop())

	require.NoError(t, writer.Create(ctx, models.EvaluationJob{ID: "job-1", Status: models.JobStatusPending}))
	_, err = writer.Update(ctx, "job-1", func(j *models.EvaluationJob) error {
		if err := j.Transition(models.JobStatusRunning, time.Now()); err != nil {
			return err
		}
		if err := j.Transition(models.JobStatusSuccess, time.Now()); err != nil {
			return err
		}
		j.TotalItems = 3
		j.Summary = &evaluation.Summary{Total: 3, Matched: 2, Unmatched: 1}
		return nil
	})
	require.NoError(t, err)

	require.True(t, server.Exists("eval:jobs:job-1"))
	require.Greater(t, server.TTL("eval:jobs:job-1"), time.Duration(0))

	reader := NewRedisJobRepository(client, "eval:jobs", time.Hour, zerolog.Nop())
	job, err := reader.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusSuccess, job.Status)
	require.Equal(t, 3, job.TotalItems)
	require.Equal(t, 2, job.Summary.Matched)

	_, err = reader.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}

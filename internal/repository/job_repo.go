package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// ErrJobNotFound is returned when no job exists for an id.
var ErrJobNotFound = errors.New("evaluation job not found")

// JobRepository stores evaluation job state keyed by job id.
type JobRepository interface {
	Create(ctx context.Context, job models.EvaluationJob) error
	Get(ctx context.Context, id string) (models.EvaluationJob, error)
	Update(ctx context.Context, id string, fn func(job *models.EvaluationJob) error) (models.EvaluationJob, error)
}

type memoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]models.EvaluationJob
}

// NewMemoryJobRepository returns a process-local job store.
func NewMemoryJobRepository() JobRepository {
	return &memoryJobRepository{jobs: make(map[string]models.EvaluationJob)}
}

func (r *memoryJobRepository) Create(_ context.Context, job models.EvaluationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *memoryJobRepository) Get(_ context.Context, id string) (models.EvaluationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.EvaluationJob{}, ErrJobNotFound
	}
	return job.Clone(), nil
}

// Update applies fn to a copy and stores it only when fn succeeds.
func (r *memoryJobRepository) Update(_ context.Context, id string, fn func(job *models.EvaluationJob) error) (models.EvaluationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[id]
	if !ok {
		return models.EvaluationJob{}, ErrJobNotFound
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return current.Clone(), err
	}
	r.jobs[id] = next
	return next.Clone(), nil
}

type redisJobRepository struct {
	local  JobRepository
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisJobRepository keeps the authoritative state in memory and mirrors
// JSON snapshots to Redis so other replicas can answer status lookups.
func NewRedisJobRepository(client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) JobRepository {
	if prefix == "" {
		prefix = "eval:jobs"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisJobRepository{
		local:  NewMemoryJobRepository(),
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "job_repository").Logger(),
	}
}

func (r *redisJobRepository) key(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

func (r *redisJobRepository) Create(ctx context.Context, job models.EvaluationJob) error {
	if err := r.local.Create(ctx, job); err != nil {
		return err
	}
	r.mirror(ctx, job)
	return nil
}

func (r *redisJobRepository) Get(ctx context.Context, id string) (models.EvaluationJob, error) {
	job, err := r.local.Get(ctx, id)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, ErrJobNotFound) {
		return models.EvaluationJob{}, err
	}

	raw, redisErr := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(redisErr, redis.Nil) {
		return models.EvaluationJob{}, ErrJobNotFound
	}
	if redisErr != nil {
		return models.EvaluationJob{}, redisErr
	}

	var snapshot models.EvaluationJob
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.EvaluationJob{}, fmt.Errorf("decode job snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *redisJobRepository) Update(ctx context.Context, id string, fn func(job *models.EvaluationJob) error) (models.EvaluationJob, error) {
	job, err := r.local.Update(ctx, id, fn)
	if err != nil {
		return job, err
	}
	r.mirror(ctx, job)
	return job, nil
}

func (r *redisJobRepository) mirror(ctx context.Context, job models.EvaluationJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to encode job snapshot")
		return
	}
	if err := r.client.Set(ctx, r.key(job.ID), payload, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to mirror job snapshot")
	}
}

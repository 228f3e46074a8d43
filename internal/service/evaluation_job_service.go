package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-eval-api/internal/database"
	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/sink"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

const maxWebhookWarnings = 50

var (
	// ErrQueueFull indicates every worker is busy and the backlog is at capacity.
	ErrQueueFull = errors.New("evaluation queue is full")
	// ErrServiceClosed indicates the service no longer accepts jobs.
	ErrServiceClosed = errors.New("evaluation service is shutting down")
)

// EvaluationJobService runs evaluation jobs off the request path.
type EvaluationJobService interface {
	Submit(ctx context.Context, req dto.EvaluationJobRequest) (dto.EvaluationAcceptedResponse, error)
	Get(ctx context.Context, id string) (dto.EvaluationJobResponse, error)
	Run(ctx context.Context, input RunInput) (RunResult, error)
	Start(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// EvaluationJobConfig tunes the worker pool and pipeline defaults.
type EvaluationJobConfig struct {
	Workers        int
	QueueSize      int
	RoutingLogDir  string
	ResponseLogDir string
	Judge          evaluation.JudgeOptions
	ClaimTTL       time.Duration
	Now            func() time.Time
}

// EvaluationJobDependencies groups the collaborators of the service. Redis,
// Notifier and Events are optional.
type EvaluationJobDependencies struct {
	Repo      repository.JobRepository
	Sink      sink.Sink
	Judge     ai.Judge
	Notifier  WebhookNotifier
	Events    JobEventPublisher
	Redis     *redis.Client
	Validator *validator.Validate
	Logger    zerolog.Logger
}

// RunInput identifies one synchronous pipeline run.
type RunInput struct {
	JobID   string
	Sources evaluation.Sources
}

// RunResult is what a pipeline run produced, including partial diagnostics
// when it failed.
type RunResult struct {
	Outcome     evaluation.Outcome
	Artifact    sink.Artifact
	Diagnostics []evaluation.Diagnostic
	Sources     evaluation.Sources
}

// Warnings renders the diagnostics for job snapshots.
func (r RunResult) Warnings() []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.String())
	}
	return out
}

type evaluationJobService struct {
	cfg       EvaluationJobConfig
	repo      repository.JobRepository
	sink      sink.Sink
	judge     ai.Judge
	notifier  WebhookNotifier
	events    JobEventPublisher
	redis     *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu        sync.RWMutex
	closed    bool
	queue     chan string
	slots     chan struct{}
	startOnce sync.Once
	workers   sync.WaitGroup
	finishers sync.Map
}

// NewEvaluationJobService constructs the job orchestrator.
func NewEvaluationJobService(cfg EvaluationJobConfig, deps EvaluationJobDependencies) EvaluationJobService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 24 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &evaluationJobService{
		cfg:       cfg,
		repo:      deps.Repo,
		sink:      deps.Sink,
		judge:     deps.Judge,
		notifier:  deps.Notifier,
		events:    deps.Events,
		redis:     deps.Redis,
		validator: validate,
		logger:    deps.Logger.With().Str("component", "evaluation_job_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-eval-api/internal/service/evaluation"),
		now:       now,
		queue:     make(chan string, cfg.QueueSize),
		slots:     make(chan struct{}, cfg.QueueSize),
	}
}

func (s *evaluationJobService) Submit(ctx context.Context, req dto.EvaluationJobRequest) (dto.EvaluationAcceptedResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.submit")
	defer span.End()

	req.ResponseIDPath = strings.TrimSpace(req.ResponseIDPath)
	req.GroundTruthPath = strings.TrimSpace(req.GroundTruthPath)
	req.WebhookURL = strings.TrimSpace(req.WebhookURL)
	req.ResponseLogPath = strings.TrimSpace(req.ResponseLogPath)
	req.RoutingLogPath = strings.TrimSpace(req.RoutingLogPath)

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.EvaluationAcceptedResponse{}, err
	}

	job := models.EvaluationJob{
		ID:              uuid.NewString(),
		Status:          models.JobStatusPending,
		ResponseIDPath:  req.ResponseIDPath,
		GroundTruthPath: req.GroundTruthPath,
		ResponseLogPath: req.ResponseLogPath,
		RoutingLogPath:  req.RoutingLogPath,
		WebhookURL:      req.WebhookURL,
		CorrelationID:   middleware.CorrelationIDFromContext(ctx),
		CreatedAt:       s.now().UTC(),
	}
	span.SetAttributes(attribute.String("evaluation.job_id", job.ID))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return dto.EvaluationAcceptedResponse{}, ErrServiceClosed
	}

	// A slot is held until a worker dequeues the job.
	select {
	case s.slots <- struct{}{}:
	default:
		observability.Jobs().WithLabelValues("rejected").Inc()
		span.SetStatus(codes.Error, "queue full")
		return dto.EvaluationAcceptedResponse{}, ErrQueueFull
	}

	if err := s.repo.Create(ctx, job); err != nil {
		<-s.slots
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.EvaluationAcceptedResponse{}, err
	}
	s.queue <- job.ID

	observability.Jobs().WithLabelValues("accepted").Inc()
	s.logger.Info().Str("job_id", job.ID).Msg("evaluation job queued")

	return dto.EvaluationAcceptedResponse{
		JobID:   job.ID,
		Status:  "started",
		Message: "Evaluation started in background",
	}, nil
}

func (s *evaluationJobService) Get(ctx context.Context, id string) (dto.EvaluationJobResponse, error) {
	job, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return dto.EvaluationJobResponse{}, err
	}
	return dto.NewEvaluationJobResponse(job), nil
}

func (s *evaluationJobService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		jobCtx := context.WithoutCancel(ctx)
		for i := 0; i < s.cfg.Workers; i++ {
			s.workers.Add(1)
			go s.work(jobCtx, i)
		}
	})
}

// Shutdown stops intake and waits for queued and in-flight jobs.
func (s *evaluationJobService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *evaluationJobService) work(ctx context.Context, worker int) {
	defer s.workers.Done()
	logger := s.logger.With().Int("worker", worker).Logger()

	for id := range s.queue {
		<-s.slots
		s.process(ctx, id, logger)
	}
}

func (s *evaluationJobService) process(ctx context.Context, id string, logger zerolog.Logger) {
	job, err := s.repo.Update(ctx, id, func(j *models.EvaluationJob) error {
		return j.Transition(models.JobStatusRunning, s.now().UTC())
	})
	if err != nil {
		logger.Error().Err(err).Str("job_id", id).Msg("failed to start evaluation job")
		return
	}

	observability.JobsInFlight().Inc()
	defer observability.JobsInFlight().Dec()

	ctx = middleware.ContextWithJob(ctx, job.ID, job.CorrelationID)
	jobLogger := middleware.JobLogger(ctx, logger)
	jobLogger.Info().Msg("evaluation job started")

	started := s.now()
	result, runErr := s.runSafely(ctx, RunInput{
		JobID: job.ID,
		Sources: evaluation.Sources{
			IdentifiersPath: job.ResponseIDPath,
			GroundTruthPath: job.GroundTruthPath,
			ResponseLogPath: job.ResponseLogPath,
			RoutingLogPath:  job.RoutingLogPath,
		},
	})

	s.finish(ctx, job, result, runErr, s.now().Sub(started))
}

// runSafely turns a panic inside the pipeline into a job failure.
func (s *evaluationJobService) runSafely(ctx context.Context, input RunInput) (result RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()
	return s.Run(ctx, input)
}

func (s *evaluationJobService) Run(ctx context.Context, input RunInput) (RunResult, error) {
	if input.JobID == "" {
		input.JobID = uuid.NewString()
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.run", trace.WithAttributes(
		attribute.String("evaluation.job_id", input.JobID),
	))
	defer span.End()

	runDate := s.now()
	src := s.resolveSources(input.Sources, runDate)
	diags := evaluation.NewDiagnostics(middleware.JobLogger(middleware.ContextWithJob(ctx, input.JobID, ""), s.logger))

	result := RunResult{Sources: src}

	outcome, err := evaluation.Evaluate(ctx, src, s.judge, s.cfg.Judge, diags)
	result.Diagnostics = diags.Items()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return result, err
	}
	result.Outcome = outcome

	_, writeSpan := s.tracer.Start(ctx, "evaluation.sink")
	artifact, err := s.sink.Write(ctx, sink.Batch{
		JobID: input.JobID,
		Date:  runDate,
		Rows:  outcome.Rows,
	})
	writeSpan.End()
	if err != nil {
		observability.SinkWrites().WithLabelValues(sinkLabel(s.sink), "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink write failed")
		return result, err
	}
	observability.SinkWrites().WithLabelValues(sinkLabel(s.sink), "success").Inc()
	result.Artifact = artifact
	for _, warning := range artifact.Warnings {
		diags.Add(evaluation.DiagnosticArtifactMirror, "", warning)
	}
	result.Diagnostics = diags.Items()

	for _, item := range outcome.Results {
		observability.Items().WithLabelValues(string(item.Verdict)).Inc()
	}
	for _, d := range result.Diagnostics {
		observability.Diagnostics().WithLabelValues(d.Kind).Inc()
	}

	span.SetAttributes(
		attribute.Int("evaluation.total", outcome.Summary.Total),
		attribute.Int("evaluation.matched", outcome.Summary.Matched),
	)
	span.SetStatus(codes.Ok, "evaluated")

	return result, nil
}

// resolveSources fills missing log paths with the per-date defaults.
func (s *evaluationJobService) resolveSources(src evaluation.Sources, at time.Time) evaluation.Sources {
	day := at.Format("2006-01-02")
	if src.ResponseLogPath == "" {
		src.ResponseLogPath = filepath.Join(s.cfg.ResponseLogDir, fmt.Sprintf("responses_%s.jsonl", day))
	}
	if src.RoutingLogPath == "" {
		src.RoutingLogPath = filepath.Join(s.cfg.RoutingLogDir, fmt.Sprintf("routing_%s.jsonl", day))
	}
	return src
}

// finish records the terminal transition of a job and then notifies once.
func (s *evaluationJobService) finish(ctx context.Context, job models.EvaluationJob, result RunResult, runErr error, elapsed time.Duration) {
	once, _ := s.finishers.LoadOrStore(job.ID, &sync.Once{})
	once.(*sync.Once).Do(func() {
		defer s.finishers.Delete(job.ID)

		payload := buildPayload(job.ID, result, runErr, elapsed)
		status := models.JobStatusSuccess
		if runErr != nil {
			status = models.JobStatusFailed
		}

		_, err := s.repo.Update(ctx, job.ID, func(j *models.EvaluationJob) error {
			if err := j.Transition(status, s.now().UTC()); err != nil {
				return err
			}
			j.ResultFile = payload.ResultFile
			j.ResultURL = payload.ResultURL
			j.TotalItems = payload.TotalItems
			j.DurationSec = payload.DurationSec
			j.Error = payload.Error
			j.Warnings = result.Warnings()
			j.Summary = payload.Summary
			return nil
		})
		if errors.Is(err, models.ErrInvalidTransition) {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("job already finished")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to record job outcome")
		}

		observability.Jobs().WithLabelValues(string(status)).Inc()
		observability.JobDuration().WithLabelValues(string(status)).Observe(elapsed.Seconds())

		event := s.logger.Info()
		if runErr != nil {
			event = s.logger.Error().Err(runErr)
		}
		event.Str("job_id", job.ID).Str("status", string(status)).Int("total_items", payload.TotalItems).Float64("duration_sec", payload.DurationSec).Msg("evaluation job finished")

		if !s.claim(ctx, job.ID) {
			s.logger.Warn().Str("job_id", job.ID).Msg("terminal notification already claimed")
			return
		}
		s.notify(ctx, job.WebhookURL, payload)
	})
}

// claim reserves the terminal notification across replicas sharing Redis.
// Without Redis, or when Redis is unreachable, the local once guard suffices.
func (s *evaluationJobService) claim(ctx context.Context, id string) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.SetNX(ctx, database.JobKey(id, "notified"), 1, s.cfg.ClaimTTL).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("notification claim unavailable")
		return true
	}
	return ok
}

func (s *evaluationJobService) notify(ctx context.Context, url string, payload WebhookPayload) {
	if s.notifier != nil && url != "" {
		if err := s.notifier.Notify(ctx, url, payload); err != nil {
			observability.WebhookDeliveries().WithLabelValues("failure").Inc()
			s.logger.Error().Err(err).Str("job_id", payload.JobID).Str("webhook_url", url).Msg("webhook delivery failed")
		} else {
			observability.WebhookDeliveries().WithLabelValues("success").Inc()
		}
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, payload); err != nil {
			s.logger.Warn().Err(err).Str("job_id", payload.JobID).Msg("failed to publish job event")
		}
	}
}

func buildPayload(jobID string, result RunResult, runErr error, elapsed time.Duration) WebhookPayload {
	payload := WebhookPayload{
		JobID:       jobID,
		DurationSec: math.Round(elapsed.Seconds()*100) / 100,
		Warnings:    capWarnings(result.Warnings()),
	}

	if runErr != nil {
		payload.Status = string(models.JobStatusFailed)
		payload.Error = runErr.Error()
		return payload
	}

	summary := result.Outcome.Summary
	payload.Status = string(models.JobStatusSuccess)
	payload.ResultFile = result.Artifact.Ref
	payload.ResultURL = result.Artifact.URL
	payload.TotalItems = len(result.Outcome.Rows)
	payload.Summary = &summary
	return payload
}

func capWarnings(warnings []string) []string {
	if len(warnings) <= maxWebhookWarnings {
		return warnings
	}
	capped := append([]string(nil), warnings[:maxWebhookWarnings]...)
	return append(capped, fmt.Sprintf("... and %d more", len(warnings)-maxWebhookWarnings))
}

func sinkLabel(target sink.Sink) string {
	switch target.(type) {
	case *sink.CSVSink:
		return "csv"
	case *sink.DatabaseSink:
		return "database"
	case *sink.MirroredSink:
		return "csv_mirrored"
	default:
		return "custom"
	}
}

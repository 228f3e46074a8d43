package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema_eval",
		Subsystem: "judge",
		Name:      "call_duration_seconds",
		Help:      "Duration of external judge calls",
	}, []string{"provider", "model"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema_eval",
		Subsystem: "judge",
		Name:      "call_failures_total",
		Help:      "Number of external judge calls that failed",
	}, []string{"provider", "model"})
)

// OpenAIConfig defines configuration options for the OpenAI judge.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float32
	PassThreshold float64
	Logger        zerolog.Logger
}

// OpenAIJudge implements Judge against the OpenAI chat completion API.
type OpenAIJudge struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIJudge builds a judge using the provided configuration.
func NewOpenAIJudge(cfg OpenAIConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}

	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = DefaultPassThreshold
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIJudge{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-eval-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_judge").Logger(),
	}, nil
}

// Score asks the model to grade the answer against the reference.
func (j *OpenAIJudge) Score(parent context.Context, input ScoreInput) (Judgement, error) {
	ctx, span := j.tracer.Start(parent, "openai.score", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
	))
	defer span.End()

	userPrompt, err := buildUserPrompt(input)
	if err != nil {
		return Judgement{}, err
	}

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: judgeSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := j.client.CreateChatCompletion(ctx, request)
	judgeDuration.WithLabelValues(ProviderOpenAI, j.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return Judgement{}, j.fail(span, fmt.Errorf("openai score: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Judgement{}, j.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	judgement, err := parseJudgement(strings.TrimSpace(resp.Choices[0].Message.Content), j.cfg.PassThreshold)
	if err != nil {
		return Judgement{}, j.fail(span, err)
	}

	judgement.Provider = ProviderOpenAI
	judgement.InputTokens = resp.Usage.PromptTokens
	judgement.OutputTokens = resp.Usage.CompletionTokens

	return judgement, nil
}

func (j *OpenAIJudge) fail(span trace.Span, err error) error {
	judgeFailures.WithLabelValues(ProviderOpenAI, j.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	j.logger.Debug().Err(err).Msg("judge call failed")
	return err
}

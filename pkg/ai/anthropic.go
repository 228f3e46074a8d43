package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AnthropicConfig configures the Claude-backed judge.
type AnthropicConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int64
	PassThreshold float64
	Logger        zerolog.Logger
}

// AnthropicJudge implements Judge using the Anthropic Messages API.
type AnthropicJudge struct {
	client anthropic.Client
	cfg    AnthropicConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicJudge constructs a judge backed by Claude.
func NewAnthropicJudge(cfg AnthropicConfig) (*AnthropicJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = DefaultPassThreshold
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicJudge{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-eval-api/pkg/ai/anthropic"),
		logger: cfg.Logger.With().Str("component", "anthropic_judge").Logger(),
	}, nil
}

// Score asks Claude to grade the answer against the reference.
func (j *AnthropicJudge) Score(parent context.Context, input ScoreInput) (Judgement, error) {
	ctx, span := j.tracer.Start(parent, "anthropic.score", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
	))
	defer span.End()

	userPrompt, err := buildUserPrompt(input)
	if err != nil {
		return Judgement{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(j.cfg.Model),
		MaxTokens: j.cfg.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: judgeSystemPrompt()}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(userPrompt),
			},
		}},
		Temperature: anthropic.Float(0),
	}

	start := time.Now()
	message, err := j.client.Messages.New(ctx, params)
	judgeDuration.WithLabelValues(ProviderAnthropic, j.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return Judgement{}, j.fail(span, fmt.Errorf("anthropic score: %w", err))
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Judgement{}, j.fail(span, fmt.Errorf("no text content returned from anthropic"))
	}

	judgement, err := parseJudgement(text.String(), j.cfg.PassThreshold)
	if err != nil {
		return Judgement{}, j.fail(span, err)
	}

	judgement.Provider = ProviderAnthropic
	judgement.InputTokens = int(message.Usage.InputTokens)
	judgement.OutputTokens = int(message.Usage.OutputTokens)

	return judgement, nil
}

func (j *AnthropicJudge) fail(span trace.Span, err error) error {
	judgeFailures.WithLabelValues(ProviderAnthropic, j.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	j.logger.Debug().Err(err).Msg("judge call failed")
	return err
}

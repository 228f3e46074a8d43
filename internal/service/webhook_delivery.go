package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
)

// ErrWebhookRejected indicates the receiver answered with a non-2xx status.
var ErrWebhookRejected = errors.New("webhook rejected")

// WebhookPayload is the completion notification body.
type WebhookPayload struct {
	JobID       string              `json:"job_id"`
	Status      string              `json:"status"`
	ResultFile  string              `json:"result_file,omitempty"`
	ResultURL   string              `json:"result_url,omitempty"`
	TotalItems  int                 `json:"total_items"`
	DurationSec float64             `json:"duration_sec"`
	Error       string              `json:"error,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Summary     *evaluation.Summary `json:"summary,omitempty"`
}

// WebhookNotifier delivers completion notifications.
type WebhookNotifier interface {
	Notify(ctx context.Context, url string, payload WebhookPayload) error
}

// HTTPWebhookNotifier posts the payload once and never retries.
type HTTPWebhookNotifier struct {
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPWebhookNotifier constructs a notifier bounded by timeout.
func NewHTTPWebhookNotifier(timeout time.Duration, logger zerolog.Logger) *HTTPWebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWebhookNotifier{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With().Str("component", "webhook_delivery").Logger(),
	}
}

func (n *HTTPWebhookNotifier) Notify(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlation)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	}

	n.logger.Info().Str("job_id", payload.JobID).Str("status", payload.Status).Int("http_status", resp.StatusCode).Msg("webhook delivered")
	return nil
}

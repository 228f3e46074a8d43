package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDPropagatesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-7", resp.Header.Get("X-Correlation-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestContextWithCorrelationIgnoresBlank(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), "  ")
	require.Empty(t, CorrelationIDFromContext(ctx))
	require.Equal(t, "abc", CorrelationIDFromContext(ContextWithCorrelation(ctx, " abc ")))
}

func TestJobContextCarriesIdentifiers(t *testing.T) {
	ctx := ContextWithJob(context.Background(), " job-9 ", "corr-1")
	require.Equal(t, "job-9", JobIDFromContext(ctx))
	require.Equal(t, "corr-1", CorrelationIDFromContext(ctx))

	var logs bytes.Buffer
	jobLogger := JobLogger(ctx, zerolog.New(&logs))
	jobLogger.Info().Msg("started")
	require.Contains(t, logs.String(), `"job_id":"job-9"`)
	require.Contains(t, logs.String(), `"correlation_id":"corr-1"`)

	logs.Reset()
	jobLogger = JobLogger(context.Background(), zerolog.New(&logs))
	jobLogger.Info().Msg("started")
	require.NotContains(t, logs.String(), "job_id")
	require.Empty(t, JobIDFromContext(ContextWithJob(context.Background(), "", "")))
}

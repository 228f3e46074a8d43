package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderCorrelationID carries the correlation id on requests, responses and webhooks.
const HeaderCorrelationID = "X-Correlation-ID"

type contextKey int

const (
	correlationKey contextKey = iota
	jobKey
)

// CorrelationID reuses X-Correlation-ID or X-Request-ID from the caller and
// generates one otherwise.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches a correlation id. Blank ids leave ctx untouched.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, correlationID)
}

// CorrelationIDFromContext returns the correlation id stored in ctx, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// ContextWithJob binds a background evaluation job to ctx together with the
// correlation id of the request that submitted it.
func ContextWithJob(ctx context.Context, jobID, correlationID string) context.Context {
	ctx = ContextWithCorrelation(ctx, correlationID)
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		ctx = context.WithValue(ctx, jobKey, jobID)
	}
	return ctx
}

// JobIDFromContext returns the evaluation job id stored in ctx, if any.
func JobIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(jobKey).(string)
	return id
}

// JobLogger enriches base with the job and correlation ids found in ctx.
func JobLogger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	logCtx := base.With()
	if id := JobIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("job_id", id)
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	return logCtx.Logger()
}

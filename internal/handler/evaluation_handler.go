package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// EvaluationHandler exposes evaluation job submission and status endpoints.
type EvaluationHandler struct {
	service service.EvaluationJobService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.EvaluationJobService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes. Extra handlers such as a rate limiter run
// before submission only.
func (h *EvaluationHandler) Register(router fiber.Router, submitMiddleware ...fiber.Handler) {
	submit := append(append([]fiber.Handler{}, submitMiddleware...), h.submit)
	router.Post("", submit...)
	router.Get("/:id", h.get)
}

func (h *EvaluationHandler) submit(c *fiber.Ctx) error {
	var payload dto.EvaluationJobRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	accepted, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("job_id", accepted.JobID).Msg("evaluation job accepted")

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, accepted.Message, accepted)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	job, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation job retrieved", job)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(validationErrors))
	case errors.Is(err, repository.ErrJobNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation job not found")
	case errors.Is(err, service.ErrQueueFull):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluation queue is full, retry later")
	case errors.Is(err, service.ErrServiceClosed):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "service is shutting down")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"resume-screener/internal/models"
	"resume-screener/internal/services"
)

type EvaluateHandler struct {
	evaluator services.EvaluatorService
}

func NewEvaluateHandler(evaluator services.EvaluatorService) *EvaluateHandler {
	return &EvaluateHandler{evaluator: evaluator}
}

// HandleEvaluate handles POST /evaluate
func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request payload",
		})
	}

	if req.DocumentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "document_id is required",
		})
	}
	if req.JobID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_id is required",
		})
	}

	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid document_id format",
		})
	}

	result, err := h.evaluator.EvaluateCandidate(c.Context(), documentID, req.JobID)
	if err != nil {
		status := fiber.StatusInternalServerError

		var schemaErr *services.SchemaError
		switch {
		case errors.Is(err, services.ErrNoActiveCriteria), errors.Is(err, services.ErrDocumentNotReady):
			status = fiber.StatusPreconditionFailed
		case errors.As(err, &schemaErr):
			status = fiber.StatusUnprocessableEntity
		}

		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.EvaluationResponse{
		ID:               result.EvaluationID.String(),
		DocumentID:       result.DocumentID.String(),
		JobID:            result.JobID,
		Score:            result.Score,
		Strengths:        result.Strengths,
		Weaknesses:       result.Weaknesses,
		Explanation:      result.Explanation,
		Recommendation:   string(result.Recommendation),
		TokensUsed:       result.TokensUsed,
		ProcessingTimeMs: result.ProcessingTimeMs,
	})
}

// HandleGetEvaluation handles GET /evaluations/:id
func (h *EvaluateHandler) HandleGetEvaluation(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid evaluation id",
		})
	}

	eval, err := h.evaluator.GetEvaluation(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(eval)
}

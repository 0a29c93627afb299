package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"resume-screener/internal/models"
	"resume-screener/internal/services"
)

type ProcessHandler struct {
	processor services.ProcessorService
}

func NewProcessHandler(processor services.ProcessorService) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

// HandleProcess handles POST /process/:documentId
func (h *ProcessHandler) HandleProcess(c *fiber.Ctx) error {
	documentID, err := uuid.Parse(c.Params("documentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid document id",
		})
	}

	result, err := h.processor.ProcessDocument(c.Context(), documentID)
	return h.respond(c, result, err)
}

// HandleRetry handles POST /records/:recordId/retry
func (h *ProcessHandler) HandleRetry(c *fiber.Ctx) error {
	recordID, err := uuid.Parse(c.Params("recordId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid record id",
		})
	}

	result, err := h.processor.RetryFailedProcessing(c.Context(), recordID)
	return h.respond(c, result, err)
}

// HandleBatchProcess handles POST /process/batch
func (h *ProcessHandler) HandleBatchProcess(c *fiber.Ctx) error {
	var req models.BatchProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request payload",
		})
	}
	if len(req.DocumentIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "document_ids is required",
		})
	}

	ids := make([]uuid.UUID, 0, len(req.DocumentIDs))
	for _, raw := range req.DocumentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid document id: " + raw,
			})
		}
		ids = append(ids, id)
	}

	result, err := h.processor.BatchProcess(c.Context(), ids)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp := models.BatchProcessResponse{
		Succeeded: make([]string, 0, len(result.Succeeded)),
		Failed:    make([]string, 0, len(result.Failed)),
		ElapsedMs: result.ElapsedMs,
	}
	for _, id := range result.Succeeded {
		resp.Succeeded = append(resp.Succeeded, id.String())
	}
	for _, id := range result.Failed {
		resp.Failed = append(resp.Failed, id.String())
	}

	return c.JSON(resp)
}

// HandleStatus handles GET /process/:documentId/status
func (h *ProcessHandler) HandleStatus(c *fiber.Ctx) error {
	documentID, err := uuid.Parse(c.Params("documentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid document id",
		})
	}

	record, err := h.processor.GetProcessingStatus(documentID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(record)
}

// HandleStats handles GET /process/stats
func (h *ProcessHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.processor.GetProcessingStats()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(models.ProcessingStatsResponse{
		Total:       stats.Total,
		Pending:     stats.Pending,
		Processing:  stats.Processing,
		Completed:   stats.Completed,
		Failed:      stats.Failed,
		SuccessRate: stats.SuccessRate,
	})
}

func (h *ProcessHandler) respond(c *fiber.Ctx, result *services.ProcessResult, err error) error {
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrEmptyDocument), errors.Is(err, services.ErrNotRetryable):
			status = fiber.StatusBadRequest
		case errors.Is(err, services.ErrRetriesExhausted), errors.Is(err, services.ErrAlreadyProcessing):
			status = fiber.StatusConflict
		}

		resp := models.ProcessResponse{Success: false, Error: err.Error()}
		if result != nil {
			resp.RecordID = result.RecordID.String()
			resp.Status = string(result.Status)
		}
		return c.Status(status).JSON(resp)
	}

	return c.JSON(models.ProcessResponse{
		Success:          result.Success,
		RecordID:         result.RecordID.String(),
		Status:           string(result.Status),
		TokensUsed:       result.TokensUsed,
		ProcessingTimeMs: result.ProcessingTimeMs,
	})
}

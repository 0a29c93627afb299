package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"resume-screener/internal/models"
	"resume-screener/internal/services"
)

type SearchHandler struct {
	search services.SearchService
}

func NewSearchHandler(search services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// HandleSearch handles GET /candidates/search?q=...&limit=...
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query parameter 'q' is required",
		})
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	matches, err := h.search.SearchCandidates(c.Context(), query, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	results := make([]models.CandidateSearchResponse, 0, len(matches))
	for _, m := range matches {
		results = append(results, models.CandidateSearchResponse{
			RecordID: m.RecordID,
			Score:    m.Score,
			Snippet:  m.Snippet,
		})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"results": results,
	})
}

// HandleRemove handles DELETE /candidates/:recordId, dropping the record
// from the similarity index. The processing record itself is untouched.
func (h *SearchHandler) HandleRemove(c *fiber.Ctx) error {
	recordID, err := uuid.Parse(c.Params("recordId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid record id",
		})
	}

	if err := h.search.RemoveCandidate(c.Context(), recordID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"removed": recordID.String()})
}

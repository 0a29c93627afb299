package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"resume-screener/internal/models"
	"resume-screener/internal/repositories"
	"resume-screener/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload: stores the résumé file, extracts its
// text once, and creates the document record. Extraction failures degrade to
// classified fallback markers instead of failing the upload.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing 'resume' file",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	filename, filePath, err := h.storageService.SaveFile(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save file: %v", err),
		})
	}

	doc := models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), "."),
		FilePath:         filePath,
		ExtractedText:    h.extractText(filePath),
	}

	if err := h.docRepo.Create(&doc); err != nil {
		h.storageService.DeleteFile(filename)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save document record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: doc.OriginalFileName,
		FileType:     doc.FileType,
	})
}

func (h *UploadHandler) extractText(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		text, err := h.pdfParser.ExtractText(filePath)
		if err != nil {
			if strings.Contains(err.Error(), "no text content") {
				return models.FallbackEmptyDocument
			}
			return models.FallbackExtractionFailed
		}
		return text
	case ".txt":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return models.FallbackExtractionFailed
		}
		text := services.CleanText(string(data))
		if text == "" {
			return models.FallbackEmptyDocument
		}
		return text
	default:
		return models.FallbackUnsupportedFile
	}
}

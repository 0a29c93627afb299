package models

import (
	"time"

	"github.com/google/uuid"
)

// Fallback markers written into ExtractedText when upstream text extraction
// could not produce usable content. The processing pipeline treats them as
// input errors and never sends them to the model.
const (
	FallbackEmptyDocument    = "[EMPTY_DOCUMENT]"
	FallbackUnsupportedFile  = "[UNSUPPORTED_FORMAT]"
	FallbackExtractionFailed = "[EXTRACTION_FAILED]"
)

type Document struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Filename         string    `gorm:"type:text" json:"filename"`
	OriginalFileName string    `gorm:"type:text" json:"original_filename"`
	FileType         string    `gorm:"type:text" json:"file_type"`
	FilePath         string    `gorm:"type:text" json:"file_path"`
	ExtractedText    string    `gorm:"type:text" json:"-"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}

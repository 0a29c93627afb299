package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// MaxProcessingRetries caps how many recorded failures a document may
// accumulate before further processing is refused.
const MaxProcessingRetries = 3

// ProcessedDocument tracks the extraction lifecycle of one document.
// Exactly one of ExtractedProfile and ErrorMessage is set at any time;
// both are empty while the record is pending or processing.
type ProcessedDocument struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"document_id"`
	Status           ProcessingStatus `gorm:"not null;default:'pending'" json:"status"`
	RetryCount       int              `gorm:"not null;default:0" json:"retry_count"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	LastRetryAt      *time.Time       `json:"last_retry_at,omitempty"`
	ExtractedProfile datatypes.JSON   `json:"extracted_profile,omitempty"`
	ErrorMessage     *string          `gorm:"type:text" json:"error_message,omitempty"`
	TokensUsed       int              `json:"tokens_used"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	ModelIdentifier  string           `gorm:"type:text" json:"model_identifier"`
	DataValidated    bool             `gorm:"not null;default:false" json:"data_validated"`
	SearchableText   string           `gorm:"type:text" json:"-"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Document Document `gorm:"foreignKey:DocumentID" json:"-"`
}

func (ProcessedDocument) TableName() string {
	return "processed_documents"
}

// CanRetry reports whether the record may re-enter processing.
func (d *ProcessedDocument) CanRetry() bool {
	return d.Status == StatusFailed && d.RetryCount < MaxProcessingRetries
}

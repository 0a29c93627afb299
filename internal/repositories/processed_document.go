package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resume-screener/internal/models"
)

type ProcessedDocumentRepository interface {
	Create(record *models.ProcessedDocument) error
	FindByID(id uuid.UUID) (*models.ProcessedDocument, error)
	FindByDocumentID(documentID uuid.UUID) (*models.ProcessedDocument, error)
	ClaimForProcessing(id uuid.UUID, startedAt time.Time) (bool, error)
	MarkCompleted(id uuid.UUID, update *CompletionData) error
	MarkFailed(id uuid.UUID, errorMsg string, failedAt time.Time) error
	CountByStatus() (map[models.ProcessingStatus]int64, error)
	FindStalePending(olderThan time.Duration, limit int) ([]models.ProcessedDocument, error)
}

// CompletionData carries everything set when a record reaches completed.
type CompletionData struct {
	ExtractedProfile datatypes.JSON
	SearchableText   string
	TokensUsed       int
	ProcessingTimeMs int64
	ModelIdentifier  string
	CompletedAt      time.Time
}

type processedDocumentRepository struct {
	db *gorm.DB
}

func NewProcessedDocumentRepository(db *gorm.DB) ProcessedDocumentRepository {
	return &processedDocumentRepository{db: db}
}

func (r *processedDocumentRepository) Create(record *models.ProcessedDocument) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = models.StatusPending
	}
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create processed document: %w", err)
	}
	return nil
}

func (r *processedDocumentRepository) FindByID(id uuid.UUID) (*models.ProcessedDocument, error) {
	var record models.ProcessedDocument
	if err := r.db.Where("id = ?", id).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("processing record not found")
		}
		return nil, fmt.Errorf("failed to find processing record: %w", err)
	}
	return &record, nil
}

func (r *processedDocumentRepository) FindByDocumentID(documentID uuid.UUID) (*models.ProcessedDocument, error) {
	var record models.ProcessedDocument
	err := r.db.Where("document_id = ?", documentID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find processing record: %w", err)
	}
	return &record, nil
}

// ClaimForProcessing atomically transitions a pending or failed record to
// processing. It returns false when another writer claimed the record first,
// which closes the check-then-act race between concurrent callers.
func (r *processedDocumentRepository) ClaimForProcessing(id uuid.UUID, startedAt time.Time) (bool, error) {
	result := r.db.Model(&models.ProcessedDocument{}).
		Where("id = ? AND status IN ?", id, []models.ProcessingStatus{models.StatusPending, models.StatusFailed}).
		Updates(map[string]interface{}{
			"status":        models.StatusProcessing,
			"started_at":    startedAt,
			"error_message": nil,
			"updated_at":    startedAt,
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim record for processing: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *processedDocumentRepository) MarkCompleted(id uuid.UUID, data *CompletionData) error {
	result := r.db.Model(&models.ProcessedDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             models.StatusCompleted,
			"extracted_profile":  data.ExtractedProfile,
			"searchable_text":    data.SearchableText,
			"data_validated":     true,
			"tokens_used":        data.TokensUsed,
			"processing_time_ms": data.ProcessingTimeMs,
			"model_identifier":   data.ModelIdentifier,
			"completed_at":       data.CompletedAt,
			"error_message":      nil,
			"updated_at":         data.CompletedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark record completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("processing record not found")
	}
	return nil
}

func (r *processedDocumentRepository) MarkFailed(id uuid.UUID, errorMsg string, failedAt time.Time) error {
	result := r.db.Model(&models.ProcessedDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"retry_count":   gorm.Expr("retry_count + ?", 1),
			"last_retry_at": failedAt,
			"updated_at":    failedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark record failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("processing record not found")
	}
	return nil
}

func (r *processedDocumentRepository) CountByStatus() (map[models.ProcessingStatus]int64, error) {
	type statusCount struct {
		Status models.ProcessingStatus
		Count  int64
	}

	var rows []statusCount
	err := r.db.Model(&models.ProcessedDocument{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count records by status: %w", err)
	}

	counts := make(map[models.ProcessingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// FindStalePending returns pending records that were created but never
// claimed, so the background worker can pick them up.
func (r *processedDocumentRepository) FindStalePending(olderThan time.Duration, limit int) ([]models.ProcessedDocument, error) {
	cutoff := time.Now().Add(-olderThan)

	var records []models.ProcessedDocument
	err := r.db.
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending records: %w", err)
	}

	return records, nil
}

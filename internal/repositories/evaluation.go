package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resume-screener/internal/models"
)

type EvaluationRepository interface {
	Create(eval *models.CandidateEvaluation) error
	FindByID(id uuid.UUID) (*models.CandidateEvaluation, error)
	FindByDocumentAndJob(documentID uuid.UUID, jobID uint) ([]models.CandidateEvaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(eval *models.CandidateEvaluation) error {
	if eval.ID == uuid.Nil {
		eval.ID = uuid.New()
	}
	if eval.Status == "" {
		eval.Status = models.EvaluationCompleted
	}
	if err := r.db.Create(eval).Error; err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (r *evaluationRepository) FindByID(id uuid.UUID) (*models.CandidateEvaluation, error) {
	var eval models.CandidateEvaluation
	if err := r.db.Where("id = ?", id).First(&eval).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("evaluation not found")
		}
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &eval, nil
}

func (r *evaluationRepository) FindByDocumentAndJob(documentID uuid.UUID, jobID uint) ([]models.CandidateEvaluation, error) {
	var evals []models.CandidateEvaluation
	err := r.db.
		Where("document_id = ? AND job_id = ?", documentID, jobID).
		Order("created_at DESC").
		Find(&evals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find evaluations: %w", err)
	}
	return evals, nil
}

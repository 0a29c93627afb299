package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resume-screener/internal/models"
)

type JobRepository interface {
	Create(job *models.JobPosting) error
	FindByID(id uint) (*models.JobPosting, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.JobPosting) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job posting: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uint) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("job posting not found")
		}
		return nil, fmt.Errorf("failed to find job posting: %w", err)
	}
	return &job, nil
}

type CriteriaRepository interface {
	Create(criterion *models.EvaluationCriterion) error
	FindActive() ([]models.EvaluationCriterion, error)
}

type criteriaRepository struct {
	db *gorm.DB
}

func NewCriteriaRepository(db *gorm.DB) CriteriaRepository {
	return &criteriaRepository{db: db}
}

func (r *criteriaRepository) Create(criterion *models.EvaluationCriterion) error {
	if err := r.db.Create(criterion).Error; err != nil {
		return fmt.Errorf("failed to create criterion: %w", err)
	}
	return nil
}

func (r *criteriaRepository) FindActive() ([]models.EvaluationCriterion, error) {
	var criteria []models.EvaluationCriterion
	err := r.db.
		Where("active = ?", true).
		Order("sort_order ASC").
		Find(&criteria).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active criteria: %w", err)
	}
	return criteria, nil
}

type QuestionnaireRepository interface {
	Create(response *models.QuestionnaireResponse) error
	FindByDocumentAndJob(documentID uuid.UUID, jobID uint) ([]models.QuestionnaireResponse, error)
}

type questionnaireRepository struct {
	db *gorm.DB
}

func NewQuestionnaireRepository(db *gorm.DB) QuestionnaireRepository {
	return &questionnaireRepository{db: db}
}

func (r *questionnaireRepository) Create(response *models.QuestionnaireResponse) error {
	if err := r.db.Create(response).Error; err != nil {
		return fmt.Errorf("failed to create questionnaire response: %w", err)
	}
	return nil
}

func (r *questionnaireRepository) FindByDocumentAndJob(documentID uuid.UUID, jobID uint) ([]models.QuestionnaireResponse, error) {
	var responses []models.QuestionnaireResponse
	err := r.db.
		Where("document_id = ? AND job_id = ?", documentID, jobID).
		Order("id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find questionnaire responses: %w", err)
	}
	return responses, nil
}

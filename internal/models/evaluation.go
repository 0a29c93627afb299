package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Recommendation string

const (
	RecommendProceed Recommendation = "Proceed to next round"
	RecommendCaution Recommendation = "Consider with caution"
	RecommendReject  Recommendation = "Do not proceed"
)

// EvaluationCompleted is the only status a persisted evaluation carries;
// there is no partial evaluation state.
const EvaluationCompleted = "completed"

// CandidateEvaluation is the scored outcome for one (document, job) pair.
// Immutable after creation; re-evaluation creates a fresh row.
type CandidateEvaluation struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primary_key" json:"id"`
	DocumentID        uuid.UUID                   `gorm:"type:uuid;not null;index" json:"document_id"`
	JobID             uint                        `gorm:"not null;index" json:"job_id"`
	Score             int                         `gorm:"not null" json:"score"`
	Strengths         datatypes.JSONSlice[string] `json:"strengths"`
	Weaknesses        datatypes.JSONSlice[string] `json:"weaknesses"`
	Explanation       string                      `gorm:"type:text" json:"explanation"`
	Recommendation    Recommendation              `gorm:"type:text;not null" json:"recommendation"`
	LinkedCriteriaIDs datatypes.JSONSlice[int]    `json:"linked_criteria_ids"`
	LinkedResponseIDs datatypes.JSONSlice[int]    `json:"linked_questionnaire_response_ids"`
	TokensUsed        int                         `json:"tokens_used"`
	ProcessingTimeMs  int64                       `json:"processing_time_ms"`
	ModelIdentifier   string                      `gorm:"type:text" json:"model_identifier"`
	Status            string                      `gorm:"not null;default:'completed'" json:"status"`
	CreatedAt         time.Time                   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	// Relations
	Document Document   `gorm:"foreignKey:DocumentID" json:"-"`
	Job      JobPosting `gorm:"foreignKey:JobID" json:"-"`
}

func (CandidateEvaluation) TableName() string {
	return "candidate_evaluations"
}

// EvaluationCriterion is one weighted rubric entry. The evaluation engine
// only reads active rows; weight management lives elsewhere.
type EvaluationCriterion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Weight      float64   `gorm:"not null" json:"weight"`
	Description string    `gorm:"type:text" json:"description"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (EvaluationCriterion) TableName() string {
	return "evaluation_criteria"
}

type JobPosting struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"type:text;not null" json:"title"`
	Requirements     string    `gorm:"type:text" json:"requirements"`
	Responsibilities string    `gorm:"type:text" json:"responsibilities"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (JobPosting) TableName() string {
	return "job_postings"
}

// QuestionnaireResponse is one candidate answer to a job-scoped question.
type QuestionnaireResponse struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      uint      `gorm:"not null;index" json:"job_id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text" json:"answer"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (QuestionnaireResponse) TableName() string {
	return "questionnaire_responses"
}

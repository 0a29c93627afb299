package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"resume-screener/internal/models"
	"resume-screener/internal/repositories"
)

var (
	// ErrNoActiveCriteria means evaluation was requested with an empty rubric.
	ErrNoActiveCriteria = errors.New("no criteria found")
	// ErrDocumentNotReady means the document has no completed extraction yet.
	ErrDocumentNotReady = errors.New("document extraction is not completed")
)

// EvaluationResult is the structured outcome of one evaluation request.
type EvaluationResult struct {
	EvaluationID     uuid.UUID
	DocumentID       uuid.UUID
	JobID            uint
	Score            int
	Strengths        []string
	Weaknesses       []string
	Explanation      string
	Recommendation   models.Recommendation
	TokensUsed       int
	ProcessingTimeMs int64
}

type EvaluatorService interface {
	EvaluateCandidate(ctx context.Context, documentID uuid.UUID, jobID uint) (*EvaluationResult, error)
	SaveEvaluation(eval *models.CandidateEvaluation) error
	GetEvaluation(id uuid.UUID) (*models.CandidateEvaluation, error)
}

type evaluatorService struct {
	procRepo          repositories.ProcessedDocumentRepository
	evalRepo          repositories.EvaluationRepository
	jobRepo           repositories.JobRepository
	criteriaRepo      repositories.CriteriaRepository
	questionnaireRepo repositories.QuestionnaireRepository
	inference         InferenceService
	prompts           *PromptBuilder
	checkAttempts     int
	checkDelay        time.Duration
	sleep             func(time.Duration)
	logger            *zap.Logger
}

func NewEvaluatorService(
	procRepo repositories.ProcessedDocumentRepository,
	evalRepo repositories.EvaluationRepository,
	jobRepo repositories.JobRepository,
	criteriaRepo repositories.CriteriaRepository,
	questionnaireRepo repositories.QuestionnaireRepository,
	inference InferenceService,
	logger *zap.Logger,
) EvaluatorService {
	return &evaluatorService{
		procRepo:          procRepo,
		evalRepo:          evalRepo,
		jobRepo:           jobRepo,
		criteriaRepo:      criteriaRepo,
		questionnaireRepo: questionnaireRepo,
		inference:         inference,
		prompts:           NewPromptBuilder(),
		checkAttempts:     3,
		checkDelay:        2 * time.Second,
		sleep:             time.Sleep,
		logger:            logger,
	}
}

// EvaluateCandidate scores a completed candidate profile against the active
// criteria for one job. The preconditions are re-checked a few times because
// an evaluation may be requested while extraction is still finishing.
func (e *evaluatorService) EvaluateCandidate(ctx context.Context, documentID uuid.UUID, jobID uint) (*EvaluationResult, error) {
	record, criteria, err := e.waitForPreconditions(documentID)
	if err != nil {
		return nil, err
	}

	job, err := e.jobRepo.FindByID(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job posting: %w", err)
	}

	answers, err := e.questionnaireRepo.FindByDocumentAndJob(documentID, jobID)
	if err != nil {
		return nil, err
	}

	if sum := WeightSum(criteria); math.Abs(sum-1.0) > 0.001 {
		e.logger.Warn("active criteria weights do not sum to 1.0, normalizing for prompt",
			zap.Float64("weight_sum", sum),
			zap.Int("criteria_count", len(criteria)),
		)
	}

	systemPrompt := e.prompts.BuildEvaluationSystemPrompt(criteria)
	userPrompt := e.prompts.BuildEvaluationUserPrompt(job, string(record.ExtractedProfile), answers, criteria)

	e.logger.Info("evaluating candidate",
		zap.String("document_id", documentID.String()),
		zap.Uint("job_id", jobID),
		zap.Int("criteria_count", len(criteria)),
		zap.Int("answer_count", len(answers)),
	)

	start := time.Now()
	completion, err := e.inference.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate evaluation: %w", err)
	}

	payload, err := ValidateEvaluation([]byte(ExtractJSON(completion.Text)))
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start).Milliseconds()

	eval := &models.CandidateEvaluation{
		ID:                uuid.New(),
		DocumentID:        documentID,
		JobID:             jobID,
		Score:             payload.Score,
		Strengths:         payload.Strengths,
		Weaknesses:        payload.Weaknesses,
		Explanation:       payload.Explanation,
		Recommendation:    payload.Recommendation,
		LinkedCriteriaIDs: payload.LinkedCriteriaIDs,
		LinkedResponseIDs: payload.LinkedResponseIDs,
		TokensUsed:        completion.TokensUsed,
		ProcessingTimeMs:  elapsed,
		ModelIdentifier:   completion.Model,
		Status:            models.EvaluationCompleted,
	}

	if err := e.SaveEvaluation(eval); err != nil {
		return nil, err
	}

	e.logger.Info("candidate evaluated",
		zap.String("evaluation_id", eval.ID.String()),
		zap.Int("score", payload.Score),
		zap.String("recommendation", string(payload.Recommendation)),
	)

	return &EvaluationResult{
		EvaluationID:     eval.ID,
		DocumentID:       documentID,
		JobID:            jobID,
		Score:            payload.Score,
		Strengths:        payload.Strengths,
		Weaknesses:       payload.Weaknesses,
		Explanation:      payload.Explanation,
		Recommendation:   payload.Recommendation,
		TokensUsed:       completion.TokensUsed,
		ProcessingTimeMs: elapsed,
	}, nil
}

// SaveEvaluation implements EvaluatorService.
func (e *evaluatorService) SaveEvaluation(eval *models.CandidateEvaluation) error {
	return e.evalRepo.Create(eval)
}

// GetEvaluation implements EvaluatorService.
func (e *evaluatorService) GetEvaluation(id uuid.UUID) (*models.CandidateEvaluation, error) {
	return e.evalRepo.FindByID(id)
}

// waitForPreconditions checks that the extraction completed and at least one
// active criterion exists, retrying a bounded number of times with fixed
// spacing before giving up. The model is never called when a precondition
// fails.
func (e *evaluatorService) waitForPreconditions(documentID uuid.UUID) (*models.ProcessedDocument, []models.EvaluationCriterion, error) {
	var (
		record   *models.ProcessedDocument
		criteria []models.EvaluationCriterion
	)

	for attempt := 1; attempt <= e.checkAttempts; attempt++ {
		rec, err := e.procRepo.FindByDocumentID(documentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		if rec != nil && rec.Status == models.StatusCompleted {
			record = rec
		}

		active, err := e.criteriaRepo.FindActive()
		if err != nil {
			return nil, nil, err
		}
		criteria = active

		if record != nil && len(criteria) > 0 {
			return record, criteria, nil
		}

		if attempt < e.checkAttempts {
			e.logger.Debug("evaluation preconditions not met, waiting",
				zap.String("document_id", documentID.String()),
				zap.Int("attempt", attempt),
			)
			e.sleep(e.checkDelay)
		}
	}

	if record == nil {
		return nil, nil, fmt.Errorf("%w: document %s", ErrDocumentNotReady, documentID)
	}
	return nil, nil, ErrNoActiveCriteria
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"resume-screener/internal/logger"
	"resume-screener/internal/models"
	"resume-screener/internal/repositories"
)

var (
	// ErrEmptyDocument means the document has no usable extracted text.
	ErrEmptyDocument = errors.New("document has no extracted text")
	// ErrRetriesExhausted means the record failed MaxProcessingRetries times
	// and will not be sent to the model again.
	ErrRetriesExhausted = errors.New("processing retry limit reached")
	// ErrAlreadyProcessing means another caller claimed the record first.
	ErrAlreadyProcessing = errors.New("document is already being processed")
	// ErrNotRetryable means the record is not in a retryable failed state.
	ErrNotRetryable = errors.New("processing record cannot be retried")
)

// ProcessResult is the structured outcome of one processing request.
type ProcessResult struct {
	Success          bool
	RecordID         uuid.UUID
	Status           models.ProcessingStatus
	TokensUsed       int
	ProcessingTimeMs int64
	Error            string
}

type BatchResult struct {
	Succeeded []uuid.UUID
	Failed    []uuid.UUID
	ElapsedMs int64
}

type ProcessingStats struct {
	Total       int64
	Pending     int64
	Processing  int64
	Completed   int64
	Failed      int64
	SuccessRate float64
}

type ProcessorService interface {
	ProcessDocument(ctx context.Context, documentID uuid.UUID) (*ProcessResult, error)
	RetryFailedProcessing(ctx context.Context, recordID uuid.UUID) (*ProcessResult, error)
	BatchProcess(ctx context.Context, documentIDs []uuid.UUID) (*BatchResult, error)
	GetProcessingStatus(documentID uuid.UUID) (*models.ProcessedDocument, error)
	GetProcessingStats() (*ProcessingStats, error)
}

type processorService struct {
	docRepo    repositories.DocumentRepository
	procRepo   repositories.ProcessedDocumentRepository
	inference  InferenceService
	search     SearchService
	prompts    *PromptBuilder
	batchDelay time.Duration
	sleep      func(time.Duration)
	logger     *zap.Logger
}

func NewProcessorService(
	docRepo repositories.DocumentRepository,
	procRepo repositories.ProcessedDocumentRepository,
	inference InferenceService,
	search SearchService,
	batchDelay time.Duration,
	logger *zap.Logger,
) ProcessorService {
	if batchDelay <= 0 {
		batchDelay = 500 * time.Millisecond
	}
	return &processorService{
		docRepo:    docRepo,
		procRepo:   procRepo,
		inference:  inference,
		search:     search,
		prompts:    NewPromptBuilder(),
		batchDelay: batchDelay,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// ProcessDocument drives one document through the extraction lifecycle.
// A completed record short-circuits without a model call; a failed record
// past its retry cap fails fast for the same reason.
func (p *processorService) ProcessDocument(ctx context.Context, documentID uuid.UUID) (*ProcessResult, error) {
	doc, err := p.docRepo.FindByID(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	record, err := p.procRepo.FindByDocumentID(documentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if record != nil {
		if record.Status == models.StatusCompleted {
			return &ProcessResult{
				Success:          true,
				RecordID:         record.ID,
				Status:           record.Status,
				TokensUsed:       record.TokensUsed,
				ProcessingTimeMs: record.ProcessingTimeMs,
			}, nil
		}
		if record.Status == models.StatusFailed && !record.CanRetry() {
			return &ProcessResult{
				Success:  false,
				RecordID: record.ID,
				Status:   record.Status,
				Error:    ErrRetriesExhausted.Error(),
			}, ErrRetriesExhausted
		}
	}

	if !usableText(doc.ExtractedText) {
		return nil, fmt.Errorf("%w: document %s", ErrEmptyDocument, documentID)
	}

	if record == nil {
		record = &models.ProcessedDocument{DocumentID: documentID}
		if err := p.procRepo.Create(record); err != nil {
			return nil, err
		}
	}

	claimed, err := p.procRepo.ClaimForProcessing(record.ID, time.Now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return &ProcessResult{
			Success:  false,
			RecordID: record.ID,
			Status:   models.StatusProcessing,
			Error:    ErrAlreadyProcessing.Error(),
		}, ErrAlreadyProcessing
	}

	p.logger.Info("processing document",
		zap.String("document_id", documentID.String()),
		zap.String("record_id", record.ID.String()),
	)

	start := time.Now()
	completion, err := p.inference.Complete(
		ctx,
		p.prompts.BuildExtractionSystemPrompt(),
		p.prompts.BuildExtractionUserPrompt(doc.ExtractedText),
	)
	if err != nil {
		return p.failRecord(record.ID, err)
	}

	p.logger.Debug("model response received",
		zap.String("record_id", record.ID.String()),
		zap.String("response_preview", logger.TruncateForLog(completion.Text, 200)),
	)

	profile, err := ValidateCandidateProfile([]byte(ExtractJSON(completion.Text)))
	if err != nil {
		return p.failRecord(record.ID, err)
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return p.failRecord(record.ID, fmt.Errorf("failed to serialize profile: %w", err))
	}

	searchable := profile.SearchableText()
	elapsed := time.Since(start).Milliseconds()
	completedAt := time.Now()

	if err := p.procRepo.MarkCompleted(record.ID, &repositories.CompletionData{
		ExtractedProfile: payload,
		SearchableText:   searchable,
		TokensUsed:       completion.TokensUsed,
		ProcessingTimeMs: elapsed,
		ModelIdentifier:  completion.Model,
		CompletedAt:      completedAt,
	}); err != nil {
		return nil, err
	}

	p.indexCandidate(ctx, record.ID, searchable)

	p.logger.Info("document processed",
		zap.String("record_id", record.ID.String()),
		zap.Int("tokens_used", completion.TokensUsed),
		zap.Int64("processing_time_ms", elapsed),
	)

	return &ProcessResult{
		Success:          true,
		RecordID:         record.ID,
		Status:           models.StatusCompleted,
		TokensUsed:       completion.TokensUsed,
		ProcessingTimeMs: elapsed,
	}, nil
}

// RetryFailedProcessing re-enters the processing flow only when the record
// is failed and under the retry cap.
func (p *processorService) RetryFailedProcessing(ctx context.Context, recordID uuid.UUID) (*ProcessResult, error) {
	record, err := p.procRepo.FindByID(recordID)
	if err != nil {
		return nil, err
	}

	if record.Status == models.StatusFailed && record.RetryCount >= models.MaxProcessingRetries {
		return &ProcessResult{
			Success:  false,
			RecordID: record.ID,
			Status:   record.Status,
			Error:    ErrRetriesExhausted.Error(),
		}, ErrRetriesExhausted
	}
	if !record.CanRetry() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotRetryable, record.Status)
	}

	return p.ProcessDocument(ctx, record.DocumentID)
}

// BatchProcess runs documents sequentially with a fixed inter-call delay to
// respect upstream rate limits. One failed document never aborts the batch.
func (p *processorService) BatchProcess(ctx context.Context, documentIDs []uuid.UUID) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{
		Succeeded: []uuid.UUID{},
		Failed:    []uuid.UUID{},
	}

	docs, err := p.docRepo.FindByIDs(documentIDs)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]bool, len(docs))
	for _, doc := range docs {
		known[doc.ID] = true
	}

	for i, id := range documentIDs {
		if !known[id] {
			p.logger.Warn("batch item skipped, document not found",
				zap.String("document_id", id.String()),
			)
			result.Failed = append(result.Failed, id)
			continue
		}

		res, err := p.ProcessDocument(ctx, id)
		if err != nil || res == nil || !res.Success {
			p.logger.Warn("batch item failed",
				zap.String("document_id", id.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, id)
		} else {
			result.Succeeded = append(result.Succeeded, id)
		}

		if i < len(documentIDs)-1 {
			p.sleep(p.batchDelay)
		}
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}

func (p *processorService) GetProcessingStatus(documentID uuid.UUID) (*models.ProcessedDocument, error) {
	record, err := p.procRepo.FindByDocumentID(documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no processing record for document %s", documentID)
		}
		return nil, err
	}
	return record, nil
}

func (p *processorService) GetProcessingStats() (*ProcessingStats, error) {
	counts, err := p.procRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	stats := &ProcessingStats{
		Pending:    counts[models.StatusPending],
		Processing: counts[models.StatusProcessing],
		Completed:  counts[models.StatusCompleted],
		Failed:     counts[models.StatusFailed],
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}

func (p *processorService) failRecord(recordID uuid.UUID, cause error) (*ProcessResult, error) {
	if err := p.procRepo.MarkFailed(recordID, cause.Error(), time.Now()); err != nil {
		p.logger.Error("failed to persist failure state",
			zap.String("record_id", recordID.String()),
			zap.Error(err),
		)
	}

	return &ProcessResult{
		Success:  false,
		RecordID: recordID,
		Status:   models.StatusFailed,
		Error:    cause.Error(),
	}, cause
}

// indexCandidate pushes the searchable text into the vector index.
// Indexing is best-effort and never fails the pipeline.
func (p *processorService) indexCandidate(ctx context.Context, recordID uuid.UUID, searchable string) {
	if p.search == nil || searchable == "" {
		return
	}
	if err := p.search.IndexCandidate(ctx, recordID, searchable); err != nil {
		p.logger.Warn("failed to index candidate for search",
			zap.String("record_id", recordID.String()),
			zap.Error(err),
		)
	}
}

func usableText(text string) bool {
	trimmed := strings.TrimSpace(text)
	switch trimmed {
	case "", models.FallbackEmptyDocument, models.FallbackUnsupportedFile, models.FallbackExtractionFailed:
		return false
	}
	return true
}

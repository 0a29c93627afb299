package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"resume-screener/internal/models"
	"resume-screener/internal/repositories"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Document{},
		&models.ProcessedDocument{},
		&models.JobPosting{},
		&models.EvaluationCriterion{},
		&models.QuestionnaireResponse{},
		&models.CandidateEvaluation{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// stubInference counts calls and replays scripted completions or errors.
type stubInference struct {
	script []stubStep
	calls  int
}

func (s *stubInference) Complete(_ context.Context, _, _ string) (*Completion, error) {
	var step stubStep
	if s.calls < len(s.script) {
		step = s.script[s.calls]
	} else if len(s.script) > 0 {
		step = s.script[len(s.script)-1]
	}
	s.calls++
	if step.err != nil {
		return nil, step.err
	}
	return &Completion{Text: step.text, TokensUsed: 100, Model: "stub-model"}, nil
}

func (s *stubInference) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.5}, nil
}

func (s *stubInference) Model() string {
	return "stub-model"
}

type processorFixture struct {
	docRepo   repositories.DocumentRepository
	procRepo  repositories.ProcessedDocumentRepository
	inference *stubInference
	processor *processorService
}

func newProcessorFixture(t *testing.T, script []stubStep) *processorFixture {
	t.Helper()

	db := openTestDB(t)
	docRepo := repositories.NewDocumentRepository(db)
	procRepo := repositories.NewProcessedDocumentRepository(db)
	inference := &stubInference{script: script}

	processor := NewProcessorService(docRepo, procRepo, inference, nil, time.Millisecond, zap.NewNop()).(*processorService)
	processor.sleep = func(time.Duration) {}

	return &processorFixture{
		docRepo:   docRepo,
		procRepo:  procRepo,
		inference: inference,
		processor: processor,
	}
}

func (f *processorFixture) createDocument(t *testing.T, text string) uuid.UUID {
	t.Helper()

	doc := &models.Document{
		Filename:      "resume.pdf",
		FileType:      "pdf",
		ExtractedText: text,
	}
	if err := f.docRepo.Create(doc); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	return doc.ID
}

const resumeText = "Alice Smith, backend engineer. Python, Go, PostgreSQL. 8 years of experience at Acme Corp."

func TestProcessDocumentSuccess(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{{text: validProfileJSON}})
	docID := f.createDocument(t, resumeText)

	result, err := f.processor.ProcessDocument(context.Background(), docID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TokensUsed != 100 {
		t.Fatalf("expected 100 tokens used, got %d", result.TokensUsed)
	}

	record, err := f.procRepo.FindByID(result.RecordID)
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if record.Status != models.StatusCompleted {
		t.Fatalf("expected completed status, got %s", record.Status)
	}
	if !record.DataValidated {
		t.Fatal("expected data_validated to be true")
	}
	if record.CompletedAt == nil || record.StartedAt == nil {
		t.Fatal("expected started_at and completed_at to be set")
	}
	if record.ErrorMessage != nil {
		t.Fatalf("expected no error message, got %q", *record.ErrorMessage)
	}
	if record.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", record.RetryCount)
	}
	if len(record.ExtractedProfile) == 0 {
		t.Fatal("expected extracted profile payload")
	}

	// Searchable text derivation.
	if !strings.Contains(record.SearchableText, "alice smith") {
		t.Fatalf("expected searchable text to contain 'alice smith': %q", record.SearchableText)
	}
	if !strings.Contains(record.SearchableText, "python") {
		t.Fatalf("expected searchable text to contain 'python': %q", record.SearchableText)
	}
}

func TestProcessDocumentIdempotentShortCircuit(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{{text: validProfileJSON}})
	docID := f.createDocument(t, resumeText)

	first, err := f.processor.ProcessDocument(context.Background(), docID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.inference.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", f.inference.calls)
	}

	second, err := f.processor.ProcessDocument(context.Background(), docID)
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if f.inference.calls != 1 {
		t.Fatalf("completed document must not trigger a second model call, got %d", f.inference.calls)
	}
	if second.RecordID != first.RecordID {
		t.Fatalf("expected same record id, got %s and %s", first.RecordID, second.RecordID)
	}
	if !second.Success {
		t.Fatal("expected short-circuit result to be successful")
	}
}

func TestProcessDocumentEmptyText(t *testing.T) {
	f := newProcessorFixture(t, nil)
	docID := f.createDocument(t, "   ")

	_, err := f.processor.ProcessDocument(context.Background(), docID)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if f.inference.calls != 0 {
		t.Fatalf("input error must not reach the model, got %d calls", f.inference.calls)
	}

	// No record may be left behind in processing state.
	if _, err := f.processor.GetProcessingStatus(docID); err == nil {
		t.Fatal("expected no processing record for empty document")
	}
}

func TestProcessDocumentFallbackMarker(t *testing.T) {
	f := newProcessorFixture(t, nil)
	docID := f.createDocument(t, models.FallbackExtractionFailed)

	_, err := f.processor.ProcessDocument(context.Background(), docID)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument for fallback marker, got %v", err)
	}
	if f.inference.calls != 0 {
		t.Fatalf("fallback marker must not reach the model, got %d calls", f.inference.calls)
	}
}

func TestProcessDocumentModelFailureMarksFailed(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{{err: &InferenceError{Category: CategoryRateLimit, Attempts: 3, Err: fmt.Errorf("rate limit exceeded")}}})
	docID := f.createDocument(t, resumeText)

	result, err := f.processor.ProcessDocument(context.Background(), docID)
	if err == nil {
		t.Fatal("expected error")
	}
	if result == nil || result.Success {
		t.Fatalf("expected failed result, got %+v", result)
	}

	record, err := f.procRepo.FindByID(result.RecordID)
	if err != nil {
		t.Fatalf("failed to load record: %v", err)
	}
	if record.Status != models.StatusFailed {
		t.Fatalf("expected failed status, got %s", record.Status)
	}
	if record.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", record.RetryCount)
	}
	if record.ErrorMessage == nil {
		t.Fatal("expected error message to be set")
	}
	if record.LastRetryAt == nil {
		t.Fatal("expected last_retry_at to be set")
	}
	if len(record.ExtractedProfile) != 0 {
		t.Fatal("failed record must not carry a profile")
	}
}

func TestProcessDocumentSchemaRejectionIsTerminal(t *testing.T) {
	// Payload missing required sections: rejected once, no client-level retry.
	f := newProcessorFixture(t, []stubStep{{text: `{"personal_information": {}}`}})
	docID := f.createDocument(t, resumeText)

	result, err := f.processor.ProcessDocument(context.Background(), docID)
	if err == nil {
		t.Fatal("expected error")
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %T", err)
	}
	if f.inference.calls != 1 {
		t.Fatalf("schema rejection must stay at 1 attempt, got %d", f.inference.calls)
	}

	record, _ := f.procRepo.FindByID(result.RecordID)
	if record.Status != models.StatusFailed {
		t.Fatalf("expected failed status, got %s", record.Status)
	}
}

func TestProcessDocumentRetryCapExhausted(t *testing.T) {
	f := newProcessorFixture(t, nil)
	docID := f.createDocument(t, resumeText)

	msg := "model unavailable"
	record := &models.ProcessedDocument{
		DocumentID:   docID,
		Status:       models.StatusFailed,
		RetryCount:   models.MaxProcessingRetries,
		ErrorMessage: &msg,
	}
	if err := f.procRepo.Create(record); err != nil {
		t.Fatalf("failed to seed failed record: %v", err)
	}

	result, err := f.processor.ProcessDocument(context.Background(), docID)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if result == nil || result.RecordID != record.ID {
		t.Fatalf("expected record id in result, got %+v", result)
	}
	if f.inference.calls != 0 {
		t.Fatalf("exhausted record must not reach the model, got %d calls", f.inference.calls)
	}
}

func TestRetryFailedProcessing(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{
		{err: &InferenceError{Category: CategoryTimeout, Attempts: 3, Err: context.DeadlineExceeded}},
		{text: validProfileJSON},
	})
	docID := f.createDocument(t, resumeText)

	first, err := f.processor.ProcessDocument(context.Background(), docID)
	if err == nil {
		t.Fatal("expected first pass to fail")
	}

	retried, err := f.processor.RetryFailedProcessing(context.Background(), first.RecordID)
	if err != nil {
		t.Fatalf("unexpected retry error: %v", err)
	}
	if !retried.Success {
		t.Fatalf("expected retry to succeed, got %+v", retried)
	}
	if retried.RecordID != first.RecordID {
		t.Fatal("retry must reuse the existing record")
	}

	record, _ := f.procRepo.FindByID(first.RecordID)
	if record.Status != models.StatusCompleted {
		t.Fatalf("expected completed after retry, got %s", record.Status)
	}
	// One increment from the original failure, none from the success.
	if record.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", record.RetryCount)
	}
}

func TestRetryFailedProcessingRejectsCompletedRecord(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{{text: validProfileJSON}})
	docID := f.createDocument(t, resumeText)

	result, err := f.processor.ProcessDocument(context.Background(), docID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.processor.RetryFailedProcessing(context.Background(), result.RecordID); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable for completed record, got %v", err)
	}
	if f.inference.calls != 1 {
		t.Fatalf("expected no additional model call, got %d", f.inference.calls)
	}
}

func TestTransientRetriesStayInsideClient(t *testing.T) {
	// Two transient failures then a valid response, all within one
	// inference call: the persisted record never sees a failure.
	gen := &stubGenerator{script: []stubStep{
		{err: fmt.Errorf("rate limit exceeded")},
		{err: context.DeadlineExceeded},
		{text: validProfileJSON},
	}}
	client, _ := newTestClient(gen)

	db := openTestDB(t)
	docRepo := repositories.NewDocumentRepository(db)
	procRepo := repositories.NewProcessedDocumentRepository(db)
	processor := NewProcessorService(docRepo, procRepo, client, nil, time.Millisecond, zap.NewNop()).(*processorService)
	processor.sleep = func(time.Duration) {}

	doc := &models.Document{Filename: "resume.pdf", FileType: "pdf", ExtractedText: resumeText}
	if err := docRepo.Create(doc); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	result, err := processor.ProcessDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	record, _ := procRepo.FindByID(result.RecordID)
	if record.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", record.Status)
	}
	if record.RetryCount != 0 {
		t.Fatalf("client-internal retries must not touch the persisted retry count, got %d", record.RetryCount)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 generator attempts, got %d", gen.calls)
	}
}

func TestBatchProcessIsolatesFailures(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{{text: validProfileJSON}})
	goodID := f.createDocument(t, resumeText)
	emptyID := f.createDocument(t, "")

	result, err := f.processor.BatchProcess(context.Background(), []uuid.UUID{emptyID, goodID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Succeeded) != 1 || result.Succeeded[0] != goodID {
		t.Fatalf("expected one succeeded id, got %v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0] != emptyID {
		t.Fatalf("expected one failed id, got %v", result.Failed)
	}
}

func TestGetProcessingStats(t *testing.T) {
	f := newProcessorFixture(t, []stubStep{{text: validProfileJSON}})

	// Empty table: zero total, zero rate.
	stats, err := f.processor.GetProcessingStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 0 || stats.SuccessRate != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}

	completedID := f.createDocument(t, resumeText)
	if _, err := f.processor.ProcessDocument(context.Background(), completedID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := "boom"
	failedDoc := f.createDocument(t, resumeText)
	if err := f.procRepo.Create(&models.ProcessedDocument{
		DocumentID:   failedDoc,
		Status:       models.StatusFailed,
		RetryCount:   1,
		ErrorMessage: &msg,
	}); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	stats, err = f.processor.GetProcessingStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.SuccessRate != 0.5 {
		t.Fatalf("expected success rate 0.5, got %f", stats.SuccessRate)
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resume-screener/internal/repositories"
)

// Worker picks up pending processing records that were created but never
// claimed (a crashed or interrupted caller) and runs them through the
// processor. Failed records are left alone: retrying those is an explicit
// external decision, never automatic.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(documentID uuid.UUID)
}

type worker struct {
	procRepo     repositories.ProcessedDocumentRepository
	processor    ProcessorService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	pendingAge   time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	logger       *zap.Logger
}

func NewWorker(
	procRepo repositories.ProcessedDocumentRepository,
	processor ProcessorService,
	concurrency int,
	pollInterval, pendingAge time.Duration,
	logger *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if pendingAge <= 0 {
		pendingAge = time.Minute
	}
	return &worker{
		procRepo:     procRepo,
		processor:    processor,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		pendingAge:   pendingAge,
		stopChan:     make(chan struct{}),
		logger:       logger,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting processing worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollStalePending(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.logger.Info("stopping processing worker")
	close(w.stopChan)
	w.wg.Wait()
}

// Enqueue implements Worker.
func (w *worker) Enqueue(documentID uuid.UUID) {
	select {
	case w.jobQueue <- documentID:
	case <-w.stopChan:
		w.logger.Warn("worker stopped, dropping job", zap.String("document_id", documentID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case documentID := <-w.jobQueue:
			result, err := w.processor.ProcessDocument(ctx, documentID)
			switch {
			case errors.Is(err, ErrAlreadyProcessing):
				// Another worker or caller won the claim; nothing to do.
			case err != nil:
				w.logger.Warn("background processing failed",
					zap.Int("worker", workerID),
					zap.String("document_id", documentID.String()),
					zap.Error(err),
				)
			default:
				w.logger.Info("background processing completed",
					zap.Int("worker", workerID),
					zap.String("record_id", result.RecordID.String()),
				)
			}
		}
	}
}

func (w *worker) pollStalePending(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			records, err := w.procRepo.FindStalePending(w.pendingAge, 10)
			if err != nil {
				w.logger.Warn("failed to poll pending records", zap.Error(err))
				continue
			}

			for _, record := range records {
				w.Enqueue(record.DocumentID)
			}
		}
	}
}

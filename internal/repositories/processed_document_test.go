package repositories

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"resume-screener/internal/models"
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
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedRecord(t *testing.T, repo ProcessedDocumentRepository, status models.ProcessingStatus) *models.ProcessedDocument {
	t.Helper()

	record := &models.ProcessedDocument{
		DocumentID: uuid.New(),
		Status:     status,
	}
	if err := repo.Create(record); err != nil {
		t.Fatalf("failed to create record: %v", err)
	}
	return record
}

func TestClaimForProcessing(t *testing.T) {
	repo := NewProcessedDocumentRepository(openTestDB(t))
	record := seedRecord(t, repo, models.StatusPending)

	claimed, err := repo.ClaimForProcessing(record.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claimed {
		t.Fatal("expected to claim a pending record")
	}

	// A second claim must lose: the record is already processing.
	claimed, err = repo.ClaimForProcessing(record.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed {
		t.Fatal("claiming an in-flight record must fail")
	}

	got, err := repo.FindByID(record.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusProcessing {
		t.Fatalf("expected processing status, got %s", got.Status)
	}
	if got.StartedAt == nil {
		t.Fatal("expected started_at to be set")
	}
}

func TestClaimForProcessingAcceptsFailedRecord(t *testing.T) {
	repo := NewProcessedDocumentRepository(openTestDB(t))
	record := seedRecord(t, repo, models.StatusFailed)

	claimed, err := repo.ClaimForProcessing(record.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claimed {
		t.Fatal("expected to claim a failed record for retry")
	}

	got, _ := repo.FindByID(record.ID)
	if got.ErrorMessage != nil {
		t.Fatal("claiming must clear the previous error message")
	}
}

func TestClaimForProcessingRejectsCompletedRecord(t *testing.T) {
	repo := NewProcessedDocumentRepository(openTestDB(t))
	record := seedRecord(t, repo, models.StatusCompleted)

	claimed, err := repo.ClaimForProcessing(record.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claimed {
		t.Fatal("completed records must never be reclaimed")
	}
}

func TestMarkFailedIncrementsRetryCount(t *testing.T) {
	repo := NewProcessedDocumentRepository(openTestDB(t))
	record := seedRecord(t, repo, models.StatusProcessing)

	if err := repo.MarkFailed(record.ID, "model unavailable", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.MarkFailed(record.ID, "still unavailable", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.FindByID(record.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", got.RetryCount)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "still unavailable" {
		t.Fatalf("expected latest error message, got %v", got.ErrorMessage)
	}
	if got.LastRetryAt == nil {
		t.Fatal("expected last_retry_at to be set")
	}
}

func TestCountByStatus(t *testing.T) {
	repo := NewProcessedDocumentRepository(openTestDB(t))
	seedRecord(t, repo, models.StatusPending)
	seedRecord(t, repo, models.StatusCompleted)
	seedRecord(t, repo, models.StatusCompleted)
	seedRecord(t, repo, models.StatusFailed)

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts[models.StatusPending] != 1 || counts[models.StatusCompleted] != 2 || counts[models.StatusFailed] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestFindStalePending(t *testing.T) {
	db := openTestDB(t)
	repo := NewProcessedDocumentRepository(db)

	fresh := seedRecord(t, repo, models.StatusPending)
	stale := seedRecord(t, repo, models.StatusPending)

	// Age the second record past the cutoff.
	old := time.Now().Add(-10 * time.Minute)
	if err := db.Model(&models.ProcessedDocument{}).Where("id = ?", stale.ID).Update("created_at", old).Error; err != nil {
		t.Fatalf("failed to age record: %v", err)
	}

	records, err := repo.FindStalePending(5*time.Minute, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 stale record, got %d", len(records))
	}
	if records[0].ID != stale.ID {
		t.Fatalf("expected stale record %s, got %s", stale.ID, records[0].ID)
	}
	if records[0].ID == fresh.ID {
		t.Fatal("fresh record must not be returned")
	}
}

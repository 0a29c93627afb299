package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"resume-screener/internal/config"
	"resume-screener/internal/handlers"
	"resume-screener/internal/logger"
	"resume-screener/internal/repositories"
	"resume-screener/internal/services"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Server.Env != "development", cfg.Server.Env == "development")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}

	// Repositories
	docRepo := repositories.NewDocumentRepository(db)
	procRepo := repositories.NewProcessedDocumentRepository(db)
	evalRepo := repositories.NewEvaluationRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	criteriaRepo := repositories.NewCriteriaRepository(db)
	questionnaireRepo := repositories.NewQuestionnaireRepository(db)

	// Storage and parsing
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zapLogger.Fatal("failed to create upload directory", zap.Error(err))
	}
	pdfParser := services.NewPDFParserService()

	// Inference
	generator, err := services.NewGeminiGenerator(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
	if err != nil {
		zapLogger.Fatal("failed to initialize gemini client", zap.Error(err))
	}
	inference := services.NewInferenceClient(
		generator,
		cfg.Gemini.MaxAttempts,
		cfg.Gemini.BaseDelay,
		cfg.Gemini.CallTimeout,
		zapLogger,
	)

	// Candidate search index
	searchService, err := services.NewSearchService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		inference,
		zapLogger,
	)
	if err != nil {
		zapLogger.Fatal("failed to initialize qdrant client", zap.Error(err))
	}
	if err := searchService.InitCollection(); err != nil {
		zapLogger.Fatal("failed to initialize qdrant collection", zap.Error(err))
	}

	// Pipeline services
	processor := services.NewProcessorService(
		docRepo,
		procRepo,
		inference,
		searchService,
		cfg.Pipeline.BatchDelay,
		zapLogger,
	)
	evaluator := services.NewEvaluatorService(
		procRepo,
		evalRepo,
		jobRepo,
		criteriaRepo,
		questionnaireRepo,
		inference,
		zapLogger,
	)

	// Background worker for stale pending records
	worker := services.NewWorker(
		procRepo,
		processor,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
		cfg.Worker.PendingAge,
		zapLogger,
	)
	worker.Start(context.Background())

	// Handlers
	uploadHandler := handlers.NewUploadHandler(docRepo, storageService, pdfParser, cfg.Storage.MaxFileSize)
	processHandler := handlers.NewProcessHandler(processor)
	evaluateHandler := handlers.NewEvaluateHandler(evaluator)
	searchHandler := handlers.NewSearchHandler(searchService)

	app := fiber.New(fiber.Config{
		AppName:      "Resume Screener API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/process/batch", processHandler.HandleBatchProcess)
	api.Get("/process/stats", processHandler.HandleStats)
	api.Post("/process/:documentId", processHandler.HandleProcess)
	api.Get("/process/:documentId/status", processHandler.HandleStatus)
	api.Post("/records/:recordId/retry", processHandler.HandleRetry)
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Get("/evaluations/:id", evaluateHandler.HandleGetEvaluation)
	api.Get("/candidates/search", searchHandler.HandleSearch)
	api.Delete("/candidates/:recordId", searchHandler.HandleRemove)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zapLogger.Info("shutting down server")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			zapLogger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zapLogger.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

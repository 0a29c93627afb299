package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrorCategory classifies an inference failure so callers can decide
// whether the failure was transient infrastructure or a definitive outcome.
type ErrorCategory string

const (
	CategoryRateLimit  ErrorCategory = "rate_limit"
	CategoryTimeout    ErrorCategory = "timeout"
	CategoryNetwork    ErrorCategory = "network"
	CategoryBadPayload ErrorCategory = "bad_payload"
	CategoryUpstream   ErrorCategory = "upstream"
)

// InferenceError wraps a failed inference call with its category and the
// number of attempts spent before giving up.
type InferenceError struct {
	Category ErrorCategory
	Attempts int
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed (%s, %d attempts): %v", e.Category, e.Attempts, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the category is transient infrastructure.
// Payload-shape failures belong to one specific model response and are
// never retried.
func (e *InferenceError) Retryable() bool {
	switch e.Category {
	case CategoryRateLimit, CategoryTimeout, CategoryNetwork:
		return true
	default:
		return false
	}
}

// Completion is one successful model response. TokensUsed is 0 when the
// upstream response carries no usage metadata.
type Completion struct {
	Text       string
	TokensUsed int
	Model      string
}

// Generator is the raw model round-trip, kept minimal so tests can inject
// stubs instead of a live client.
type Generator interface {
	GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)
	EmbedContent(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type InferenceService interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type inferenceClient struct {
	gen         Generator
	maxAttempts int
	baseDelay   time.Duration
	callTimeout time.Duration
	sleep       func(time.Duration)
	logger      *zap.Logger
}

func NewInferenceClient(gen Generator, maxAttempts int, baseDelay, callTimeout time.Duration, logger *zap.Logger) InferenceService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &inferenceClient{
		gen:         gen,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		callTimeout: callTimeout,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// Model implements InferenceService.
func (c *inferenceClient) Model() string {
	return c.gen.Model()
}

// Complete implements InferenceService. Transient failures are retried up to
// maxAttempts with exponential backoff (baseDelay * 2^(attempt-1)); terminal
// failures are surfaced on first occurrence.
func (c *inferenceClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	var lastErr *InferenceError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		completion, err := c.gen.GenerateContent(callCtx, systemPrompt, userPrompt)
		cancel()

		if err == nil {
			return completion, nil
		}

		lastErr = &InferenceError{
			Category: classifyError(err),
			Attempts: attempt,
			Err:      err,
		}

		if !lastErr.Retryable() || attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, &InferenceError{Category: CategoryTimeout, Attempts: attempt, Err: ctx.Err()}
		default:
		}

		delay := c.baseDelay * (1 << (attempt - 1))
		c.logger.Warn("inference attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.String("category", string(lastErr.Category)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		c.sleep(delay)
	}

	return nil, lastErr
}

// Embed implements InferenceService.
func (c *inferenceClient) Embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	return c.gen.EmbedContent(callCtx, text)
}

func classifyError(err error) ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return CategoryRateLimit
		case apiErr.Code >= 500:
			return CategoryNetwork
		default:
			return CategoryUpstream
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "resource exhausted"), strings.Contains(msg, "quota"):
		return CategoryRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return CategoryTimeout
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"), strings.Contains(msg, "unavailable"):
		return CategoryNetwork
	case strings.Contains(msg, "empty response"), strings.Contains(msg, "no text content"):
		return CategoryBadPayload
	default:
		return CategoryUpstream
	}
}

const maxEmbedInputChars = 40000

type geminiGenerator struct {
	client     *genai.Client
	modelName  string
	embedModel string
}

func NewGeminiGenerator(apiKey, modelName, embedModel string) (Generator, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}

	return &geminiGenerator{
		client:     client,
		modelName:  modelName,
		embedModel: embedModel,
	}, nil
}

// Model implements Generator.
func (g *geminiGenerator) Model() string {
	return g.modelName
}

// GenerateContent implements Generator.
func (g *geminiGenerator) GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	temperature := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(userPrompt), config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from model")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &Completion{
		Text:       text,
		TokensUsed: tokens,
		Model:      g.modelName,
	}, nil
}

// EmbedContent implements Generator.
func (g *geminiGenerator) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedInputChars {
		text = text[:maxEmbedInputChars]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

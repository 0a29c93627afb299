package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubGenerator replays a scripted sequence of responses and errors.
type stubGenerator struct {
	script []stubStep
	calls  int
}

type stubStep struct {
	text string
	err  error
}

func (s *stubGenerator) GenerateContent(_ context.Context, _, _ string) (*Completion, error) {
	step := s.script[s.calls]
	s.calls++
	if step.err != nil {
		return nil, step.err
	}
	return &Completion{Text: step.text, TokensUsed: 42, Model: s.Model()}, nil
}

func (s *stubGenerator) EmbedContent(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func newTestClient(gen Generator) (*inferenceClient, *[]time.Duration) {
	client := NewInferenceClient(gen, 3, time.Second, time.Minute, zap.NewNop()).(*inferenceClient)
	var delays []time.Duration
	client.sleep = func(d time.Duration) { delays = append(delays, d) }
	return client, &delays
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	gen := &stubGenerator{script: []stubStep{
		{err: fmt.Errorf("rate limit exceeded")},
		{err: context.DeadlineExceeded},
		{text: `{"ok": true}`},
	}}
	client, delays := newTestClient(gen)

	completion, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
	if completion.TokensUsed != 42 {
		t.Fatalf("expected token usage 42, got %d", completion.TokensUsed)
	}

	// Exponential backoff: base, then base*2.
	if len(*delays) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(*delays))
	}
	if (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("unexpected backoff schedule: %v", *delays)
	}
}

func TestCompleteDoesNotRetryTerminalErrors(t *testing.T) {
	gen := &stubGenerator{script: []stubStep{
		{err: fmt.Errorf("no text content in response")},
		{text: `{"ok": true}`},
	}}
	client, delays := newTestClient(gen)

	_, err := client.Complete(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error")
	}
	if gen.calls != 1 {
		t.Fatalf("terminal error must not be retried, got %d attempts", gen.calls)
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no backoff sleeps, got %v", *delays)
	}

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %T", err)
	}
	if infErr.Category != CategoryBadPayload {
		t.Fatalf("expected bad_payload category, got %s", infErr.Category)
	}
	if infErr.Retryable() {
		t.Fatal("bad_payload must not be retryable")
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	gen := &stubGenerator{script: []stubStep{
		{err: fmt.Errorf("rate limit exceeded")},
		{err: fmt.Errorf("rate limit exceeded")},
		{err: fmt.Errorf("rate limit exceeded")},
	}}
	client, _ := newTestClient(gen)

	_, err := client.Complete(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if gen.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", gen.calls)
	}

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %T", err)
	}
	if infErr.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", infErr.Attempts)
	}
	if infErr.Category != CategoryRateLimit {
		t.Fatalf("expected rate_limit category, got %s", infErr.Category)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCategory
	}{
		{context.DeadlineExceeded, CategoryTimeout},
		{fmt.Errorf("rate limit exceeded"), CategoryRateLimit},
		{fmt.Errorf("quota exceeded for model"), CategoryRateLimit},
		{fmt.Errorf("request timeout"), CategoryTimeout},
		{fmt.Errorf("connection refused"), CategoryNetwork},
		{fmt.Errorf("service unavailable"), CategoryNetwork},
		{fmt.Errorf("no text content in response"), CategoryBadPayload},
		{fmt.Errorf("invalid argument"), CategoryUpstream},
	}

	for _, tc := range cases {
		if got := classifyError(tc.err); got != tc.want {
			t.Errorf("classifyError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

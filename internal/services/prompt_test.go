package services

import (
	"math"
	"strings"
	"testing"

	"resume-screener/internal/models"
)

func TestBuildEvaluationSystemPrompt(t *testing.T) {
	pb := NewPromptBuilder()
	criteria := []models.EvaluationCriterion{
		{ID: 1, Name: "Technical Skills", Weight: 0.6, Description: "Stack alignment"},
		{ID: 2, Name: "Experience", Weight: 0.4},
	}

	prompt := pb.BuildEvaluationSystemPrompt(criteria)

	for _, want := range []string{
		"Technical Skills (weight: 60%)",
		"Experience (weight: 40%)",
		"Stack alignment",
		"Proceed to next round",
		"Consider with caution",
		"Do not proceed",
		"7-10",
		"5-6",
		"1-4",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildEvaluationUserPromptListsIDs(t *testing.T) {
	pb := NewPromptBuilder()
	job := &models.JobPosting{Title: "Backend Engineer", Requirements: "Go"}
	criteria := []models.EvaluationCriterion{{ID: 7, Name: "x", Weight: 1}}
	answers := []models.QuestionnaireResponse{{ID: 12, Question: "Remote?", Answer: "Yes"}}

	prompt := pb.BuildEvaluationUserPrompt(job, `{"skills": {}}`, answers, criteria)

	if !strings.Contains(prompt, "AVAILABLE CRITERIA IDS: [7]") {
		t.Errorf("user prompt missing criteria ids:\n%s", prompt)
	}
	if !strings.Contains(prompt, "AVAILABLE QUESTIONNAIRE RESPONSE IDS: [12]") {
		t.Errorf("user prompt missing response ids:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[id=12] Q: Remote?") {
		t.Errorf("user prompt missing questionnaire answer:\n%s", prompt)
	}
}

func TestNormalizedWeights(t *testing.T) {
	// Weights drifting from 1.0 are rescaled.
	criteria := []models.EvaluationCriterion{
		{ID: 1, Weight: 0.3},
		{ID: 2, Weight: 0.3},
	}

	weights := NormalizedWeights(criteria)
	if math.Abs(weights[1]-0.5) > 1e-9 || math.Abs(weights[2]-0.5) > 1e-9 {
		t.Fatalf("expected normalized 0.5/0.5, got %v", weights)
	}

	// Zero weights degrade to equal shares.
	zero := []models.EvaluationCriterion{{ID: 1, Weight: 0}, {ID: 2, Weight: 0}}
	weights = NormalizedWeights(zero)
	if math.Abs(weights[1]-0.5) > 1e-9 {
		t.Fatalf("expected equal shares for zero weights, got %v", weights)
	}
}

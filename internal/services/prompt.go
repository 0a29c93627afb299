package services

import (
	"fmt"
	"strings"

	"resume-screener/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildExtractionSystemPrompt instructs the model to convert résumé text
// into the candidate-profile JSON schema.
func (pb *PromptBuilder) BuildExtractionSystemPrompt() string {
	return `You are a résumé parsing engine. You convert free-text résumé content into a structured candidate profile.

Return ONLY a JSON object with exactly these top-level keys:
{
  "personal_information": {"name": string|null, "email": string|null, "phone": string|null, "location": string|null, "summary": string|null},
  "job_objective": string|null,
  "education": [{"institution": string|null, "degree": string|null, "field_of_study": string|null, "graduation_year": string|null}],
  "work_experience": [{"company": string|null, "title": string|null, "start_date": string|null, "end_date": string|null, "description": string|null, "achievements": [string]}],
  "skills": {"technical": [string], "soft": [string]},
  "certifications": [string],
  "projects": [{"name": string|null, "description": string|null, "technologies": [string]}],
  "languages": [string],
  "awards": [string],
  "interests": [string],
  "years_of_experience": number|null,
  "technologies": [string],
  "career_path": string|null
}

Rules:
- Every key above must be present. Use null for absent text fields and [] for absent list fields. Never omit a key.
- Do not invent information that is not in the résumé.
- Do not wrap the JSON in markdown or add commentary.`
}

// BuildExtractionUserPrompt wraps the raw résumé text.
func (pb *PromptBuilder) BuildExtractionUserPrompt(resumeText string) string {
	return fmt.Sprintf("RÉSUMÉ TEXT:\n%s\n\nExtract the candidate profile as JSON.", resumeText)
}

// BuildEvaluationSystemPrompt enumerates the active criteria with their
// weights and descriptions plus the scoring-band guidance. Weights are
// normalized for display when the active set does not sum to 1.0.
func (pb *PromptBuilder) BuildEvaluationSystemPrompt(criteria []models.EvaluationCriterion) string {
	var sb strings.Builder
	sb.WriteString("You are an expert HR recruiter scoring a candidate against a weighted set of evaluation criteria.\n\n")
	sb.WriteString("EVALUATION CRITERIA:\n")

	weights := NormalizedWeights(criteria)
	for i, c := range criteria {
		sb.WriteString(fmt.Sprintf("%d. %s (weight: %.0f%%)", i+1, c.Name, weights[c.ID]*100))
		if strings.TrimSpace(c.Description) != "" {
			sb.WriteString(" - " + strings.TrimSpace(c.Description))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
Score the candidate from 1 to 10 overall, weighting each criterion as listed.

Scoring bands:
- 7-10: strong match, recommendation must be "Proceed to next round"
- 5-6: partial match, recommendation must be "Consider with caution"
- 1-4: weak match, recommendation must be "Do not proceed"

Return ONLY a JSON object:
{
  "score": <integer 1-10>,
  "strengths": [<2 to 5 strings>],
  "weaknesses": [<1 to 3 strings>],
  "explanation": "<detailed reasoning referencing the criteria>",
  "recommendation": "<one of the three labels above>",
  "linkedCriteriaIds": [<integer ids of the criteria that drove the score>],
  "linkedQuestionnaireResponseIds": [<integer ids of the answers you relied on>]
}

Only cite ids from the lists provided in the user message. Do not wrap the JSON in markdown.`)

	return sb.String()
}

// BuildEvaluationUserPrompt serializes the job requirements, the full
// candidate profile, and the questionnaire answers, with the id lists
// available for linking.
func (pb *PromptBuilder) BuildEvaluationUserPrompt(
	job *models.JobPosting,
	profileJSON string,
	answers []models.QuestionnaireResponse,
	criteria []models.EvaluationCriterion,
) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("JOB TITLE: %s\n\n", job.Title))
	sb.WriteString(fmt.Sprintf("REQUIREMENTS:\n%s\n\n", job.Requirements))
	if strings.TrimSpace(job.Responsibilities) != "" {
		sb.WriteString(fmt.Sprintf("RESPONSIBILITIES:\n%s\n\n", job.Responsibilities))
	}

	sb.WriteString("CANDIDATE PROFILE (JSON):\n")
	sb.WriteString(profileJSON)
	sb.WriteString("\n\n")

	if len(answers) > 0 {
		sb.WriteString("QUESTIONNAIRE ANSWERS:\n")
		for _, a := range answers {
			sb.WriteString(fmt.Sprintf("[id=%d] Q: %s\nA: %s\n", a.ID, a.Question, a.Answer))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("QUESTIONNAIRE ANSWERS: none\n\n")
	}

	criteriaIDs := make([]string, 0, len(criteria))
	for _, c := range criteria {
		criteriaIDs = append(criteriaIDs, fmt.Sprintf("%d", c.ID))
	}
	responseIDs := make([]string, 0, len(answers))
	for _, a := range answers {
		responseIDs = append(responseIDs, fmt.Sprintf("%d", a.ID))
	}

	sb.WriteString(fmt.Sprintf("AVAILABLE CRITERIA IDS: [%s]\n", strings.Join(criteriaIDs, ", ")))
	sb.WriteString(fmt.Sprintf("AVAILABLE QUESTIONNAIRE RESPONSE IDS: [%s]\n", strings.Join(responseIDs, ", ")))

	return sb.String()
}

// NormalizedWeights returns per-criterion weights rescaled to sum to 1.0.
// When the stored weights already sum to 1.0 (within tolerance) they are
// returned unchanged; a zero sum yields equal weights.
func NormalizedWeights(criteria []models.EvaluationCriterion) map[uint]float64 {
	weights := make(map[uint]float64, len(criteria))
	if len(criteria) == 0 {
		return weights
	}

	var sum float64
	for _, c := range criteria {
		sum += c.Weight
	}

	if sum <= 0 {
		equal := 1.0 / float64(len(criteria))
		for _, c := range criteria {
			weights[c.ID] = equal
		}
		return weights
	}

	for _, c := range criteria {
		weights[c.ID] = c.Weight / sum
	}
	return weights
}

// WeightSum reports the raw sum of the active criteria weights so callers
// can log when the configured rubric drifts from 1.0.
func WeightSum(criteria []models.EvaluationCriterion) float64 {
	var sum float64
	for _, c := range criteria {
		sum += c.Weight
	}
	return sum
}

package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"resume-screener/internal/models"
)

// SchemaError reports a specific violation in a model payload. It is always
// terminal: the payload belongs to one response and retrying the same call
// cannot fix it.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: field %q %s", e.Field, e.Reason)
}

// profileSections are the top-level keys the extraction payload must carry.
// Absent values are null or empty arrays, never omitted keys.
var profileSections = []string{
	"personal_information",
	"job_objective",
	"education",
	"work_experience",
	"skills",
	"certifications",
	"projects",
	"languages",
	"awards",
	"interests",
	"years_of_experience",
	"technologies",
	"career_path",
}

// ExtractJSON strips markdown fences and surrounding prose from a model
// response, returning the innermost JSON object or array.
func ExtractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

// ValidateCandidateProfile checks a raw extraction payload against the
// candidate-profile schema and returns the typed profile with list fields
// normalized to empty slices.
func ValidateCandidateProfile(raw []byte) (*models.CandidateProfile, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &SchemaError{Field: "(root)", Reason: fmt.Sprintf("is not a JSON object: %v", err)}
	}

	for _, section := range profileSections {
		if _, ok := top[section]; !ok {
			return nil, &SchemaError{Field: section, Reason: "is missing"}
		}
	}

	var skills map[string]json.RawMessage
	if err := json.Unmarshal(top["skills"], &skills); err != nil {
		return nil, &SchemaError{Field: "skills", Reason: "is not an object"}
	}
	if _, ok := skills["technical"]; !ok {
		return nil, &SchemaError{Field: "skills.technical", Reason: "is missing"}
	}
	if _, ok := skills["soft"]; !ok {
		return nil, &SchemaError{Field: "skills.soft", Reason: "is missing"}
	}

	var profile models.CandidateProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, &SchemaError{Field: "(root)", Reason: fmt.Sprintf("does not match the profile schema: %v", err)}
	}

	profile.NormalizeEmpty()
	return &profile, nil
}

// EvaluationPayload is the validated shape of a scoring response.
type EvaluationPayload struct {
	Score             int
	Strengths         []string
	Weaknesses        []string
	Explanation       string
	Recommendation    models.Recommendation
	LinkedCriteriaIDs []int
	LinkedResponseIDs []int
}

var validRecommendations = map[models.Recommendation]bool{
	models.RecommendProceed: true,
	models.RecommendCaution: true,
	models.RecommendReject:  true,
}

// ValidateEvaluation checks a raw scoring payload against the evaluation
// schema: integer score in [1,10], 2-5 strengths, 1-3 weaknesses, one of the
// three recommendation labels, and id arrays for linking (null tolerated as
// empty).
func ValidateEvaluation(raw []byte) (*EvaluationPayload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &SchemaError{Field: "(root)", Reason: fmt.Sprintf("is not a JSON object: %v", err)}
	}

	for _, field := range []string{"score", "strengths", "weaknesses", "explanation", "recommendation", "linkedCriteriaIds", "linkedQuestionnaireResponseIds"} {
		if _, ok := top[field]; !ok {
			return nil, &SchemaError{Field: field, Reason: "is missing"}
		}
	}

	var scoreNum json.Number
	if err := json.Unmarshal(top["score"], &scoreNum); err != nil {
		return nil, &SchemaError{Field: "score", Reason: "is not a number"}
	}
	scoreInt, err := scoreNum.Int64()
	if err != nil {
		return nil, &SchemaError{Field: "score", Reason: "must be an integer"}
	}
	if scoreInt < 1 || scoreInt > 10 {
		return nil, &SchemaError{Field: "score", Reason: fmt.Sprintf("must be between 1 and 10, got %d", scoreInt)}
	}

	var strengths []string
	if err := json.Unmarshal(top["strengths"], &strengths); err != nil {
		return nil, &SchemaError{Field: "strengths", Reason: "is not a string array"}
	}
	if len(strengths) < 2 || len(strengths) > 5 {
		return nil, &SchemaError{Field: "strengths", Reason: fmt.Sprintf("must contain 2 to 5 entries, got %d", len(strengths))}
	}

	var weaknesses []string
	if err := json.Unmarshal(top["weaknesses"], &weaknesses); err != nil {
		return nil, &SchemaError{Field: "weaknesses", Reason: "is not a string array"}
	}
	if len(weaknesses) < 1 || len(weaknesses) > 3 {
		return nil, &SchemaError{Field: "weaknesses", Reason: fmt.Sprintf("must contain 1 to 3 entries, got %d", len(weaknesses))}
	}

	var explanation string
	if err := json.Unmarshal(top["explanation"], &explanation); err != nil {
		return nil, &SchemaError{Field: "explanation", Reason: "is not a string"}
	}

	var recommendation models.Recommendation
	if err := json.Unmarshal(top["recommendation"], &recommendation); err != nil {
		return nil, &SchemaError{Field: "recommendation", Reason: "is not a string"}
	}
	if !validRecommendations[recommendation] {
		return nil, &SchemaError{Field: "recommendation", Reason: fmt.Sprintf("must be one of the defined labels, got %q", recommendation)}
	}

	criteriaIDs, err := validateIDArray(top["linkedCriteriaIds"], "linkedCriteriaIds")
	if err != nil {
		return nil, err
	}
	responseIDs, err := validateIDArray(top["linkedQuestionnaireResponseIds"], "linkedQuestionnaireResponseIds")
	if err != nil {
		return nil, err
	}

	return &EvaluationPayload{
		Score:             int(scoreInt),
		Strengths:         strengths,
		Weaknesses:        weaknesses,
		Explanation:       explanation,
		Recommendation:    recommendation,
		LinkedCriteriaIDs: criteriaIDs,
		LinkedResponseIDs: responseIDs,
	}, nil
}

func validateIDArray(raw json.RawMessage, field string) ([]int, error) {
	if string(raw) == "null" {
		return []int{}, nil
	}

	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, &SchemaError{Field: field, Reason: "is not an integer array"}
	}
	if ids == nil {
		ids = []int{}
	}
	return ids, nil
}

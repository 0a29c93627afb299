package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

type EvaluateRequest struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
	JobID      uint   `json:"job_id" validate:"required"`
}

type BatchProcessRequest struct {
	DocumentIDs []string `json:"document_ids" validate:"required"`
}

type ProcessResponse struct {
	Success          bool   `json:"success"`
	RecordID         string `json:"record_id,omitempty"`
	Status           string `json:"status,omitempty"`
	TokensUsed       int    `json:"tokens_used,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
	Error            string `json:"error,omitempty"`
}

type BatchProcessResponse struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

type ProcessingStatsResponse struct {
	Total       int64   `json:"total"`
	Pending     int64   `json:"pending"`
	Processing  int64   `json:"processing"`
	Completed   int64   `json:"completed"`
	Failed      int64   `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type EvaluationResponse struct {
	ID               string   `json:"id"`
	DocumentID       string   `json:"document_id"`
	JobID            uint     `json:"job_id"`
	Score            int      `json:"score"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Explanation      string   `json:"explanation"`
	Recommendation   string   `json:"recommendation"`
	TokensUsed       int      `json:"tokens_used"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

type CandidateSearchResponse struct {
	RecordID string  `json:"record_id"`
	Score    float32 `json:"score"`
	Snippet  string  `json:"snippet"`
}

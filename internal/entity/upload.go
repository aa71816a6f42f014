package entity

import (
	"time"

	"github.com/google/uuid"
)

// UploadSummary is the result of uploading one questionnaire document.
type UploadSummary struct {
	Success        bool           `json:"success"`
	Country        string         `json:"country,omitempty"`
	TotalQuestions int            `json:"total_questions"`
	Categories     map[string]int `json:"categories,omitempty"`
	NeedsCuration  int            `json:"needs_curation"`
	Message        string         `json:"message"`
	JobID          uuid.UUID      `json:"job_id"`
}

// UploadJob records one upload attempt.
type UploadJob struct {
	ID             uuid.UUID  `json:"id"`
	SourcePath     string     `json:"source_path"`
	Format         string     `json:"format"`
	Status         string     `json:"status"`
	Country        *string    `json:"country,omitempty"`
	Pages          int        `json:"pages"`
	FallbackPages  int        `json:"fallback_pages"`
	TotalQuestions int        `json:"total_questions"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

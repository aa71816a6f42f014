package entity

// CategoryStats is the per-category slice of a completion report.
type CategoryStats struct {
	Category       string  `json:"category"`
	Total          int     `json:"total"`
	Answered       int     `json:"answered"`
	CompletionRate float64 `json:"completion_rate"`
}

// CompletionReport summarizes answered vs. total questions for one user session.
type CompletionReport struct {
	UserID            string          `json:"user_id"`
	SessionID         string          `json:"session_id"`
	Country           string          `json:"country"`
	TotalQuestions    int             `json:"total_questions"`
	AnsweredQuestions int             `json:"answered_questions"`
	CompletionRate    float64         `json:"completion_rate"`
	CategoryStats     []CategoryStats `json:"category_stats"`
	MissingQuestions  []string        `json:"missing_questions"`
}

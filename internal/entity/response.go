package entity

import "time"

// DefaultConfidence is stored for answers typed by a user.
const DefaultConfidence = 1.0

// UserResponse is one answer to one question within one session.
// Storage identity is (UserID, QuestionID, SessionID).
type UserResponse struct {
	UserID     string    `json:"user_id"`
	QuestionID string    `json:"question_id"`
	SessionID  string    `json:"session_id"`
	Answer     string    `json:"answer"`
	AnswerKind string    `json:"answer_kind"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// ResponseRecord is the per-question view returned by response queries.
type ResponseRecord struct {
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

// QueryLimit caps QueryQuestions results.
const QueryLimit = 1000

// QuestionStore is the system of record for questions and answers.
type QuestionStore interface {
	// PutQuestions upserts by question id.
	PutQuestions(ctx context.Context, qs []entity.Question) error
	// QueryQuestions returns matching questions ordered by (position, id).
	QueryQuestions(ctx context.Context, f entity.QuestionFilter) ([]entity.Question, error)
	GetQuestion(ctx context.Context, id string) (entity.Question, error)
	// PutResponse upserts by (user id, question id, session id).
	PutResponse(ctx context.Context, r entity.UserResponse) error
	// QueryResponses maps question id to answer. An empty sessionID covers all of
	// the user's sessions, the latest answer winning.
	QueryResponses(ctx context.Context, userID, sessionID string) (map[string]entity.ResponseRecord, error)
}

// JobOutcome is the terminal state of an upload job.
type JobOutcome struct {
	Status         string
	Country        string
	Pages          int
	FallbackPages  int
	TotalQuestions int
	ErrorMessage   string
}

// UploadJobStore logs upload attempts.
type UploadJobStore interface {
	StartJob(ctx context.Context, sourcePath, format string) (entity.UploadJob, error)
	FinishJob(ctx context.Context, id uuid.UUID, out JobOutcome) error
	// ListJobs returns the most recent jobs first.
	ListJobs(ctx context.Context, limit int) ([]entity.UploadJob, error)
}

// Store is everything the service layer needs from persistence.
type Store interface {
	QuestionStore
	UploadJobStore
	Counts(ctx context.Context) (questions, responses int, err error)
	Close() error
}

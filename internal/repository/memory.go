package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

type responseKey struct {
	userID, questionID, sessionID string
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.RWMutex
	questions map[string]entity.Question
	responses map[responseKey]entity.UserResponse
	jobs      []entity.UploadJob
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: map[string]entity.Question{},
		responses: map[responseKey]entity.UserResponse{},
		now:       time.Now,
	}
}

func (m *MemoryStore) PutQuestions(_ context.Context, qs []entity.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	for _, q := range qs {
		if prev, ok := m.questions[q.ID]; ok {
			q.CreatedAt = prev.CreatedAt
			if q.NeedsCuration && !prev.NeedsCuration && len(prev.Options) > 0 {
				q.Options, q.NeedsCuration = prev.Options, false
			}
		} else if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		q.Options = append([]string(nil), q.Options...)
		m.questions[q.ID] = q
	}
	return nil
}

func (m *MemoryStore) QueryQuestions(_ context.Context, f entity.QuestionFilter) ([]entity.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []entity.Question
	for _, q := range m.questions {
		if f.Country != "" && q.Country != f.Country {
			continue
		}
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > QueryLimit {
		out = out[:QueryLimit]
	}
	return out, nil
}

func (m *MemoryStore) GetQuestion(_ context.Context, id string) (entity.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return entity.Question{}, fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}
	return q, nil
}

func (m *MemoryStore) PutResponse(_ context.Context, r entity.UserResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Timestamp.IsZero() {
		r.Timestamp = m.now()
	}
	m.responses[responseKey{r.UserID, r.QuestionID, r.SessionID}] = r
	return nil
}

func (m *MemoryStore) QueryResponses(_ context.Context, userID, sessionID string) (map[string]entity.ResponseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]entity.ResponseRecord{}
	for k, r := range m.responses {
		if k.userID != userID || (sessionID != "" && k.sessionID != sessionID) {
			continue
		}
		if prev, ok := out[k.questionID]; ok && !r.Timestamp.After(prev.Timestamp) {
			continue
		}
		out[k.questionID] = entity.ResponseRecord{Answer: r.Answer, Timestamp: r.Timestamp}
	}
	return out, nil
}

func (m *MemoryStore) StartJob(_ context.Context, sourcePath, format string) (entity.UploadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := entity.UploadJob{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Format:     format,
		Status:     string(constants.JobStatusRunning),
		StartedAt:  m.now().UTC(),
	}
	m.jobs = append(m.jobs, job)
	return job, nil
}

func (m *MemoryStore) FinishJob(_ context.Context, id uuid.UUID, out JobOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID != id {
			continue
		}
		j := &m.jobs[i]
		j.Status = out.Status
		j.Pages = out.Pages
		j.FallbackPages = out.FallbackPages
		j.TotalQuestions = out.TotalQuestions
		if out.Country != "" {
			c := out.Country
			j.Country = &c
		}
		if out.ErrorMessage != "" {
			e := out.ErrorMessage
			j.ErrorMessage = &e
		}
		fin := m.now().UTC()
		j.FinishedAt = &fin
		return nil
	}
	return fmt.Errorf("upload job %s: %w", id, common.ErrNotFound)
}

func (m *MemoryStore) ListJobs(_ context.Context, limit int) ([]entity.UploadJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]entity.UploadJob, 0, min(limit, len(m.jobs)))
	for i := len(m.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.jobs[i])
	}
	return out, nil
}

func (m *MemoryStore) Counts(context.Context) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.questions), len(m.responses), nil
}

func (m *MemoryStore) Close() error { return nil }

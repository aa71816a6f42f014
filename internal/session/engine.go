// Package session walks a user through a country's questions one at a time,
// validating and persisting each answer.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/report"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/repository"
)

// User-facing session messages.
const (
	MsgNoActiveSession  = "No active session. Please start a session first."
	MsgNoMoreToAnswer   = "No more questions to answer."
	MsgNoMoreToSkip     = "No more questions to skip."
	MsgCannotSkip       = "This question is required and cannot be skipped."
	MsgSkipped          = "Question skipped."
	MsgAnswerSaved      = "Answer saved successfully!"
	MsgCompleted        = "Questionnaire completed!"
	MsgSelectCountry    = "Session started. Please select a country."
	msgCountryFound     = "Country set to %s. Found %d questions."
	msgUnsupportedCntry = "Country '%s' not supported. Available countries: %s"
)

// QuestionPayload is the part of a question shown to the user.
type QuestionPayload struct {
	ID                string   `json:"id"`
	Text              string   `json:"text"`
	Type              string   `json:"type"`
	Category          string   `json:"category"`
	Required          bool     `json:"required"`
	Options           []string `json:"options,omitempty"`
	HelpText          string   `json:"help_text"`
	RegulatoryContext string   `json:"regulatory_context"`
	ComplianceArea    string   `json:"compliance_area"`
}

// Progress is 1-based: Current is the position of the question being shown.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// NextResult is either the current question or, once the list is exhausted, the report.
type NextResult struct {
	Question  *QuestionPayload         `json:"question,omitempty"`
	Progress  *Progress                `json:"progress,omitempty"`
	Completed bool                     `json:"completed"`
	Report    *entity.CompletionReport `json:"report,omitempty"`
	Message   string                   `json:"message,omitempty"`
}

type StartResult struct {
	SessionID      string   `json:"session_id"`
	Country        string   `json:"country,omitempty"`
	TotalQuestions int      `json:"total_questions"`
	Countries      []string `json:"countries,omitempty"`
	Message        string   `json:"message"`
}

type CountryResult struct {
	Country        string `json:"country"`
	TotalQuestions int    `json:"total_questions"`
	Message        string `json:"message"`
}

// StepResult follows a submitted or skipped question.
type StepResult struct {
	Message string     `json:"message"`
	Answer  string     `json:"answer,omitempty"`
	Next    NextResult `json:"next"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSessionIDFunc replaces the generator used when StartSession gets no id.
func WithSessionIDFunc(f func(time.Time) string) Option {
	return func(e *Engine) { e.newID = f }
}

// Engine drives sessions. Calls on one session are serialized; different
// sessions run concurrently.
type Engine struct {
	questions repository.QuestionStore
	sessions  SessionStore
	countries []string
	log       *slog.Logger
	now       func() time.Time
	newID     func(time.Time) string

	locks keyedMutex
}

func NewEngine(questions repository.QuestionStore, sessions SessionStore, countries []string, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	if len(countries) == 0 {
		countries = constants.SupportedCountries
	}
	e := &Engine{
		questions: questions,
		sessions:  sessions,
		countries: countries,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     DefaultSessionID,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DefaultSessionID formats session_<yyyymmdd_hhmmss>_<8 hex chars>.
func DefaultSessionID(t time.Time) string {
	return fmt.Sprintf("session_%s_%s", t.Format("20060102_150405"), uuid.NewString()[:8])
}

// Countries lists the supported countries.
func (e *Engine) Countries() []string {
	return append([]string(nil), e.countries...)
}

func (e *Engine) lock(id string) func() {
	return e.locks.lock(id)
}

// keyedMutex hands out one mutex per key. An entry lives only while some
// caller holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// StartSession creates (or replaces) a session. An empty sessionID gets a generated one.
func (e *Engine) StartSession(ctx context.Context, userID, country, sessionID string) (StartResult, error) {
	if err := common.NewValidator().
		Field("user_id", userID, common.Required, common.MaxLen(256)).
		Field("session_id", sessionID, common.MaxLen(256)).
		Err(); err != nil {
		return StartResult{}, err
	}
	if sessionID == "" {
		sessionID = e.newID(e.now())
	}
	unlock := e.lock(sessionID)
	defer unlock()

	s := &Session{ID: sessionID, UserID: userID, Responses: map[string]entity.ResponseRecord{}}
	res := StartResult{SessionID: sessionID}

	if strings.TrimSpace(country) != "" {
		canon, err := e.resolveCountry(country)
		if err != nil {
			return StartResult{}, err
		}
		s.Country = canon
		s.Questions = e.loadQuestions(ctx, canon)
		res.Country = canon
		res.TotalQuestions = len(s.Questions)
		res.Message = fmt.Sprintf(msgCountryFound, canon, len(s.Questions))
	} else {
		res.Countries = e.Countries()
		res.Message = MsgSelectCountry
	}

	if err := e.sessions.Put(ctx, s); err != nil {
		return StartResult{}, fmt.Errorf("save session: %w", err)
	}
	e.log.Info("session.start", "session_id", sessionID, "user_id", userID, "country", s.Country, "questions", len(s.Questions))
	return res, nil
}

// SelectCountry loads the country's questions and restarts from the first one.
func (e *Engine) SelectCountry(ctx context.Context, sessionID, country string) (CountryResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return CountryResult{}, err
	}
	canon, err := e.resolveCountry(country)
	if err != nil {
		return CountryResult{}, err
	}
	s.Country = canon
	s.Questions = e.loadQuestions(ctx, canon)
	s.Cursor = 0
	s.Responses = map[string]entity.ResponseRecord{}
	if err := e.sessions.Put(ctx, s); err != nil {
		return CountryResult{}, fmt.Errorf("save session: %w", err)
	}
	e.log.Info("session.country", "session_id", sessionID, "country", canon, "questions", len(s.Questions))
	return CountryResult{
		Country:        canon,
		TotalQuestions: len(s.Questions),
		Message:        fmt.Sprintf(msgCountryFound, canon, len(s.Questions)),
	}, nil
}

// NextQuestion returns the question under the cursor without advancing.
func (e *Engine) NextQuestion(ctx context.Context, sessionID string) (NextResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return NextResult{}, err
	}
	if s.State() == StateCountryUnset {
		return NextResult{}, noActiveSession()
	}
	return e.next(ctx, s), nil
}

// SubmitAnswer validates raw against the current question, stores it and advances.
// Nothing changes when validation or storage fails.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, raw string) (StepResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return StepResult{}, err
	}
	if s.State() == StateCountryUnset || len(s.Questions) == 0 {
		return StepResult{}, noActiveSession()
	}
	q, ok := s.current()
	if !ok {
		return StepResult{}, common.NewAppError("NO_MORE_QUESTIONS", MsgNoMoreToAnswer, common.ErrNoMoreQuestions)
	}

	ans, err := ParseAnswer(q, raw)
	if err != nil {
		e.log.Info("session.answer.invalid", "session_id", sessionID, "question_id", q.ID, "type", q.Type, "reason", common.UserMessage(err))
		return StepResult{}, err
	}

	now := e.now()
	resp := entity.UserResponse{
		UserID:     s.UserID,
		QuestionID: q.ID,
		SessionID:  s.ID,
		Answer:     ans.String(),
		AnswerKind: string(ans.Kind()),
		Timestamp:  now,
		Confidence: entity.DefaultConfidence,
	}
	if err := e.questions.PutResponse(ctx, resp); err != nil {
		e.log.Error("session.answer.store_failed", "session_id", sessionID, "question_id", q.ID, "error", err)
		return StepResult{}, common.NewAppError("STORE_ERROR", "Could not save your answer. Please try again.", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}

	s.Responses[q.ID] = entity.ResponseRecord{Answer: resp.Answer, Timestamp: now}
	s.Cursor++
	if err := e.sessions.Put(ctx, s); err != nil {
		return StepResult{}, fmt.Errorf("save session: %w", err)
	}
	e.log.Debug("session.answer.saved", "session_id", sessionID, "question_id", q.ID, "kind", ans.Kind(), "cursor", s.Cursor)
	return StepResult{Message: MsgAnswerSaved, Answer: resp.Answer, Next: e.next(ctx, s)}, nil
}

// SkipQuestion advances past an optional question without recording an answer.
func (e *Engine) SkipQuestion(ctx context.Context, sessionID string) (StepResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return StepResult{}, err
	}
	if s.State() == StateCountryUnset || len(s.Questions) == 0 {
		return StepResult{}, noActiveSession()
	}
	q, ok := s.current()
	if !ok {
		return StepResult{}, common.NewAppError("NO_MORE_QUESTIONS", MsgNoMoreToSkip, common.ErrNoMoreQuestions)
	}
	if q.Required {
		return StepResult{}, common.NewAppError("QUESTION_REQUIRED", MsgCannotSkip, common.ErrQuestionRequired)
	}

	s.Cursor++
	if err := e.sessions.Put(ctx, s); err != nil {
		return StepResult{}, fmt.Errorf("save session: %w", err)
	}
	e.log.Debug("session.skip", "session_id", sessionID, "question_id", q.ID, "cursor", s.Cursor)
	return StepResult{Message: MsgSkipped, Next: e.next(ctx, s)}, nil
}

// Progress reports completion for the session's country.
func (e *Engine) Progress(ctx context.Context, sessionID string) (entity.CompletionReport, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return entity.CompletionReport{}, err
	}
	if s.State() == StateCountryUnset {
		return entity.CompletionReport{}, noActiveSession()
	}
	return e.report(ctx, s), nil
}

// EndSession forgets the session. Stored answers are kept.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	unlock := e.lock(sessionID)
	defer unlock()
	if _, err := e.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	e.log.Info("session.end", "session_id", sessionID)
	return nil
}

// Session returns a copy of the stored session.
func (e *Engine) Session(ctx context.Context, sessionID string) (*Session, error) {
	return e.sessions.Get(ctx, sessionID)
}

func (e *Engine) next(ctx context.Context, s *Session) NextResult {
	q, ok := s.current()
	if !ok {
		rep := e.report(ctx, s)
		return NextResult{Completed: true, Report: &rep, Message: MsgCompleted}
	}
	total := len(s.Questions)
	return NextResult{
		Question: toPayload(q),
		Progress: &Progress{
			Current:    s.Cursor + 1,
			Total:      total,
			Percentage: report.Rate(s.Cursor+1, total),
		},
	}
}

func (e *Engine) report(ctx context.Context, s *Session) entity.CompletionReport {
	responses, err := e.questions.QueryResponses(ctx, s.UserID, s.ID)
	if err != nil {
		e.log.Warn("session.report.local_fallback", "session_id", s.ID, "error", err)
		responses = s.Responses
	}
	return report.Generate(s.UserID, s.ID, s.Country, s.Questions, responses)
}

func (e *Engine) resolveCountry(country string) (string, error) {
	canon, ok := constants.CanonicalCountry(country, e.countries)
	if !ok {
		msg := fmt.Sprintf(msgUnsupportedCntry, strings.TrimSpace(country), strings.Join(e.countries, ", "))
		return "", common.NewAppError("UNSUPPORTED_COUNTRY", msg, common.ErrUnsupportedCountry)
	}
	return canon, nil
}

// loadQuestions returns the servable questions; a store failure yields none.
func (e *Engine) loadQuestions(ctx context.Context, country string) []entity.Question {
	qs, err := e.questions.QueryQuestions(ctx, entity.QuestionFilter{Country: country})
	if err != nil {
		e.log.Error("session.questions.load_failed", "country", country, "error", err)
		return nil
	}
	out := qs[:0:0]
	held := 0
	for _, q := range qs {
		if q.NeedsCuration {
			held++
			continue
		}
		out = append(out, q)
	}
	if held > 0 {
		e.log.Info("session.questions.held_for_curation", "country", country, "count", held)
	}
	return out
}

func noActiveSession() error {
	return common.NewAppError("NO_ACTIVE_SESSION", MsgNoActiveSession, common.ErrNoActiveSession)
}

func toPayload(q entity.Question) *QuestionPayload {
	return &QuestionPayload{
		ID:                q.ID,
		Text:              q.Text,
		Type:              string(q.Type),
		Category:          q.Category,
		Required:          q.Required,
		Options:           q.Options,
		HelpText:          q.HelpText,
		RegulatoryContext: q.RegulatoryContext,
		ComplianceArea:    q.ComplianceArea,
	}
}

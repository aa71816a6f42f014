package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/repository"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func seed(t *testing.T, store repository.QuestionStore, qs ...entity.Question) {
	t.Helper()
	require.NoError(t, store.PutQuestions(context.Background(), qs))
}

func q(id, country string, pos int, qt constants.QuestionType, required bool) entity.Question {
	return entity.Question{
		ID: id, Text: "Question " + id + "?", Type: qt, Country: country,
		Category: constants.DefaultLabel, Required: required, Position: pos,
	}
}

func newTestEngine(store repository.QuestionStore) *Engine {
	return NewEngine(store, NewMemorySessionStore(), nil, nil, WithClock(func() time.Time { return fixedNow }))
}

func TestStartSession_GeneratesID(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())

	res, err := e.StartSession(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.Regexp(t, `^session_20250301_093000_[0-9a-f]{8}$`, res.SessionID)
	assert.Equal(t, MsgSelectCountry, res.Message)
	assert.Equal(t, constants.SupportedCountries, res.Countries)

	other, err := e.StartSession(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, res.SessionID, other.SessionID)

	s, err := e.Session(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StateCountryUnset, s.State())
}

func TestStartSession_Validation(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	ctx := context.Background()

	_, err := e.StartSession(ctx, "", "", "")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = e.StartSession(ctx, "u1", "Atlantis", "")
	require.ErrorIs(t, err, common.ErrUnsupportedCountry)
	assert.Contains(t, common.UserMessage(err), "Country 'Atlantis' not supported")
}

func TestStartSession_CountryIsCanonicalized(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, q("a", "Qatar", 0, constants.YesNo, true))
	e := newTestEngine(store)

	res, err := e.StartSession(context.Background(), "u1", "qatar", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Qatar", res.Country)
	assert.Equal(t, 1, res.TotalQuestions)
	assert.Equal(t, "s1", res.SessionID)
}

func TestNextQuestion_NoCountry(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "", "s1")
	require.NoError(t, err)

	_, err = e.NextQuestion(ctx, "s1")
	require.ErrorIs(t, err, common.ErrNoActiveSession)

	_, err = e.SubmitAnswer(ctx, "s1", "yes")
	require.ErrorIs(t, err, common.ErrNoActiveSession)

	_, err = e.NextQuestion(ctx, "missing")
	require.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestNextQuestion_EmptyCountryCompletes(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Oman", "s1")
	require.NoError(t, err)

	next, err := e.NextQuestion(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, next.Completed)
	require.NotNil(t, next.Report)
	assert.Equal(t, 0.0, next.Report.CompletionRate)
}

func TestSubmitAnswer_InvalidDoesNotAdvance(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store,
		q("a", "Qatar", 0, constants.YesNo, true),
		q("b", "Qatar", 1, constants.Date, true),
	)
	e := newTestEngine(store)
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Qatar", "s1")
	require.NoError(t, err)

	_, err = e.SubmitAnswer(ctx, "s1", "maybe")
	require.ErrorIs(t, err, common.ErrInvalidYesNo)
	s, _ := e.Session(ctx, "s1")
	assert.Equal(t, 0, s.Cursor)
	responses, err := store.QueryResponses(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, responses)

	step, err := e.SubmitAnswer(ctx, "s1", "yes")
	require.NoError(t, err)
	assert.Equal(t, MsgAnswerSaved, step.Message)
	require.NotNil(t, step.Next.Question)
	assert.Equal(t, "b", step.Next.Question.ID)
	assert.Equal(t, &Progress{Current: 2, Total: 2, Percentage: 100}, step.Next.Progress)
	s, _ = e.Session(ctx, "s1")
	assert.Equal(t, 1, s.Cursor)

	_, err = e.SubmitAnswer(ctx, "s1", "2024-13-40")
	require.ErrorIs(t, err, common.ErrInvalidDate)
	s, _ = e.Session(ctx, "s1")
	assert.Equal(t, 1, s.Cursor)
}

func TestSubmitAnswer_PersistsCanonicalForm(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, q("a", "Qatar", 0, constants.YesNo, true))
	e := newTestEngine(store)
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Qatar", "s1")
	require.NoError(t, err)

	step, err := e.SubmitAnswer(ctx, "s1", " Y ")
	require.NoError(t, err)
	assert.Equal(t, "yes", step.Answer)
	assert.True(t, step.Next.Completed)

	responses, err := store.QueryResponses(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, entity.ResponseRecord{Answer: "yes", Timestamp: fixedNow}, responses["a"])

	_, err = e.SubmitAnswer(ctx, "s1", "no")
	require.ErrorIs(t, err, common.ErrNoMoreQuestions)
	assert.Equal(t, MsgNoMoreToAnswer, common.UserMessage(err))
}

func TestSkipQuestion(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store,
		q("a", "Qatar", 0, constants.Text, true),
		q("b", "Qatar", 1, constants.Text, false),
	)
	e := newTestEngine(store)
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Qatar", "s1")
	require.NoError(t, err)

	_, err = e.SkipQuestion(ctx, "s1")
	require.ErrorIs(t, err, common.ErrQuestionRequired)
	assert.Equal(t, MsgCannotSkip, common.UserMessage(err))
	s, _ := e.Session(ctx, "s1")
	assert.Equal(t, 0, s.Cursor)

	_, err = e.SubmitAnswer(ctx, "s1", "done")
	require.NoError(t, err)

	step, err := e.SkipQuestion(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, MsgSkipped, step.Message)
	assert.True(t, step.Next.Completed)
	assert.Equal(t, []string{"b"}, step.Next.Report.MissingQuestions)

	responses, err := store.QueryResponses(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.NotContains(t, responses, "b")

	_, err = e.SkipQuestion(ctx, "s1")
	require.ErrorIs(t, err, common.ErrNoMoreQuestions)
	assert.Equal(t, MsgNoMoreToSkip, common.UserMessage(err))
}

func TestSelectCountry_ResetsCursor(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store,
		q("a", "Qatar", 0, constants.Text, true),
		q("b", "Qatar", 1, constants.Text, true),
		q("c", "Oman", 0, constants.Text, true),
	)
	e := newTestEngine(store)
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Qatar", "s1")
	require.NoError(t, err)
	_, err = e.SubmitAnswer(ctx, "s1", "x")
	require.NoError(t, err)
	_, err = e.SubmitAnswer(ctx, "s1", "y")
	require.NoError(t, err)

	res, err := e.SelectCountry(ctx, "s1", "Oman")
	require.NoError(t, err)
	assert.Equal(t, "Country set to Oman. Found 1 questions.", res.Message)

	next, err := e.NextQuestion(ctx, "s1")
	require.NoError(t, err)
	require.False(t, next.Completed)
	assert.Equal(t, "c", next.Question.ID)

	_, err = e.SelectCountry(ctx, "s1", "Narnia")
	require.ErrorIs(t, err, common.ErrUnsupportedCountry)
}

func TestCurationQuestionsAreNotServed(t *testing.T) {
	store := repository.NewMemoryStore()
	held := q("a", "Qatar", 0, constants.Selection, true)
	held.NeedsCuration = true
	seed(t, store, held, q("b", "Qatar", 1, constants.YesNo, true))
	e := newTestEngine(store)

	res, err := e.StartSession(context.Background(), "u1", "Qatar", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalQuestions)

	next, err := e.NextQuestion(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "b", next.Question.ID)
}

type failingStore struct {
	repository.QuestionStore
	failPut   bool
	failQuery bool
}

func (f *failingStore) PutResponse(ctx context.Context, r entity.UserResponse) error {
	if f.failPut {
		return errors.New("connection reset")
	}
	return f.QuestionStore.PutResponse(ctx, r)
}

func (f *failingStore) QueryResponses(ctx context.Context, userID, sessionID string) (map[string]entity.ResponseRecord, error) {
	if f.failQuery {
		return nil, errors.New("connection reset")
	}
	return f.QuestionStore.QueryResponses(ctx, userID, sessionID)
}

func TestStoreFailures(t *testing.T) {
	mem := repository.NewMemoryStore()
	seed(t, mem,
		q("a", "Qatar", 0, constants.Text, true),
		q("b", "Qatar", 1, constants.Text, true),
	)
	store := &failingStore{QuestionStore: mem}
	e := newTestEngine(store)
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Qatar", "s1")
	require.NoError(t, err)

	store.failPut = true
	_, err = e.SubmitAnswer(ctx, "s1", "x")
	require.ErrorIs(t, err, common.ErrDatabase)
	s, _ := e.Session(ctx, "s1")
	assert.Equal(t, 0, s.Cursor)

	store.failPut = false
	_, err = e.SubmitAnswer(ctx, "s1", "x")
	require.NoError(t, err)

	store.failQuery = true
	rep, err := e.Progress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.AnsweredQuestions)
	assert.Equal(t, 50.0, rep.CompletionRate)
}

func TestEndSession(t *testing.T) {
	e := newTestEngine(repository.NewMemoryStore())
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "", "s1")
	require.NoError(t, err)

	require.NoError(t, e.EndSession(ctx, "s1"))
	_, err = e.NextQuestion(ctx, "s1")
	require.ErrorIs(t, err, common.ErrSessionNotFound)
	require.ErrorIs(t, e.EndSession(ctx, "s1"), common.ErrSessionNotFound)
}

func TestConcurrentSessionsAreIsolated(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store,
		q("a", "Qatar", 0, constants.YesNo, true),
		q("b", "Qatar", 1, constants.YesNo, true),
	)
	e := newTestEngine(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			user := fmt.Sprintf("u%d", i)
			_, err := e.StartSession(ctx, user, "Qatar", id)
			assert.NoError(t, err)
			_, err = e.SubmitAnswer(ctx, id, "yes")
			assert.NoError(t, err)
			_, err = e.SubmitAnswer(ctx, id, "no")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := range 8 {
		rep, err := e.Progress(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		assert.Equal(t, 100.0, rep.CompletionRate)
		assert.Equal(t, fmt.Sprintf("u%d", i), rep.UserID)
	}
	assert.Zero(t, e.locks.len(), "no lock entries outlive their callers")
}

func TestSameSessionCallsAreSerialized(t *testing.T) {
	store := repository.NewMemoryStore()
	const n = 16
	var qs []entity.Question
	for i := range n {
		qs = append(qs, q(fmt.Sprintf("q%02d", i), "Qatar", i, constants.YesNo, true))
	}
	seed(t, store, qs...)
	e := newTestEngine(store)
	ctx := context.Background()
	_, err := e.StartSession(ctx, "u1", "Qatar", "s1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.SubmitAnswer(ctx, "s1", "yes")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rep, err := e.Progress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, n, rep.AnsweredQuestions)
	assert.Zero(t, e.locks.len())
}

func TestEndSessionRacingSubmit(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, q("a", "Qatar", 0, constants.YesNo, true))
	e := newTestEngine(store)
	ctx := context.Background()

	for i := range 20 {
		id := fmt.Sprintf("s%d", i)
		_, err := e.StartSession(ctx, "u1", "Qatar", id)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.SubmitAnswer(ctx, id, "yes")
			if err != nil {
				assert.ErrorIs(t, err, common.ErrSessionNotFound)
			}
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, e.EndSession(ctx, id))
		}()
		wg.Wait()
	}
	assert.Zero(t, e.locks.len())
}

func TestKeyedMutexExcludes(t *testing.T) {
	var k keyedMutex
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("same")
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.len())
}

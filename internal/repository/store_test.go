package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

func openSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "questions.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// storeFactories runs each contract test against every Store implementation.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return openSQLiteStore(t) },
	}
}

func sampleQuestions() []entity.Question {
	return []entity.Question{
		{ID: "b", Text: "Was the site visit performed?", Type: constants.YesNo, Category: "Site Visitation", Country: "Oman", Required: true, Position: 1},
		{ID: "a", Text: "Please select the entity type", Type: constants.Selection, Category: "Entity Structure", Country: "Oman", Required: true, Options: []string{"LLC", "PLC"}, Position: 0},
		{ID: "c", Text: "Number of staff", Type: constants.Numeric, Category: "Staffing", Country: "Oman", Required: false, NeedsCuration: true, Position: 2},
		{ID: "d", Text: "Was the site visit performed?", Type: constants.YesNo, Category: "Site Visitation", Country: "Qatar", Required: true, Position: 0},
	}
}

func TestStoreQuestions(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.PutQuestions(ctx, sampleQuestions()))

			got, err := s.QueryQuestions(ctx, entity.QuestionFilter{Country: "Oman"})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
			assert.Equal(t, []string{"LLC", "PLC"}, got[0].Options)
			assert.Nil(t, got[1].Options)
			assert.False(t, got[2].Required)
			assert.True(t, got[2].NeedsCuration)
			assert.Equal(t, constants.Numeric, got[2].Type)

			staff, err := s.QueryQuestions(ctx, entity.QuestionFilter{Country: "Oman", Category: "Staffing"})
			require.NoError(t, err)
			require.Len(t, staff, 1)
			assert.Equal(t, "c", staff[0].ID)

			q, err := s.GetQuestion(ctx, "d")
			require.NoError(t, err)
			assert.Equal(t, "Qatar", q.Country)

			_, err = s.GetQuestion(ctx, "missing")
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestStorePutQuestionsIsIdempotent(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			require.NoError(t, s.PutQuestions(ctx, sampleQuestions()))

			updated := sampleQuestions()
			updated[1].Options = []string{"LLC", "PLC", "Branch"}
			updated[1].NeedsCuration = false
			require.NoError(t, s.PutQuestions(ctx, updated))

			got, err := s.QueryQuestions(ctx, entity.QuestionFilter{Country: "Oman"})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"LLC", "PLC", "Branch"}, got[0].Options)

			qn, _, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, qn)
		})
	}
}

func TestStorePutQuestionsKeepsCuration(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			raw := entity.Question{ID: "s", Text: "Please select the licence type", Type: constants.Selection, Country: "Oman", NeedsCuration: true}
			require.NoError(t, s.PutQuestions(ctx, []entity.Question{raw}))

			curated := raw
			curated.Options = []string{"A", "B"}
			curated.NeedsCuration = false
			require.NoError(t, s.PutQuestions(ctx, []entity.Question{curated}))

			again := raw
			again.Category = "Documentation"
			require.NoError(t, s.PutQuestions(ctx, []entity.Question{again}))

			got, err := s.GetQuestion(ctx, "s")
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B"}, got.Options)
			assert.False(t, got.NeedsCuration)
			assert.Equal(t, "Documentation", got.Category, "other columns still follow the latest extraction")
		})
	}
}

func TestStoreResponses(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

			put := func(session, qid, answer string, at time.Time) {
				require.NoError(t, s.PutResponse(ctx, entity.UserResponse{
					UserID: "u1", QuestionID: qid, SessionID: session, Answer: answer,
					AnswerKind: "bool", Timestamp: at, Confidence: entity.DefaultConfidence,
				}))
			}
			put("s1", "q1", "yes", t0)
			put("s1", "q1", "no", t0.Add(time.Minute)) // overwrite same triple
			put("s1", "q2", "2024-01-31", t0.Add(2*time.Minute))
			put("s2", "q1", "yes", t0.Add(time.Hour))
			require.NoError(t, s.PutResponse(ctx, entity.UserResponse{UserID: "u2", QuestionID: "q1", SessionID: "s1", Answer: "no", Timestamp: t0}))

			s1, err := s.QueryResponses(ctx, "u1", "s1")
			require.NoError(t, err)
			require.Len(t, s1, 2)
			assert.Equal(t, "no", s1["q1"].Answer)
			assert.True(t, s1["q1"].Timestamp.Equal(t0.Add(time.Minute)))

			all, err := s.QueryResponses(ctx, "u1", "")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "yes", all["q1"].Answer, "latest session wins")

			none, err := s.QueryResponses(ctx, "nobody", "")
			require.NoError(t, err)
			assert.Empty(t, none)

			_, rn, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, rn)
		})
	}
}

func TestStoreUploadJobs(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			first, err := s.StartJob(ctx, "/in/a.pdf", constants.PDF)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
			second, err := s.StartJob(ctx, "/in/b.txt", constants.TXT)
			require.NoError(t, err)

			require.NoError(t, s.FinishJob(ctx, first.ID, JobOutcome{
				Status: string(constants.JobStatusOK), Country: "Oman", Pages: 2, TotalQuestions: 7,
			}))
			require.NoError(t, s.FinishJob(ctx, second.ID, JobOutcome{
				Status: string(constants.JobStatusFailed), ErrorMessage: "document could not be read",
			}))
			assert.ErrorIs(t, s.FinishJob(ctx, uuid.New(), JobOutcome{Status: "OK"}), common.ErrNotFound)

			jobs, err := s.ListJobs(ctx, 10)
			require.NoError(t, err)
			require.Len(t, jobs, 2)
			assert.Equal(t, second.ID, jobs[0].ID)
			assert.Nil(t, jobs[0].Country)
			require.NotNil(t, jobs[0].ErrorMessage)
			assert.Equal(t, "document could not be read", *jobs[0].ErrorMessage)

			assert.Equal(t, string(constants.JobStatusOK), jobs[1].Status)
			require.NotNil(t, jobs[1].Country)
			assert.Equal(t, "Oman", *jobs[1].Country)
			assert.Equal(t, 7, jobs[1].TotalQuestions)
			assert.NotNil(t, jobs[1].FinishedAt)

			limited, err := s.ListJobs(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestMigrateIsRerunnable(t *testing.T) {
	s := openSQLiteStore(t)
	require.NoError(t, Migrate(context.Background(), s.drv, nil))
	require.NoError(t, s.HealthCheck(context.Background(), time.Second))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	assert.Error(t, err)
}

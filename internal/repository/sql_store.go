package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

const (
	tableQuestions  = "questions"
	tableResponses  = "responses"
	tableUploadJobs = "upload_jobs"

	insertBatchSize = 200
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var questionColumns = []string{
	"id", "text", "type", "category", "country", "required", "options",
	"help_text", "regulatory_context", "compliance_area", "needs_curation",
	"position", "created_at",
}

var jobColumns = []string{
	"id", "source_path", "format", "status", "country", "pages",
	"fallback_pages", "total_questions", "error_message", "started_at", "finished_at",
}

// SQLStore implements Store over the ent SQL driver for Postgres and SQLite.
type SQLStore struct {
	drv  *entsql.Driver
	pool *pgxpool.Pool
	log  *slog.Logger
	now  func() time.Time
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open driver. pool may be nil (SQLite).
func NewSQLStore(drv *entsql.Driver, pool *pgxpool.Pool, log *slog.Logger) *SQLStore {
	if log == nil {
		log = slog.Default()
	}
	return &SQLStore{drv: drv, pool: pool, log: log, now: time.Now}
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *SQLStore) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	res, err := s.drv.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return res, nil
}

func (s *SQLStore) PutQuestions(ctx context.Context, qs []entity.Question) error {
	qs = dedupByID(qs)
	now := formatTime(s.now())
	for start := 0; start < len(qs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(qs))
		ins := s.builder().Insert(tableQuestions).Columns(questionColumns...)
		for _, q := range qs[start:end] {
			created := now
			if !q.CreatedAt.IsZero() {
				created = formatTime(q.CreatedAt)
			}
			ins.Values(q.ID, q.Text, string(q.Type), q.Category, q.Country, q.Required,
				optionsValue(q.Options), q.HelpText, q.RegulatoryContext, q.ComplianceArea,
				q.NeedsCuration, q.Position, created)
		}
		ins.OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				// created_at keeps the first upload's value
				for _, c := range questionColumns {
					switch c {
					case "id", "created_at":
					case "options", "needs_curation":
						u.Set(c, keepCurated(u, c))
					default:
						u.SetExcluded(c)
					}
				}
			}),
		)
		query, args := ins.Query()
		if _, err := s.exec(ctx, query, args); err != nil {
			s.log.Error("db.questions.put_failed", "count", end-start, "error", err)
			return err
		}
	}
	s.log.Debug("db.questions.put", "count", len(qs))
	return nil
}

func (s *SQLStore) QueryQuestions(ctx context.Context, f entity.QuestionFilter) ([]entity.Question, error) {
	b := s.builder()
	sel := b.Select(questionColumns...).From(b.Table(tableQuestions))
	if f.Country != "" {
		sel.Where(entsql.EQ("country", f.Country))
	}
	if f.Category != "" {
		sel.Where(entsql.EQ("category", f.Category))
	}
	sel.OrderBy("position", "id").Limit(QueryLimit)

	query, args := sel.Query()
	rows, err := s.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (entity.Question, error) {
	b := s.builder()
	query, args := b.Select(questionColumns...).
		From(b.Table(tableQuestions)).
		Where(entsql.EQ("id", id)).
		Query()
	q, err := scanQuestion(s.drv.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Question{}, fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}
	return q, err
}

func (s *SQLStore) PutResponse(ctx context.Context, r entity.UserResponse) error {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	query, args := s.builder().
		Insert(tableResponses).
		Columns("user_id", "question_id", "session_id", "answer", "answer_kind", "confidence", "answered_at").
		Values(r.UserID, r.QuestionID, r.SessionID, r.Answer, r.AnswerKind, r.Confidence, formatTime(ts)).
		OnConflict(
			entsql.ConflictColumns("user_id", "question_id", "session_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := s.exec(ctx, query, args); err != nil {
		s.log.Error("db.responses.put_failed",
			"user_id", r.UserID, "session_id", r.SessionID, "question_id", r.QuestionID, "error", err)
		return err
	}
	return nil
}

func (s *SQLStore) QueryResponses(ctx context.Context, userID, sessionID string) (map[string]entity.ResponseRecord, error) {
	b := s.builder()
	sel := b.Select("question_id", "answer", "answered_at").
		From(b.Table(tableResponses)).
		Where(entsql.EQ("user_id", userID))
	if sessionID != "" {
		sel.Where(entsql.EQ("session_id", sessionID))
	}
	sel.OrderBy("answered_at")

	query, args := sel.Query()
	rows, err := s.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := map[string]entity.ResponseRecord{}
	for rows.Next() {
		var qid, answer, at string
		if err := rows.Scan(&qid, &answer, &at); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		ts, _ := parseTime(at)
		// ascending order, so later rows overwrite earlier sessions
		out[qid] = entity.ResponseRecord{Answer: answer, Timestamp: ts}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *SQLStore) StartJob(ctx context.Context, sourcePath, format string) (entity.UploadJob, error) {
	job := entity.UploadJob{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Format:     format,
		Status:     string(constants.JobStatusRunning),
		StartedAt:  s.now().UTC(),
	}
	query, args := s.builder().
		Insert(tableUploadJobs).
		Columns("id", "source_path", "format", "status", "started_at").
		Values(job.ID.String(), job.SourcePath, job.Format, job.Status, formatTime(job.StartedAt)).
		Query()
	if _, err := s.exec(ctx, query, args); err != nil {
		s.log.Error("upload_job start failed", "path", sourcePath, "err", err)
		return entity.UploadJob{}, err
	}
	s.log.Info("upload_job started", "job_id", job.ID, "path", sourcePath, "format", format)
	return job, nil
}

func (s *SQLStore) FinishJob(ctx context.Context, id uuid.UUID, out JobOutcome) error {
	query, args := s.builder().
		Update(tableUploadJobs).
		Set("status", out.Status).
		Set("country", nullable(out.Country)).
		Set("pages", out.Pages).
		Set("fallback_pages", out.FallbackPages).
		Set("total_questions", out.TotalQuestions).
		Set("error_message", nullable(out.ErrorMessage)).
		Set("finished_at", formatTime(s.now())).
		Where(entsql.EQ("id", id.String())).
		Query()
	res, err := s.exec(ctx, query, args)
	if err != nil {
		s.log.Error("upload_job finish failed", "job_id", id, "err", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("upload job %s: %w", id, common.ErrNotFound)
	}
	s.log.Info("upload_job finished", "job_id", id, "status", out.Status, "questions", out.TotalQuestions)
	return nil
}

func (s *SQLStore) ListJobs(ctx context.Context, limit int) ([]entity.UploadJob, error) {
	if limit <= 0 {
		limit = 50
	}
	b := s.builder()
	query, args := b.Select(jobColumns...).
		From(b.Table(tableUploadJobs)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()
	rows, err := s.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.UploadJob
	for rows.Next() {
		var (
			j               entity.UploadJob
			id, started     string
			country, errMsg sql.NullString
			finished        sql.NullString
		)
		if err := rows.Scan(&id, &j.SourcePath, &j.Format, &j.Status, &country, &j.Pages,
			&j.FallbackPages, &j.TotalQuestions, &errMsg, &started, &finished); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		j.ID, _ = uuid.Parse(id)
		j.StartedAt, _ = parseTime(started)
		if country.Valid {
			j.Country = &country.String
		}
		if errMsg.Valid {
			j.ErrorMessage = &errMsg.String
		}
		if finished.Valid {
			if t, err := parseTime(finished.String); err == nil {
				j.FinishedAt = &t
			}
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Counts returns the number of stored questions and responses.
func (s *SQLStore) Counts(ctx context.Context) (int, int, error) {
	count := func(table string) (int, error) {
		b := s.builder()
		query, args := b.Select(entsql.Count("*")).From(b.Table(table)).Query()
		var n int
		if err := s.drv.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("%w: count %s: %v", common.ErrDatabase, table, err)
		}
		return n, nil
	}
	qn, err := count(tableQuestions)
	if err != nil {
		return 0, 0, err
	}
	rn, err := count(tableResponses)
	if err != nil {
		return 0, 0, err
	}
	return qn, rn, nil
}

// HealthCheck pings the database.
func (s *SQLStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	s.log.Debug("pinging database")
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.drv.DB().PingContext(ctx)
}

// Close closes the driver and, for Postgres, the pool behind it.
func (s *SQLStore) Close() error {
	s.log.Info("closing database connections")
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(r rowScanner) (entity.Question, error) {
	var (
		q           entity.Question
		qt, created string
		options     sql.NullString
	)
	err := r.Scan(&q.ID, &q.Text, &qt, &q.Category, &q.Country, &q.Required, &options,
		&q.HelpText, &q.RegulatoryContext, &q.ComplianceArea, &q.NeedsCuration, &q.Position, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return q, err
	}
	if err != nil {
		return q, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	q.Type = constants.QuestionType(qt)
	q.CreatedAt, _ = parseTime(created)
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &q.Options); err != nil {
			return q, fmt.Errorf("%w: decode options for %s: %v", common.ErrDatabase, q.ID, err)
		}
	}
	return q, nil
}

// keepCurated keeps the stored column when a curated row (options set,
// needs_curation false) meets an incoming row that still needs curation.
func keepCurated(u *entsql.UpdateSet, column string) entsql.Querier {
	cur := u.Table()
	ex := entsql.Dialect(u.Dialect()).Table("excluded")
	return entsql.Expr(fmt.Sprintf(
		"CASE WHEN %s AND NOT %s AND %s IS NOT NULL THEN %s ELSE %s END",
		ex.C("needs_curation"), cur.C("needs_curation"), cur.C("options"),
		cur.C(column), ex.C(column),
	))
}

func optionsValue(opts []string) any {
	if len(opts) == 0 {
		return nil
	}
	b, _ := json.Marshal(opts)
	return string(b)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// dedupByID keeps the last question per id, in first-seen position.
func dedupByID(qs []entity.Question) []entity.Question {
	idx := make(map[string]int, len(qs))
	out := make([]entity.Question, 0, len(qs))
	for _, q := range qs {
		if i, ok := idx[q.ID]; ok {
			out[i] = q
			continue
		}
		idx[q.ID] = len(out)
		out = append(out, q)
	}
	return out
}

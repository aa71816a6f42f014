// Package questionnaire is the public operations surface: uploading documents
// into the question bank, listing and curating questions, and reporting.
package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/filter"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/ingest"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/pipeline"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/report"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/repository"
)

// MsgNoQuestions is returned when a document yields nothing.
const MsgNoQuestions = "No questions could be extracted from the PDF"

// Extractor turns a document into questions.
type Extractor interface {
	Extract(ctx context.Context, path string) (pipeline.Result, error)
}

// Service handles question bank business logic.
type Service struct {
	extractor Extractor
	store     repository.Store
	countries []string
	logger    *slog.Logger
}

// NewService creates a new questionnaire service. Empty countries means constants.SupportedCountries.
func NewService(extractor Extractor, store repository.Store, countries []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(countries) == 0 {
		countries = constants.SupportedCountries
	}
	return &Service{extractor: extractor, store: store, countries: countries, logger: logger}
}

// Countries lists the supported countries.
func (s *Service) Countries() []string {
	return append([]string(nil), s.countries...)
}

// Upload extracts the document at path into the question bank. Failures are
// reported in the summary, never as an error.
func (s *Service) Upload(ctx context.Context, path string) entity.UploadSummary {
	start := time.Now()
	path = strings.TrimSpace(path)
	format := constants.MapExtToFormat(filepath.Ext(path))
	if path == "" || format == "" {
		s.logger.Warn("questionnaire.upload.unsupported", "path", path)
		return entity.UploadSummary{Message: fmt.Sprintf("Unsupported document %q. Allowed types: pdf, txt, png, jpg, jpeg, tif, tiff", path)}
	}

	jobID := uuid.Nil
	if job, err := s.store.StartJob(ctx, path, format); err != nil {
		s.logger.Warn("questionnaire.upload.job_start_failed", "path", path, "error", err)
	} else {
		jobID = job.ID
	}
	finish := func(out repository.JobOutcome) {
		if jobID == uuid.Nil {
			return
		}
		if err := s.store.FinishJob(ctx, jobID, out); err != nil {
			s.logger.Warn("questionnaire.upload.job_finish_failed", "job_id", jobID, "error", err)
		}
	}

	s.logger.Info("questionnaire.upload.start", "path", path, "format", format, "job_id", jobID)
	res, err := s.extractor.Extract(ctx, path)
	if err != nil {
		s.logger.Error("questionnaire.upload.extract_failed", "path", path, "job_id", jobID, "error", err)
		finish(repository.JobOutcome{Status: string(constants.JobStatusFailed), ErrorMessage: err.Error()})
		return entity.UploadSummary{JobID: jobID, Message: fmt.Sprintf("Error processing document: %v", err)}
	}

	out := repository.JobOutcome{
		Country:        res.Country,
		Pages:          res.Pages,
		FallbackPages:  res.OracleFallbackPages,
		TotalQuestions: len(res.Questions),
	}
	if len(res.Questions) == 0 {
		out.Status = string(constants.JobStatusEmpty)
		finish(out)
		s.logger.Info("questionnaire.upload.empty", "path", path, "job_id", jobID, "pages", res.Pages)
		return entity.UploadSummary{JobID: jobID, Country: res.Country, Message: MsgNoQuestions}
	}

	if err := s.store.PutQuestions(ctx, res.Questions); err != nil {
		s.logger.Error("questionnaire.upload.store_failed", "path", path, "job_id", jobID, "error", err)
		out.Status = string(constants.JobStatusFailed)
		out.ErrorMessage = err.Error()
		finish(out)
		return entity.UploadSummary{JobID: jobID, Country: res.Country, Message: fmt.Sprintf("Error storing questions: %v", err)}
	}

	sum := entity.UploadSummary{
		Success:        true,
		Country:        res.Country,
		TotalQuestions: len(res.Questions),
		Categories:     map[string]int{},
		JobID:          jobID,
		Message:        fmt.Sprintf("Successfully uploaded %d questions for %s", len(res.Questions), res.Country),
	}
	for _, q := range res.Questions {
		sum.Categories[q.Category]++
		if q.NeedsCuration {
			sum.NeedsCuration++
		}
	}
	out.Status = string(constants.JobStatusOK)
	finish(out)
	s.logger.Info("questionnaire.upload.ok",
		"path", path,
		"job_id", jobID,
		"country", res.Country,
		"questions", sum.TotalQuestions,
		"needs_curation", sum.NeedsCuration,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sum
}

// DirectoryResult is the outcome of uploading every document under a directory.
type DirectoryResult struct {
	Stats     ingest.DirStats
	Summaries []entity.UploadSummary
	Succeeded int
}

// UploadDirectory uploads each document found under root, one at a time.
func (s *Service) UploadDirectory(ctx context.Context, root string, opts ingest.WalkOptions) (DirectoryResult, error) {
	paths, stats, err := ingest.Walk(root, opts)
	if err != nil {
		return DirectoryResult{}, common.NewAppError("INVALID_INPUT", err.Error(), common.ErrInvalidInput)
	}
	res := DirectoryResult{Stats: stats}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sum := s.Upload(ctx, p)
		if sum.Success {
			res.Succeeded++
		}
		res.Summaries = append(res.Summaries, sum)
	}
	s.logger.Info("questionnaire.upload_dir.done", "root", root, "matched", stats.Matched, "succeeded", res.Succeeded)
	return res, nil
}

// ListQuestions returns a country's questions, optionally narrowed by category
// and an AIP-160 filter expression.
func (s *Service) ListQuestions(ctx context.Context, country, category, filterExpr string) ([]entity.Question, error) {
	f, err := filter.Parse(filterExpr)
	if err != nil {
		return nil, common.NewAppError("INVALID_FILTER", err.Error(), err)
	}
	if country != "" {
		if country, err = s.resolveCountry(country); err != nil {
			return nil, err
		}
	}
	qs, err := s.store.QueryQuestions(ctx, entity.QuestionFilter{Country: country, Category: strings.TrimSpace(category)})
	if err != nil {
		s.logger.Error("questionnaire.list.failed", "country", country, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return f.Apply(qs), nil
}

// CurateQuestion sets the options of a selection question and releases it to sessions.
func (s *Service) CurateQuestion(ctx context.Context, id string, options []string) (entity.Question, error) {
	q, err := s.store.GetQuestion(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return entity.Question{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("Question %s not found.", id), err)
		}
		return entity.Question{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if !q.Type.HasOptions() {
		return entity.Question{}, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("Only selection questions take options; %s is %s.", q.ID, q.Type), common.ErrInvalidInput)
	}

	var cleaned []string
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" && !slices.Contains(cleaned, o) {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return entity.Question{}, common.NewAppError("INVALID_INPUT", "At least one option is required.", common.ErrInvalidInput)
	}

	q.Options = cleaned
	q.NeedsCuration = false
	if err := s.store.PutQuestions(ctx, []entity.Question{q}); err != nil {
		return entity.Question{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	s.logger.Info("questionnaire.curate.ok", "question_id", q.ID, "options", len(cleaned))
	return q, nil
}

// Report builds a completion report from stored answers. An empty sessionID
// covers all of the user's sessions. Questions awaiting curation are left out.
func (s *Service) Report(ctx context.Context, userID, sessionID, country string) (entity.CompletionReport, error) {
	if strings.TrimSpace(userID) == "" {
		return entity.CompletionReport{}, common.NewAppError("INVALID_INPUT", "user_id is required", common.ErrInvalidInput)
	}
	country, err := s.resolveCountry(country)
	if err != nil {
		return entity.CompletionReport{}, err
	}
	qs, err := s.servable(ctx, country)
	if err != nil {
		return entity.CompletionReport{}, err
	}
	responses, err := s.store.QueryResponses(ctx, userID, sessionID)
	if err != nil {
		return entity.CompletionReport{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return report.Generate(userID, sessionID, country, qs, responses), nil
}

// Responses returns the stored answers behind Report.
func (s *Service) Responses(ctx context.Context, userID, sessionID string) (map[string]entity.ResponseRecord, error) {
	out, err := s.store.QueryResponses(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

// Jobs lists recent uploads, newest first.
func (s *Service) Jobs(ctx context.Context, limit int) ([]entity.UploadJob, error) {
	jobs, err := s.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return jobs, nil
}

func (s *Service) servable(ctx context.Context, country string) ([]entity.Question, error) {
	qs, err := s.store.QueryQuestions(ctx, entity.QuestionFilter{Country: country})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return slices.DeleteFunc(qs, func(q entity.Question) bool { return q.NeedsCuration }), nil
}

// resolveCountry accepts supported countries and the Unknown bucket.
func (s *Service) resolveCountry(country string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(country), constants.UnknownCountry) {
		return constants.UnknownCountry, nil
	}
	canon, ok := constants.CanonicalCountry(country, s.countries)
	if !ok {
		msg := fmt.Sprintf("Country '%s' not supported. Available countries: %s", strings.TrimSpace(country), strings.Join(s.countries, ", "))
		return "", common.NewAppError("UNSUPPORTED_COUNTRY", msg, common.ErrUnsupportedCountry)
	}
	return canon, nil
}

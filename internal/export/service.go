// Package export renders the question bank and session reports as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

// Source is the read side of the questionnaire service.
type Source interface {
	ListQuestions(ctx context.Context, country, category, filterExpr string) ([]entity.Question, error)
	Report(ctx context.Context, userID, sessionID, country string) (entity.CompletionReport, error)
	Responses(ctx context.Context, userID, sessionID string) (map[string]entity.ResponseRecord, error)
}

// Service produces XLSX bytes for exports.
type Service struct {
	src    Source
	logger *slog.Logger
}

func NewService(src Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, logger: logger}
}

const (
	SheetQuestions = "Questions"
	SheetResponses = "Responses"
	SheetSummary   = "Summary"
)

var questionHeaders = []string{
	"ID", "Position", "Category", "Type", "Required", "Question",
	"Options", "Help Text", "Regulatory Context", "Compliance Area", "Needs Curation",
}

// QuestionsXLSX returns one sheet listing every stored question for country.
func (s *Service) QuestionsXLSX(ctx context.Context, country string) ([]byte, error) {
	start := time.Now()
	qs, err := s.src.ListQuestions(ctx, country, "", "")
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetQuestions); err != nil {
		return nil, err
	}
	writeQuestions(f, qs)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.questions.ok", "country", country, "rows", len(qs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// SessionReportXLSX returns the served questions, the user's answers and the
// per-category completion summary.
func (s *Service) SessionReportXLSX(ctx context.Context, userID, sessionID, country string) ([]byte, error) {
	start := time.Now()
	rep, err := s.src.Report(ctx, userID, sessionID, country)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	qs, err := s.src.ListQuestions(ctx, rep.Country, "", "needs_curation = false")
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	responses, err := s.src.Responses(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetQuestions); err != nil {
		return nil, err
	}
	writeQuestions(f, qs)
	for _, name := range []string{SheetResponses, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writeRow(f, SheetResponses, 1, "Question ID", "Question", "Answer", "Answered At")
	row := 2
	for _, q := range qs {
		r, ok := responses[q.ID]
		if !ok {
			continue
		}
		writeRow(f, SheetResponses, row, q.ID, q.Text, r.Answer, r.Timestamp.UTC().Format(time.RFC3339))
		row++
	}
	_ = f.SetColWidth(SheetResponses, "A", "A", 34)
	_ = f.SetColWidth(SheetResponses, "B", "B", 60)
	_ = f.SetColWidth(SheetResponses, "C", "D", 24)

	writeRow(f, SheetSummary, 1, "User", rep.UserID)
	writeRow(f, SheetSummary, 2, "Session", rep.SessionID)
	writeRow(f, SheetSummary, 3, "Country", rep.Country)
	writeRow(f, SheetSummary, 4, "Answered", rep.AnsweredQuestions, "of", rep.TotalQuestions)
	writeRow(f, SheetSummary, 5, "Completion %", round1(rep.CompletionRate))
	writeRow(f, SheetSummary, 7, "Category", "Total", "Answered", "Completion %")
	for i, c := range rep.CategoryStats {
		writeRow(f, SheetSummary, 8+i, c.Category, c.Total, c.Answered, round1(c.CompletionRate))
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 26)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.report.ok",
		"user_id", userID,
		"session_id", sessionID,
		"country", rep.Country,
		"answered", rep.AnsweredQuestions,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeQuestions(f *excelize.File, qs []entity.Question) {
	headers := make([]any, len(questionHeaders))
	for i, h := range questionHeaders {
		headers[i] = h
	}
	writeRow(f, SheetQuestions, 1, headers...)
	for i, q := range qs {
		writeRow(f, SheetQuestions, i+2,
			q.ID, q.Position, q.Category, string(q.Type), yesNo(q.Required), q.Text,
			strings.Join(q.Options, "; "), q.HelpText, q.RegulatoryContext, q.ComplianceArea, yesNo(q.NeedsCuration),
		)
	}
	_ = f.SetColWidth(SheetQuestions, "A", "A", 34) // id
	_ = f.SetColWidth(SheetQuestions, "C", "D", 20)
	_ = f.SetColWidth(SheetQuestions, "F", "F", 70) // question
	_ = f.SetColWidth(SheetQuestions, "G", "J", 28)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

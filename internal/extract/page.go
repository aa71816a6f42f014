package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/classify"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

// PageExtractor turns one page of text into question descriptors. It asks the
// oracle first and falls back to the line heuristics when the oracle is absent,
// fails, or returns output that does not parse.
type PageExtractor struct {
	oracle llm.Oracle
	logger *slog.Logger
}

// NewPageExtractor accepts a nil oracle, in which case every page uses the heuristics.
func NewPageExtractor(oracle llm.Oracle, logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageExtractor{oracle: oracle, logger: logger}
}

func (p *PageExtractor) ExtractPage(ctx context.Context, in PageInput) PageResult {
	if p.oracle == nil {
		return p.heuristic(in, nil)
	}

	start := time.Now()
	raw, err := p.oracle.Complete(ctx, llm.CompletionRequest{
		System: llm.BuildExtractionSystemPrompt(),
		User:   llm.BuildPageUserPrompt(in.Text, in.Country, in.PageNum),
		JSON:   true,
	})
	if err != nil {
		if !errors.Is(err, common.ErrOracleFailure) {
			err = fmt.Errorf("%w: %v", common.ErrOracleFailure, err)
		}
		return p.heuristic(in, err)
	}

	descs, err := llm.ParseQuestionDescriptors(raw, p.logger)
	if err != nil {
		return p.heuristic(in, err)
	}

	p.logger.Debug("extract.page.oracle_ok",
		"page", in.PageNum,
		"questions", len(descs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return PageResult{Descriptors: descs, Source: llm.SourceOracle}
}

func (p *PageExtractor) heuristic(in PageInput, cause error) PageResult {
	descs := classify.ScanLines(in.Text)
	if cause != nil {
		p.logger.Warn("extract.page.fallback",
			"page", in.PageNum,
			"reason", cause.Error(),
			"heuristic_questions", len(descs),
		)
	}
	return PageResult{Descriptors: descs, Source: llm.SourceHeuristic, Err: cause}
}

// Package pipeline turns a questionnaire document into an ordered, deduplicated
// list of questions labelled with the document's country.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/extract"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

var tracer = otel.Tracer("github.com/joseph-ayodele/questionnaire-tracker/internal/pipeline")

type Config struct {
	PageConcurrency    int      // default 4
	CountryPromptChars int      // default 2000
	Countries          []string // default constants.SupportedCountries
}

// Result is the outcome of one extraction run.
type Result struct {
	Country   string
	Questions []entity.Question
	Pages     int
	// OracleFallbackPages counts non-blank pages whose questions came from the
	// heuristics: the oracle was absent, failed, or returned unusable output.
	OracleFallbackPages int
	SourceType          string
}

type Pipeline struct {
	cfg    Config
	reader extract.PageReader
	pages  *extract.PageExtractor
	oracle llm.Oracle
	log    *slog.Logger
}

// NewPipeline wires the document reader and the oracle. A nil oracle runs
// the whole document on heuristics.
func NewPipeline(cfg Config, reader extract.PageReader, oracle llm.Oracle, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	if cfg.CountryPromptChars <= 0 {
		cfg.CountryPromptChars = 2000
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = constants.SupportedCountries
	}
	return &Pipeline{
		cfg:    cfg,
		reader: reader,
		pages:  extract.NewPageExtractor(oracle, log),
		oracle: oracle,
		log:    log,
	}
}

// Extract reads the document at path and returns its questions. Only a failure
// to read the document is returned as an error; it wraps common.ErrExtractionFailure.
func (p *Pipeline) Extract(ctx context.Context, path string) (Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("document.path", path))
	start := time.Now()

	doc, err := p.reader.ReadPages(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read pages")
		p.log.Error("pipeline.read.failed", "path", path, "error", err)
		if !isExtractionFailure(err) {
			err = fmt.Errorf("%w: %v", common.ErrExtractionFailure, err)
		}
		return Result{}, err
	}

	res := Result{Pages: len(doc.Pages), SourceType: doc.SourceType}
	if len(doc.Pages) == 0 {
		res.Country = constants.UnknownCountry
		return res, nil
	}

	res.Country = extract.DetectCountry(ctx, p.oracle, strings.Join(doc.Pages, " "),
		p.cfg.Countries, p.cfg.CountryPromptChars, p.log)
	span.SetAttributes(attribute.String("document.country", res.Country))

	perPage := make([]extract.PageResult, len(doc.Pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PageConcurrency)
	for i, text := range doc.Pages {
		g.Go(func() error {
			if strings.TrimSpace(text) == "" {
				// blank pages have nothing to extract and count as neither source
				return nil
			}
			perPage[i] = p.pages.ExtractPage(gctx, extract.PageInput{
				Text:    text,
				Country: res.Country,
				PageNum: i + 1,
			})
			return nil
		})
	}
	_ = g.Wait() // page failures are carried in PageResult.Err

	var all []llm.QuestionDescriptor
	for _, pr := range perPage {
		if pr.Source == llm.SourceHeuristic {
			res.OracleFallbackPages++
		}
		all = append(all, pr.Descriptors...)
	}

	res.Questions = Normalize(all, res.Country, p.log)
	span.SetAttributes(
		attribute.Int("document.pages", res.Pages),
		attribute.Int("document.questions", len(res.Questions)),
		attribute.Int("document.fallback_pages", res.OracleFallbackPages),
	)
	p.log.Info("pipeline.extract.ok",
		"path", path,
		"country", res.Country,
		"pages", res.Pages,
		"questions", len(res.Questions),
		"fallback_pages", res.OracleFallbackPages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

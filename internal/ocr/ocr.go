package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit
}

// PagesResult is the ordered page text of one document.
type PagesResult struct {
	Pages      []string
	SourceType string // constants.PDF | constants.IMAGE | constants.TXT
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text"
	Duration   time.Duration
	Warnings   []string
}

// Text joins all pages with a single space, the form used for country detection.
func (r PagesResult) Text() string {
	return strings.Join(r.Pages, " ")
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewExtractorWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewExtractorWithRunner is NewExtractor with an explicit command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// ExtractPages picks a strategy based on file extension. Every error wraps
// common.ErrExtractionFailure.
func (e *Extractor) ExtractPages(ctx context.Context, path string) (PagesResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext)

	if _, err := os.Stat(path); err != nil {
		return PagesResult{}, fmt.Errorf("%w: %v", common.ErrExtractionFailure, err)
	}

	var (
		res PagesResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	case constants.TXT:
		res, err = e.extractPlain(path)
	default:
		e.logger.Error("ocr.extract.unsupported", "path", path, "ext", ext)
		return PagesResult{}, fmt.Errorf("%w: unsupported extension %q", common.ErrExtractionFailure, ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.extract.failed", "path", path, "method", res.Method, "error", err)
		return res, fmt.Errorf("%w: %v", common.ErrExtractionFailure, err)
	}

	for i := range res.Pages {
		res.Pages[i] = Normalize(res.Pages[i])
	}
	if e.cfg.MaxPages > 0 && len(res.Pages) > e.cfg.MaxPages {
		res.Pages = res.Pages[:e.cfg.MaxPages]
	}
	e.logger.Info("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", len(res.Pages),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPlain(path string) (PagesResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PagesResult{SourceType: constants.TXT, Method: "plain-text"}, err
	}
	return PagesResult{
		Pages:      splitPages(string(raw)),
		SourceType: constants.TXT,
		Method:     "plain-text",
	}, nil
}

// splitPages splits on form feed and drops one trailing empty page.
func splitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

func allBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

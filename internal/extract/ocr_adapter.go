package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/ocr"
)

// OCRAdapter serves PageReader from the local OCR toolchain.
type OCRAdapter struct {
	e   *ocr.Extractor
	log *slog.Logger
}

var _ PageReader = (*OCRAdapter)(nil)

func NewOCRAdapter(e *ocr.Extractor, log *slog.Logger) *OCRAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &OCRAdapter{e: e, log: log}
}

func (a *OCRAdapter) ReadPages(ctx context.Context, path string) (PagesResult, error) {
	r, err := a.e.ExtractPages(ctx, path)
	if err != nil {
		return PagesResult{}, err
	}
	for _, w := range r.Warnings {
		a.log.Warn("extract.pages.warning", "path", path, "method", r.Method, "warning", w)
	}
	return PagesResult{
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
	}, nil
}

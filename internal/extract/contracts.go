package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

// PageReader is Stage 1: file -> ordered page text.
type PageReader interface {
	ReadPages(ctx context.Context, path string) (PagesResult, error)
}

type PagesResult struct {
	Pages      []string
	SourceType string // "PDF" | "IMAGE" | "TXT"
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text"
	Duration   time.Duration
	Warnings   []string
}

// PageInput is Stage 2 input: one page of text -> question descriptors.
type PageInput struct {
	Text    string
	Country string
	PageNum int // 1-based, for prompts and logs only
}

type PageResult struct {
	Descriptors []llm.QuestionDescriptor
	Source      string // llm.SourceOracle | llm.SourceHeuristic
	// Err records why the oracle result was not used. It is informational only.
	Err error
}

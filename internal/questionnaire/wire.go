package questionnaire

import (
	"log/slog"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/extract"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/ocr"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/pipeline"
)

// NewPipelineFromConfig builds the document pipeline. Without an OpenAI key
// every page goes through the heuristics.
func NewPipelineFromConfig(cfg *common.Config, logger *slog.Logger) *pipeline.Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	extractor := NewOCRExtractor(cfg, logger)

	var oracle llm.Oracle
	if cfg.LLM.APIKey != "" {
		client := openai.NewClient(openai.Config{
			APIKey:            cfg.LLM.APIKey,
			BaseURL:           cfg.LLM.BaseURL,
			Model:             cfg.LLM.Model,
			Temperature:       cfg.LLM.Temperature,
			Timeout:           cfg.LLM.Timeout,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		}, logger)
		oracle = client
		logger.Info("OpenAI client initialized", "model", client.Model())
	} else {
		logger.Warn("OpenAI API key not configured, extraction will use heuristics only")
	}

	return pipeline.NewPipeline(pipeline.Config{
		PageConcurrency:    cfg.Pipeline.PageConcurrency,
		CountryPromptChars: cfg.Pipeline.CountryPromptChars,
		Countries:          cfg.Countries,
	}, extract.NewOCRAdapter(extractor, logger), oracle, logger)
}

// NewOCRExtractor builds the page extractor from the OCR section of cfg.
func NewOCRExtractor(cfg *common.Config, logger *slog.Logger) *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)
}

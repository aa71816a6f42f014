package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

// DetectCountry finds the document's country: a case-insensitive mention in list
// order first, then the oracle restricted to the list, else constants.UnknownCountry.
func DetectCountry(ctx context.Context, oracle llm.Oracle, text string, countries []string, maxChars int, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	lower := strings.ToLower(text)
	for _, c := range countries {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	if oracle == nil || strings.TrimSpace(text) == "" {
		return constants.UnknownCountry
	}

	answer, err := oracle.Complete(ctx, llm.CompletionRequest{
		User:      llm.BuildCountryPrompt(text, countries, maxChars),
		MaxTokens: 20,
	})
	if err != nil {
		logger.Warn("extract.country.oracle_failed", "error", err)
		return constants.UnknownCountry
	}
	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	if c, ok := constants.CanonicalCountry(answer, countries); ok {
		return c
	}
	logger.Info("extract.country.unrecognised", "answer", answer)
	return constants.UnknownCountry
}

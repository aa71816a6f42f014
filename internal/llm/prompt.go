package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
)

// BuildExtractionSystemPrompt instructs the oracle to emit question descriptors only.
func BuildExtractionSystemPrompt() string {
	parts := []string{
		"You extract regulatory questionnaire questions from document text. Return ONLY JSON that matches the provided JSON Schema.",
		"Wrap the list in an object: {\"questions\": [...]}.",
		"DO NOT include responses (Yes/No answers, filled-in values, names of reviewers).",
		"For each question determine: the question text, its type, a short category/section label, whether it is required, and any options.",
		"Allowed types (enum): " + strings.Join(constants.QuestionTypes(), ", ") + ".",
		"Only selection and multi_select questions carry 'options'; use the option labels printed in the document.",
		"Put any explanatory sentence printed next to the question into 'help_text'.",
		"If the page has no questions, return {\"questions\": []}.",
	}
	return strings.Join(parts, " ")
}

// BuildPageUserPrompt packages one page of text for extraction.
func BuildPageUserPrompt(pageText, country string, pageNum int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Country: %s\nPage: %d\n\n", country, pageNum)
	b.WriteString("Text:\n")
	b.WriteString(strings.TrimSpace(pageText))
	return b.String()
}

// BuildCountryPrompt restricts the answer to one supported country name or "Unknown".
func BuildCountryPrompt(text string, countries []string, maxChars int) string {
	if maxChars > 0 && len(text) > maxChars {
		text = truncateRunes(text, maxChars) + "..."
	}
	return "Extract the country name from the following NCA document text.\n" +
		"Return only the country name from this list: " + strings.Join(countries, ", ") + "\n" +
		"If no country is found, return '" + constants.UnknownCountry + "'.\n\n" +
		"Text: " + text
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

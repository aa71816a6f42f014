// Package classify holds the pure text heuristics used to recognise and label
// questionnaire questions when no oracle output is available.
package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

// IsQuestionLine reports whether a single line of page text looks like a question.
// Indicator matching is case-sensitive; the stoplist check is not.
func IsQuestionLine(line string) bool {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= constants.MinQuestionLineLen {
		return false
	}
	if _, stop := constants.QuestionStoplist[strings.ToLower(line)]; stop {
		return false
	}
	for _, ind := range constants.QuestionIndicators {
		if strings.Contains(line, ind) {
			return true
		}
	}
	return false
}

// yes/no markers are plain substrings, so "is" also matches inside "this".
var yesNoMarkers = []string{"yes", "no", "was", "were", "does", "is"}

// InferQuestionType applies ordered checks; the first match wins.
func InferQuestionType(text string) constants.QuestionType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "?") && containsAny(lower, yesNoMarkers):
		return constants.YesNo
	case strings.Contains(lower, "date"):
		return constants.Date
	case containsAny(lower, []string{"select", "choose"}):
		return constants.Selection
	case containsAny(lower, []string{"number", "amount"}):
		return constants.Numeric
	default:
		return constants.Text
	}
}

// Categorize returns the first category in constants.CategoryTable whose keywords match.
func Categorize(text string) string {
	return firstMatch(constants.CategoryTable, text)
}

// ComplianceArea returns the first area in constants.ComplianceTable whose keywords match.
func ComplianceArea(text string) string {
	return firstMatch(constants.ComplianceTable, text)
}

// RegulatoryContext joins every regulatory term found in text, in vocabulary order.
func RegulatoryContext(text string) string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range constants.RegulatoryTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	if len(found) == 0 {
		return constants.DefaultLabel
	}
	return strings.Join(found, ", ")
}

// ScanLines synthesizes descriptors from every question-like line of a page.
// Selection questions carry no options and are flagged for curation.
func ScanLines(pageText string) []llm.QuestionDescriptor {
	var out []llm.QuestionDescriptor
	for _, raw := range strings.Split(pageText, "\n") {
		line := strings.TrimSpace(raw)
		if !IsQuestionLine(line) {
			continue
		}
		qt := InferQuestionType(line)
		required := true
		out = append(out, llm.QuestionDescriptor{
			Text:          line,
			Type:          string(qt),
			Category:      Categorize(line),
			Required:      &required,
			Source:        llm.SourceHeuristic,
			NeedsCuration: qt.HasOptions(),
		})
	}
	return out
}

func firstMatch(table []constants.KeywordRule, text string) string {
	lower := strings.ToLower(text)
	for _, rule := range table {
		if containsAny(lower, rule.Keywords) {
			return rule.Label
		}
	}
	return constants.DefaultLabel
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

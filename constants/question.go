package constants

import "strings"

// QuestionType is the declared answer shape of a question.
type QuestionType string

// Stable values (stored as-is).
const (
	YesNo       QuestionType = "yes_no"
	Text        QuestionType = "text"
	Date        QuestionType = "date"
	Selection   QuestionType = "selection"
	MultiSelect QuestionType = "multi_select"
	Numeric     QuestionType = "numeric"
)

var allQuestionTypes = []QuestionType{YesNo, Text, Date, Selection, MultiSelect, Numeric}

// QuestionTypes returns the enum as strings, e.g. for prompts and JSON schema.
func QuestionTypes() []string {
	out := make([]string, len(allQuestionTypes))
	for i, t := range allQuestionTypes {
		out[i] = string(t)
	}
	return out
}

// ParseQuestionType accepts any casing and surrounding whitespace.
func ParseQuestionType(s string) (QuestionType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range allQuestionTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == Selection || t == MultiSelect
}

// QuestionIndicators mark a line as a candidate question. Matching is case-sensitive.
var QuestionIndicators = []string{
	"?", "Please", "Was", "Were", "Does", "Is", "Date", "Document",
	"Client", "Site", "Rationale", "The entity", "The annual",
	"confirm", "select", "identify", "provide", "performed",
}

// QuestionStoplist holds answer-like lines that are never questions.
var QuestionStoplist = map[string]struct{}{
	"yes":           {},
	"no":            {},
	"test":          {},
	"test-director": {},
}

// MinQuestionLineLen is the exclusive lower bound on a question line's length.
const MinQuestionLineLen = 10

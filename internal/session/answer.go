package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/utils"
)

// AnswerKind names the variant of a parsed answer.
type AnswerKind string

const (
	KindBool        AnswerKind = "bool"
	KindText        AnswerKind = "text"
	KindDate        AnswerKind = "date"
	KindChoice      AnswerKind = "choice"
	KindNumber      AnswerKind = "number"
	KindMultiChoice AnswerKind = "multi_choice"
)

// Answer is a validated, typed answer. The set of variants is closed.
type Answer interface {
	Kind() AnswerKind
	// String is the canonical stored form.
	String() string
	isAnswer()
}

type BoolAnswer struct{ Value bool }

func (BoolAnswer) Kind() AnswerKind { return KindBool }
func (a BoolAnswer) String() string {
	if a.Value {
		return "yes"
	}
	return "no"
}
func (BoolAnswer) isAnswer() {}

type TextAnswer struct{ Value string }

func (TextAnswer) Kind() AnswerKind { return KindText }
func (a TextAnswer) String() string { return a.Value }
func (TextAnswer) isAnswer()        {}

// DateAnswer holds a calendar date at midnight UTC.
type DateAnswer struct{ Value time.Time }

func (DateAnswer) Kind() AnswerKind { return KindDate }
func (a DateAnswer) String() string { return a.Value.Format(utils.DateLayout) }
func (DateAnswer) isAnswer()        {}

type ChoiceAnswer struct{ Value string }

func (ChoiceAnswer) Kind() AnswerKind { return KindChoice }
func (a ChoiceAnswer) String() string { return a.Value }
func (ChoiceAnswer) isAnswer()        {}

// NumberAnswer keeps the user's spelling alongside the parsed value.
type NumberAnswer struct {
	Value float64
	Raw   string
}

func (NumberAnswer) Kind() AnswerKind { return KindNumber }
func (a NumberAnswer) String() string {
	if a.Raw != "" {
		return a.Raw
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}
func (NumberAnswer) isAnswer() {}

type MultiChoiceAnswer struct{ Values []string }

func (MultiChoiceAnswer) Kind() AnswerKind { return KindMultiChoice }
func (a MultiChoiceAnswer) String() string { return strings.Join(a.Values, ", ") }
func (MultiChoiceAnswer) isAnswer()        {}

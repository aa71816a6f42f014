package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

func question(t constants.QuestionType, required bool, options ...string) entity.Question {
	return entity.Question{ID: "q", Text: "Question text?", Type: t, Required: required, Options: options}
}

func TestParseAnswer_YesNo(t *testing.T) {
	q := question(constants.YesNo, true)
	for _, raw := range []string{"yes", " Y ", "TRUE"} {
		a, err := ParseAnswer(q, raw)
		require.NoError(t, err, raw)
		assert.Equal(t, BoolAnswer{Value: true}, a)
		assert.Equal(t, "yes", a.String())
	}
	for _, raw := range []string{"no", "n", "False"} {
		a, err := ParseAnswer(q, raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "no", a.String())
	}

	_, err := ParseAnswer(q, "maybe")
	require.ErrorIs(t, err, common.ErrInvalidYesNo)
	assert.Equal(t, MsgInvalidYesNo, common.UserMessage(err))
}

func TestParseAnswer_Date(t *testing.T) {
	q := question(constants.Date, true)

	a, err := ParseAnswer(q, "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, KindDate, a.Kind())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), a.(DateAnswer).Value)
	assert.Equal(t, "2024-02-29", a.String())

	for _, raw := range []string{"2024-13-40", "2023-02-29", "29/02/2024", "2024-2-1"} {
		_, err := ParseAnswer(q, raw)
		require.ErrorIs(t, err, common.ErrInvalidDate, raw)
		assert.Equal(t, MsgInvalidDate, common.UserMessage(err))
	}
}

func TestParseAnswer_Selection(t *testing.T) {
	q := question(constants.Selection, true, "Low", "Medium", "High")

	a, err := ParseAnswer(q, "Medium")
	require.NoError(t, err)
	assert.Equal(t, ChoiceAnswer{Value: "Medium"}, a)

	a, err = ParseAnswer(q, "  High\t")
	require.NoError(t, err)
	assert.Equal(t, "High", a.String())

	_, err = ParseAnswer(q, "medium")
	require.ErrorIs(t, err, common.ErrInvalidSelection)
	assert.Equal(t, "Please select from: Low, Medium, High", common.UserMessage(err))

	// no option list means anything goes
	a, err = ParseAnswer(question(constants.Selection, true), "whatever")
	require.NoError(t, err)
	assert.Equal(t, "whatever", a.String())
}

func TestParseAnswer_Numeric(t *testing.T) {
	q := question(constants.Numeric, true)

	a, err := ParseAnswer(q, " 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, NumberAnswer{Value: 12.5, Raw: "12.50"}, a)
	assert.Equal(t, "12.50", a.String())

	_, err = ParseAnswer(q, "twelve")
	require.ErrorIs(t, err, common.ErrInvalidNumeric)
	assert.Equal(t, MsgInvalidNumber, common.UserMessage(err))
}

func TestParseAnswer_TextAndMultiSelect(t *testing.T) {
	a, err := ParseAnswer(question(constants.Text, true), "  free form  ")
	require.NoError(t, err)
	assert.Equal(t, TextAnswer{Value: "free form"}, a)

	a, err = ParseAnswer(question(constants.MultiSelect, true, "a", "b"), "a, c ,")
	require.NoError(t, err)
	assert.Equal(t, MultiChoiceAnswer{Values: []string{"a", "c"}}, a)
	assert.Equal(t, "a, c", a.String())
}

func TestParseAnswer_RequiredWinsFirst(t *testing.T) {
	for _, qt := range []constants.QuestionType{constants.YesNo, constants.Date, constants.Numeric, constants.Text} {
		_, err := ParseAnswer(question(qt, true), "   ")
		require.ErrorIs(t, err, common.ErrRequiredFieldMissing, string(qt))
		assert.Equal(t, MsgRequired, common.UserMessage(err))
	}
}

func TestParseAnswer_OptionalEmpty(t *testing.T) {
	a, err := ParseAnswer(question(constants.Text, false), "")
	require.NoError(t, err)
	assert.Equal(t, "", a.String())

	// type rules still apply to optional questions
	_, err = ParseAnswer(question(constants.YesNo, false), "")
	require.ErrorIs(t, err, common.ErrInvalidYesNo)
}

func TestParseAnswer_UnknownType(t *testing.T) {
	_, err := ParseAnswer(question("essay", false), "x")
	require.ErrorIs(t, err, common.ErrValidation)
}

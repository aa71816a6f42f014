package session

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/utils"
)

// User-facing validation messages.
const (
	MsgRequired      = "This question is required. Please provide an answer."
	MsgInvalidYesNo  = "Please answer with Yes or No."
	MsgInvalidDate   = "Please provide date in YYYY-MM-DD format."
	MsgInvalidNumber = "Please provide a numeric value."
)

var (
	yesWords = []string{"yes", "y", "true"}
	noWords  = []string{"no", "n", "false"}
)

// ParseAnswer validates raw against the question's declared type and returns the
// typed answer. The first failing rule wins; failures are *common.AppError values
// wrapping the matching sentinel, with Message set to the text shown to the user.
func ParseAnswer(q entity.Question, raw string) (Answer, error) {
	// Every rule, including the exact-match option check, sees the trimmed
	// input, so " Medium " selects "Medium" and is stored without padding.
	trimmed := strings.TrimSpace(raw)
	if q.Required && trimmed == "" {
		return nil, common.NewAppError("REQUIRED_FIELD_MISSING", MsgRequired, common.ErrRequiredFieldMissing)
	}

	switch q.Type {
	case constants.YesNo:
		lower := strings.ToLower(trimmed)
		switch {
		case slices.Contains(yesWords, lower):
			return BoolAnswer{Value: true}, nil
		case slices.Contains(noWords, lower):
			return BoolAnswer{Value: false}, nil
		}
		return nil, common.NewAppError("INVALID_YES_NO", MsgInvalidYesNo, common.ErrInvalidYesNo)

	case constants.Date:
		if verr := common.ISODate("answer", trimmed); verr != nil {
			return nil, common.NewAppError("INVALID_DATE", MsgInvalidDate, common.ErrInvalidDate)
		}
		d, err := utils.ParseYMD(trimmed)
		if err != nil {
			return nil, common.NewAppError("INVALID_DATE", MsgInvalidDate, common.ErrInvalidDate)
		}
		return DateAnswer{Value: d}, nil

	case constants.Selection:
		// extraction and curation both store options trimmed
		if len(q.Options) > 0 && !slices.Contains(q.Options, trimmed) {
			msg := fmt.Sprintf("Please select from: %s", strings.Join(q.Options, ", "))
			return nil, common.NewAppError("INVALID_SELECTION", msg, common.ErrInvalidSelection)
		}
		return ChoiceAnswer{Value: trimmed}, nil

	case constants.Numeric:
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, common.NewAppError("INVALID_NUMERIC", MsgInvalidNumber, common.ErrInvalidNumeric)
		}
		return NumberAnswer{Value: v, Raw: trimmed}, nil

	case constants.MultiSelect:
		var values []string
		for _, part := range strings.Split(trimmed, ",") {
			if p := strings.TrimSpace(part); p != "" {
				values = append(values, p)
			}
		}
		return MultiChoiceAnswer{Values: values}, nil

	case constants.Text:
		return TextAnswer{Value: trimmed}, nil

	default:
		return nil, common.NewAppError("INVALID_QUESTION_TYPE",
			fmt.Sprintf("Question type %q cannot be answered.", q.Type), common.ErrValidation)
	}
}

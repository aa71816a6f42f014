package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
)

// ParseQuestionDescriptors interprets raw oracle output. It validates strictly first,
// then retries once after SanitizeQuestionList. Any failure wraps
// common.ErrOracleMalformedOutput. Missing optionals get their documented defaults.
func ParseQuestionDescriptors(raw string, logger *slog.Logger) ([]QuestionDescriptor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	content := StripCodeFences(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", common.ErrOracleMalformedOutput)
	}
	doc := WrapBareArray([]byte(content))
	schema := QuestionListSchema()

	if err := ValidateJSONAgainstSchema(schema, doc); err != nil {
		cleaned, dropped, sErr := SanitizeQuestionList(doc, logger)
		if sErr != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrOracleMalformedOutput, sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrOracleMalformedOutput, vErr)
		}
		logger.Warn("llm.questions.lenient_sanitize_applied", "dropped", dropped)
		doc = cleaned
	}

	var payload struct {
		Questions []QuestionDescriptor `json:"questions"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOracleMalformedOutput, err)
	}

	out := make([]QuestionDescriptor, 0, len(payload.Questions))
	for _, d := range payload.Questions {
		out = append(out, withDefaults(d, SourceOracle))
	}
	return out, nil
}

func withDefaults(d QuestionDescriptor, source string) QuestionDescriptor {
	if d.Type == "" {
		d.Type = string(constants.Text)
	}
	if d.Category == "" {
		d.Category = constants.DefaultLabel
	}
	if d.Required == nil {
		t := true
		d.Required = &t
	}
	d.Source = source
	return d
}

package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/classify"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/llm"
)

// QuestionID is the md5 hex digest of text + "_" + country.
func QuestionID(text, country string) string {
	sum := md5.Sum([]byte(text + "_" + country))
	return hex.EncodeToString(sum[:])
}

// Normalize maps raw descriptors to questions, dropping empty and repeated text.
// The first occurrence of a text keeps its position.
func Normalize(descs []llm.QuestionDescriptor, country string, log *slog.Logger) []entity.Question {
	if log == nil {
		log = slog.Default()
	}
	seen := make(map[string]struct{}, len(descs))
	out := make([]entity.Question, 0, len(descs))
	for _, d := range descs {
		text := norm.NFC.String(strings.TrimSpace(d.Text))
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			log.Debug("pipeline.descriptor.duplicate", "text", text)
			continue
		}
		seen[text] = struct{}{}

		qt, ok := constants.ParseQuestionType(d.Type)
		needsCuration := d.NeedsCuration
		if !ok {
			log.Warn("pipeline.descriptor.bad_type", "type", d.Type, "text", text, "source", d.Source)
			qt = constants.Text
			needsCuration = true
		}

		var options []string
		if qt.HasOptions() {
			options = cleanOptions(d.Options)
			// a choice question cannot be answered until someone supplies options
			if len(options) == 0 {
				needsCuration = true
			}
		}
		category := strings.TrimSpace(d.Category)
		if category == "" {
			category = constants.DefaultLabel
		}

		out = append(out, entity.Question{
			ID:                QuestionID(text, country),
			Text:              text,
			Type:              qt,
			Category:          category,
			Country:           country,
			Required:          d.IsRequired(),
			Options:           options,
			HelpText:          strings.TrimSpace(d.HelpText),
			RegulatoryContext: classify.RegulatoryContext(text),
			ComplianceArea:    classify.ComplianceArea(text),
			NeedsCuration:     needsCuration,
			Position:          len(out),
		})
	}
	return out
}

func cleanOptions(in []string) []string {
	var out []string
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isExtractionFailure(err error) bool {
	return errors.Is(err, common.ErrExtractionFailure)
}

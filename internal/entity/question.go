package entity

import (
	"time"

	"github.com/joseph-ayodele/questionnaire-tracker/constants"
)

// Question is one extracted questionnaire item. ID is content-addressed from (Text, Country).
type Question struct {
	ID                string                 `json:"id"`
	Text              string                 `json:"text"`
	Type              constants.QuestionType `json:"type"`
	Category          string                 `json:"category"`
	Country           string                 `json:"country"`
	Required          bool                   `json:"required"`
	Options           []string               `json:"options,omitempty"`
	HelpText          string                 `json:"help_text"`
	RegulatoryContext string                 `json:"regulatory_context"`
	ComplianceArea    string                 `json:"compliance_area"`
	// NeedsCuration marks questions that must be reviewed before being served,
	// e.g. heuristic selection questions with no known options.
	NeedsCuration bool      `json:"needs_curation"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
}

// QuestionFilter selects questions for a country, optionally narrowed to one category.
type QuestionFilter struct {
	Country  string
	Category string
}

package llm

import "context"

// Descriptor sources.
const (
	SourceOracle    = "oracle"
	SourceHeuristic = "heuristic"
)

// CompletionRequest is one instruction/context exchange with the oracle.
type CompletionRequest struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response.
	JSON      bool
	MaxTokens int
}

// Oracle is the text-understanding collaborator. It returns raw text only;
// callers own parsing and validation of what comes back.
type Oracle interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// QuestionDescriptor is the raw, not yet normalized shape of one extracted question.
type QuestionDescriptor struct {
	Text          string   `json:"text"`
	Type          string   `json:"type,omitempty"`
	Category      string   `json:"category,omitempty"`
	Required      *bool    `json:"required,omitempty"`
	Options       []string `json:"options,omitempty"`
	HelpText      string   `json:"help_text,omitempty"`
	Source        string   `json:"-"`
	NeedsCuration bool     `json:"-"`
}

// IsRequired applies the default of true when the oracle omitted the flag.
func (d QuestionDescriptor) IsRequired() bool {
	return d.Required == nil || *d.Required
}

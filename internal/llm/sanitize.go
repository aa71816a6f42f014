package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

var allowedItemKeys = map[string]struct{}{
	"text": {}, "type": {}, "category": {}, "required": {}, "options": {}, "help_text": {},
}

// StripCodeFences removes ```json ... ``` wrappers some models add despite JSON mode.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// WrapBareArray turns a top-level JSON array into {"questions": [...]}.
func WrapBareArray(doc []byte) []byte {
	trimmed := strings.TrimSpace(string(doc))
	if strings.HasPrefix(trimmed, "[") {
		return []byte(`{"questions":` + trimmed + `}`)
	}
	return []byte(trimmed)
}

// SanitizeQuestionList drops or normalizes offending fields so an otherwise usable
// oracle answer can still validate:
//   - items without usable text are removed
//   - null / empty optionals are removed
//   - "true"/"false" strings become booleans
//   - non-string options are discarded
//   - unknown keys are removed
func SanitizeQuestionList(doc []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	rawItems, ok := root["questions"].([]any)
	if !ok {
		return nil, nil, fmt.Errorf("sanitize: questions is %T, want array", root["questions"])
	}

	var dropped []string
	items := make([]any, 0, len(rawItems))
	for i, raw := range rawItems {
		m, ok := raw.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("[%d](not object)", i))
			continue
		}
		text, _ := m["text"].(string)
		if strings.TrimSpace(text) == "" {
			dropped = append(dropped, fmt.Sprintf("[%d](no text)", i))
			continue
		}
		m["text"] = strings.TrimSpace(text)

		for k := range m {
			if _, ok := allowedItemKeys[k]; !ok {
				delete(m, k)
				dropped = append(dropped, fmt.Sprintf("[%d].%s(unknown)", i, k))
			}
		}

		for _, k := range []string{"type", "category", "help_text"} {
			switch v := m[k].(type) {
			case nil:
				delete(m, k)
			case string:
				if strings.TrimSpace(v) == "" {
					delete(m, k)
				} else {
					m[k] = strings.TrimSpace(v)
				}
			default:
				delete(m, k)
				dropped = append(dropped, fmt.Sprintf("[%d].%s(type)", i, k))
			}
		}

		switch v := m["required"].(type) {
		case nil:
			delete(m, "required")
		case bool:
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes":
				m["required"] = true
			case "false", "no":
				m["required"] = false
			default:
				delete(m, "required")
				dropped = append(dropped, fmt.Sprintf("[%d].required(value)", i))
			}
		default:
			delete(m, "required")
			dropped = append(dropped, fmt.Sprintf("[%d].required(type)", i))
		}

		switch v := m["options"].(type) {
		case nil:
			delete(m, "options")
		case []any:
			opts := make([]any, 0, len(v))
			for _, o := range v {
				if s, ok := o.(string); ok && strings.TrimSpace(s) != "" {
					opts = append(opts, strings.TrimSpace(s))
				}
			}
			if len(opts) == 0 {
				delete(m, "options")
			} else {
				m["options"] = opts
			}
		default:
			delete(m, "options")
			dropped = append(dropped, fmt.Sprintf("[%d].options(type)", i))
		}

		items = append(items, m)
	}

	out, err := json.Marshal(map[string]any{"questions": items})
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.questions.sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

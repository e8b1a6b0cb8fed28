package providers

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/promptiverse/internal/types"
)

// suggestionSchema accepts either a bare array of suggestions or an object
// with a "suggestions" array. Each item needs a value or a text.
const suggestionSchema = `{
  "$defs": {
    "item": {
      "type": "object",
      "properties": {
        "type":  {"type": "string"},
        "value": {"type": "string"},
        "text":  {"type": "string"}
      },
      "anyOf": [{"required": ["value"]}, {"required": ["text"]}]
    },
    "list": {"type": "array", "items": {"$ref": "#/$defs/item"}}
  },
  "oneOf": [
    {"$ref": "#/$defs/list"},
    {
      "type": "object",
      "required": ["suggestions"],
      "properties": {"suggestions": {"$ref": "#/$defs/list"}}
    }
  ]
}`

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func suggestionValidator() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiledSchema, compiledSchemaErr = jsonschema.CompileString("suggestions.json", suggestionSchema)
	})
	return compiledSchema, compiledSchemaErr
}

// parseSuggestions turns a model reply into suggestions. The count is passed
// through unchanged; items are only normalized.
func parseSuggestions(provider, content string, step int) ([]types.Suggestion, error) {
	raw, err := parseStructuredJSON(content)
	if err != nil {
		return nil, malformed(provider, "invalid JSON in response", err)
	}

	if err := validateSuggestions(raw); err != nil {
		return nil, malformed(provider, "missing suggestions array", err)
	}

	var items []types.Suggestion
	if strings.HasPrefix(string(raw), "[") {
		err = json.Unmarshal(raw, &items)
	} else {
		var wrapped struct {
			Suggestions []types.Suggestion `json:"suggestions"`
		}
		err = json.Unmarshal(raw, &wrapped)
		items = wrapped.Suggestions
	}
	if err != nil {
		return nil, malformed(provider, "failed to decode suggestions", err)
	}

	return normalizeSuggestions(items, step), nil
}

func validateSuggestions(raw json.RawMessage) error {
	schema, err := suggestionValidator()
	if err != nil {
		return fmt.Errorf("failed to compile suggestion schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}

// normalizeSuggestions fills value/text from each other and defaults the
// type to the step's natural type. Items with neither value nor text are dropped.
func normalizeSuggestions(items []types.Suggestion, step int) []types.Suggestion {
	out := make([]types.Suggestion, 0, len(items))
	for _, s := range items {
		s.Value = strings.TrimSpace(s.Value)
		s.Text = strings.TrimSpace(s.Text)
		if s.Value == "" && s.Text == "" {
			continue
		}
		if s.Value == "" {
			s.Value = s.Text
		}
		if s.Text == "" {
			s.Text = s.Value
		}
		if !s.Type.Valid() {
			s.Type = types.TypeForStep(step)
		}
		out = append(out, s)
	}
	return out
}

// parseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			normalized, mErr := json.Marshal(parsed)
			if mErr != nil {
				return nil, fmt.Errorf("failed to normalize structured output: %w", mErr)
			}
			return normalized, nil
		}
	}

	return nil, fmt.Errorf("failed to parse structured JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence (```json) and the closing one if present.
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONCandidate returns the span from the first { or [ to the last
// matching closer.
func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start, closeChar := -1, ""
	switch {
	case arrayStart >= 0 && (objectStart < 0 || arrayStart < objectStart):
		start, closeChar = arrayStart, "]"
	case objectStart >= 0:
		start, closeChar = objectStart, "}"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

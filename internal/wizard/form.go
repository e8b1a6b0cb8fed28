package wizard

import (
	"strings"

	"github.com/jackzampolin/promptiverse/internal/types"
)

// Form is everything the user has filled in so far.
type Form struct {
	Category   string            `json:"category"`
	Tone       string            `json:"tone"`
	Audience   string            `json:"audience"`
	Goal       string            `json:"goal"`
	Components map[string]string `json:"components"`
}

// Component returns a trimmed detail field.
func (f Form) Component(name string) string {
	return strings.TrimSpace(f.Components[name])
}

func (f Form) clone() Form {
	out := f
	out.Components = make(map[string]string, len(f.Components))
	for k, v := range f.Components {
		out.Components[k] = v
	}
	return out
}

// Request builds the provider request for the given step.
func (f Form) Request(step int) types.PromptRequest {
	return types.PromptRequest{
		Category:   f.Category,
		Tone:       f.Tone,
		Audience:   f.Audience,
		Goal:       f.Goal,
		Components: f.clone().Components,
		Step:       types.Step(step),
	}
}

// Detail fields per category, in the order snippet suggestions fill them.
var detailFields = map[string][]string{
	"creative_writing": {"theme", "character", "setting"},
	"business":         {"purpose", "key_points", "context"},
	"coding":           {"language", "task", "requirements"},
}

var genericFields = []string{"topic", "details", "format"}

// DetailFields returns the step 2 fields rendered for category.
func DetailFields(category string) []string {
	if fields, ok := detailFields[category]; ok {
		return fields
	}
	return genericFields
}

// snippetTarget picks the field a snippet suggestion lands in: the goal at
// the preview step, otherwise the first empty detail field. Returns "" for
// the goal.
func snippetTarget(f Form, step int) string {
	if step == types.StepPreview {
		return ""
	}
	for _, field := range DetailFields(f.Category) {
		if f.Component(field) == "" {
			return field
		}
	}
	return ""
}

// apply writes a suggestion into the form. Selections store the value;
// snippets store their display text since that is the sentence to insert.
func apply(f *Form, step int, s types.Suggestion) {
	typ := s.Type
	if !typ.Valid() {
		typ = types.TypeForStep(step)
	}
	first, second := s.Value, s.Text
	if typ == types.SuggestionSnippet {
		first, second = s.Text, s.Value
	}
	value := strings.TrimSpace(first)
	if value == "" {
		value = strings.TrimSpace(second)
	}

	switch typ {
	case types.SuggestionCategory:
		f.Category = value
	case types.SuggestionTone:
		f.Tone = value
	case types.SuggestionAudience:
		f.Audience = value
	default:
		field := snippetTarget(*f, step)
		if field == "" {
			f.Goal = value
			return
		}
		if f.Components == nil {
			f.Components = make(map[string]string)
		}
		f.Components[field] = value
	}
}

// Package types holds the request and suggestion shapes shared by the
// providers, the orchestrator and the wizard.
package types

import (
	"encoding/json"
	"strings"
)

// Wizard steps.
const (
	StepCategory     = 0
	StepToneAudience = 1
	StepDetails      = 2
	StepPreview      = 3
)

// SuggestionType identifies which wizard field a suggestion targets.
type SuggestionType string

const (
	SuggestionCategory SuggestionType = "category"
	SuggestionTone     SuggestionType = "tone"
	SuggestionAudience SuggestionType = "audience"
	SuggestionSnippet  SuggestionType = "snippet"
)

// Valid reports whether t is one of the known suggestion types.
func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionCategory, SuggestionTone, SuggestionAudience, SuggestionSnippet:
		return true
	}
	return false
}

// TypeForStep returns the natural suggestion type for a wizard step.
func TypeForStep(step int) SuggestionType {
	switch step {
	case StepCategory:
		return SuggestionCategory
	case StepToneAudience:
		return SuggestionTone
	case StepDetails:
		return SuggestionAudience
	default:
		return SuggestionSnippet
	}
}

// Suggestion is a single item offered to the user.
type Suggestion struct {
	Type    SuggestionType  `json:"type"`
	Value   string          `json:"value"`
	Text    string          `json:"text"`
	Snippet json.RawMessage `json:"snippet,omitempty"`
}

// PromptRequest is the input to every provider operation.
// A nil Step means the caller has not reached a step yet.
type PromptRequest struct {
	Category     string            `json:"category,omitempty"`
	Tone         string            `json:"tone,omitempty"`
	Audience     string            `json:"audience,omitempty"`
	Goal         string            `json:"goal,omitempty"`
	Components   map[string]string `json:"components,omitempty"`
	Step         *int              `json:"step,omitempty"`
	CustomPrompt string            `json:"customPrompt,omitempty"`
	// Prompt is the raw text used by provider test mode.
	Prompt string `json:"prompt,omitempty"`
}

// Step returns a pointer to s, for building requests.
func Step(s int) *int {
	return &s
}

// HasStep reports whether the request carries a defined step.
func (r PromptRequest) HasStep() bool {
	return r.Step != nil
}

// StepValue returns the step or -1 when undefined.
func (r PromptRequest) StepValue() int {
	if r.Step == nil {
		return -1
	}
	return *r.Step
}

// IsCustom reports whether the request carries a verbatim prompt.
func (r PromptRequest) IsCustom() bool {
	return strings.TrimSpace(r.CustomPrompt) != ""
}

// ChosenComponents returns the non-empty component entries.
func (r PromptRequest) ChosenComponents() map[string]string {
	out := make(map[string]string, len(r.Components))
	for k, v := range r.Components {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Package prompts provides prompt templates with embedded defaults and
// config-level overrides.
//
// Embedded .tmpl files in the subpackages are the source of truth. The
// Resolver holds every registered template and lets operators replace the
// text of any key from the config file without a rebuild.
//
// Resolution order for a key:
//  1. Override (from config prompt_overrides, if set)
//  2. Embedded default
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: suggestions.step0
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}

// Component is a single named detail of a prompt request, in stable order.
type Component struct {
	Key   string
	Value string
}

// Data is the value every template executes against.
type Data struct {
	Category   string
	Tone       string
	Audience   string
	Goal       string
	Step       int
	Components []Component
	Examples   bool
	Count      int
}

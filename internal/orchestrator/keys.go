package orchestrator

import (
	"encoding/json"

	"github.com/jackzampolin/promptiverse/internal/types"
)

type suggestionKey struct {
	Category string `json:"category"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
	Goal     string `json:"goal"`
	Step     *int   `json:"step"`
}

type promptKey struct {
	suggestionKey
	Components map[string]string `json:"components"`
}

// SuggestionKey returns the cache key for a suggestion request. Components do
// not take part, so editing details does not invalidate cached suggestions.
func SuggestionKey(req types.PromptRequest) string {
	return "suggestions:" + encodeKey(keyFields(req))
}

// PromptKey returns the cache key for a prompt request.
func PromptKey(req types.PromptRequest) string {
	// encoding/json sorts map keys, so equal component sets encode equally.
	return "prompt:" + encodeKey(promptKey{
		suggestionKey: keyFields(req),
		Components:    req.ChosenComponents(),
	})
}

func keyFields(req types.PromptRequest) suggestionKey {
	return suggestionKey{
		Category: req.Category,
		Tone:     req.Tone,
		Audience: req.Audience,
		Goal:     req.Goal,
		Step:     req.Step,
	}
}

func encodeKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only strings and ints are encoded here.
		panic(err)
	}
	return string(b)
}

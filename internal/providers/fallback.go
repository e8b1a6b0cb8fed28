package providers

import (
	"github.com/jackzampolin/promptiverse/internal/types"
)

func entries(t types.SuggestionType, pairs ...string) []types.Suggestion {
	out := make([]types.Suggestion, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.Suggestion{Type: t, Value: pairs[i], Text: pairs[i+1]})
	}
	return out
}

var fallbackTable = map[int][]types.Suggestion{
	types.StepCategory: entries(types.SuggestionCategory,
		"creative_writing", "Creative Writing",
		"business", "Business",
		"coding", "Coding",
		"marketing", "Marketing",
		"education", "Education",
		"research", "Research",
		"personal", "Personal Productivity",
		"social_media", "Social Media",
	),
	types.StepToneAudience: entries(types.SuggestionTone,
		"professional", "Professional",
		"friendly", "Friendly",
		"formal", "Formal",
		"casual", "Casual",
		"persuasive", "Persuasive",
		"humorous", "Humorous",
		"inspirational", "Inspirational",
		"informative", "Informative",
	),
	types.StepDetails: entries(types.SuggestionAudience,
		"general public", "General public",
		"beginners", "Beginners",
		"professionals", "Industry professionals",
		"students", "Students",
		"executives", "Executives",
		"developers", "Software developers",
		"children", "Children",
		"customers", "Existing customers",
	),
	types.StepPreview: entries(types.SuggestionSnippet,
		"examples", "Include two concrete examples.",
		"length", "Keep the response under 300 words.",
		"format", "Format the answer as a numbered list.",
		"context", "Start with one sentence of background context.",
		"steps", "Explain the reasoning step by step.",
		"call to action", "End with a clear call to action.",
		"constraints", "Avoid jargon and define any technical terms.",
		"variations", "Offer three alternative versions.",
	),
}

// FallbackSuggestions returns the static suggestions for a step, or an empty
// list for steps outside 0-3. The result is a copy.
func FallbackSuggestions(step int) []types.Suggestion {
	table, ok := fallbackTable[step]
	if !ok {
		return []types.Suggestion{}
	}
	out := make([]types.Suggestion, len(table))
	copy(out, table)
	return out
}

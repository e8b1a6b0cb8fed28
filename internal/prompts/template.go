package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/jackzampolin/promptiverse/internal/types"
)

// SuggestionCount is the number of items every suggestion prompt asks for.
const SuggestionCount = 5

// longComponentThreshold is the length above which a component counts as
// detailed for the shot-prompting policy.
const longComponentThreshold = 50

// exampleCategories benefit from worked examples in the generation prompt.
var exampleCategories = map[string]bool{
	"creative_writing": true,
	"marketing":        true,
	"coding":           true,
	"business":         true,
	"education":        true,
}

// variablePattern matches Go template variable references like {{.VarName}} or {{ .VarName }}
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// ExtractVariables extracts template variable names from a Go template string.
// For example, "Write for {{.Audience}} in a {{.Tone}} voice" returns ["Audience", "Tone"].
func ExtractVariables(text string) []string {
	matches := variablePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			seen[match[1]] = true
			vars = append(vars, match[1])
		}
	}
	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// UseExamples decides whether the generation prompt includes worked examples.
// It is a pure function of the category and the chosen components.
func UseExamples(category string, components map[string]string) bool {
	if exampleCategories[category] {
		return true
	}
	long := 0
	for _, v := range components {
		if len(strings.TrimSpace(v)) > longComponentThreshold {
			long++
		}
	}
	return long >= 2
}

// SortedComponents returns the non-empty components ordered by key.
func SortedComponents(components map[string]string) []Component {
	out := make([]Component, 0, len(components))
	for k, v := range components {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, Component{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DataFor builds template data from a request.
func DataFor(req types.PromptRequest) Data {
	return Data{
		Category:   req.Category,
		Tone:       req.Tone,
		Audience:   req.Audience,
		Goal:       req.Goal,
		Step:       req.StepValue(),
		Components: SortedComponents(req.Components),
		Examples:   UseExamples(req.Category, req.Components),
		Count:      SuggestionCount,
	}
}

// Humanize turns snake_case identifiers into readable words.
func Humanize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
}

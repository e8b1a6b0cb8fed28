package prompts

import (
	"strings"
	"testing"

	"github.com/jackzampolin/promptiverse/internal/types"
)

func TestUseExamples(t *testing.T) {
	long := strings.Repeat("x", 51)

	tests := []struct {
		name       string
		category   string
		components map[string]string
		want       bool
	}{
		{"example-rich category", "coding", nil, true},
		{"education", "education", map[string]string{"topic": "fractions"}, true},
		{"plain category short details", "generic", map[string]string{"topic": "a", "details": "b"}, false},
		{"one long detail", "generic", map[string]string{"topic": long, "details": "b"}, false},
		{"two long details", "travel", map[string]string{"topic": long, "details": long}, true},
		{"exactly threshold is not long", "travel", map[string]string{"a": strings.Repeat("x", 50), "b": strings.Repeat("x", 50)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UseExamples(tt.category, tt.components); got != tt.want {
				t.Errorf("UseExamples(%q) = %v, want %v", tt.category, got, tt.want)
			}
		})
	}
}

func TestUseExamplesDeterministic(t *testing.T) {
	comps := map[string]string{"a": strings.Repeat("y", 80), "b": strings.Repeat("z", 80), "c": "short"}
	first := UseExamples("travel", comps)
	for i := 0; i < 20; i++ {
		if UseExamples("travel", comps) != first {
			t.Fatal("policy changed between identical calls")
		}
	}
}

func TestSortedComponents(t *testing.T) {
	got := SortedComponents(map[string]string{"setting": "Paris", "theme": " love ", "character": ""})
	if len(got) != 2 {
		t.Fatalf("expected 2 components, got %d", len(got))
	}
	if got[0].Key != "setting" || got[1].Key != "theme" || got[1].Value != "love" {
		t.Errorf("unexpected order or trimming: %+v", got)
	}
}

func TestDataFor(t *testing.T) {
	d := DataFor(types.PromptRequest{Category: "coding", Step: types.Step(2)})
	if d.Step != 2 || d.Count != SuggestionCount || !d.Examples {
		t.Errorf("unexpected data: %+v", d)
	}
	if DataFor(types.PromptRequest{}).Step != -1 {
		t.Error("undefined step should render as -1")
	}
}

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("Write for {{.Audience}} in a {{ .Tone }} voice about {{.Audience}}")
	if len(got) != 2 || got[0] != "Audience" || got[1] != "Tone" {
		t.Errorf("ExtractVariables = %v", got)
	}
}

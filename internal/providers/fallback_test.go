package providers

import (
	"testing"

	"github.com/jackzampolin/promptiverse/internal/types"
)

func TestFallbackSuggestions(t *testing.T) {
	for step := 0; step <= 3; step++ {
		got := FallbackSuggestions(step)
		if len(got) != 8 {
			t.Errorf("step %d: expected 8 entries, got %d", step, len(got))
		}
		for _, s := range got {
			if s.Type != types.TypeForStep(step) {
				t.Errorf("step %d: unexpected type %q", step, s.Type)
			}
			if s.Value == "" || s.Text == "" {
				t.Errorf("step %d: empty entry %+v", step, s)
			}
		}
	}

	for _, step := range []int{-1, 4, 100} {
		got := FallbackSuggestions(step)
		if got == nil || len(got) != 0 {
			t.Errorf("step %d: expected empty non-nil list, got %v", step, got)
		}
	}
}

func TestFallbackSuggestionsReturnsCopy(t *testing.T) {
	first := FallbackSuggestions(0)
	first[0].Value = "mutated"

	if FallbackSuggestions(0)[0].Value == "mutated" {
		t.Error("callers must not be able to mutate the table")
	}
}

package catalog

import (
	"strings"
	"testing"

	"github.com/jackzampolin/promptiverse/internal/prompts/generate"
	"github.com/jackzampolin/promptiverse/internal/prompts/suggestions"
	"github.com/jackzampolin/promptiverse/internal/types"
)

func TestSuggestionPromptsAskForFive(t *testing.T) {
	r := New(nil)
	for step := 0; step <= 3; step++ {
		_, user, err := suggestions.Build(r, types.PromptRequest{Category: "coding", Step: types.Step(step)})
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if !strings.Contains(user, "exactly 5") {
			t.Errorf("step %d prompt does not ask for exactly 5 items:\n%s", step, user)
		}
	}
}

func TestSuggestionPromptUndefinedStep(t *testing.T) {
	if _, _, err := suggestions.Build(New(nil), types.PromptRequest{}); err == nil {
		t.Error("expected error for undefined step")
	}
}

func TestStep3ListsChosenComponents(t *testing.T) {
	_, user, err := suggestions.Build(New(nil), types.PromptRequest{
		Category:   "creative_writing",
		Step:       types.Step(3),
		Components: map[string]string{"theme": "redemption", "setting": ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(user, "theme: redemption") {
		t.Errorf("chosen component missing:\n%s", user)
	}
	if strings.Contains(user, "setting:") {
		t.Errorf("empty component should not be listed:\n%s", user)
	}
}

func TestGenerateCustomPromptVerbatim(t *testing.T) {
	system, user, err := generate.Build(New(nil), types.PromptRequest{
		Category:     "coding",
		CustomPrompt: "  say hi  ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if system != "" || user != "  say hi  " {
		t.Errorf("custom prompt altered: system=%q user=%q", system, user)
	}
}

func TestGenerateExamplesFollowPolicy(t *testing.T) {
	r := New(nil)

	_, withExamples, _ := generate.Build(r, types.PromptRequest{Category: "coding"})
	if !strings.Contains(withExamples, "Example prompt:") {
		t.Error("coding should include examples")
	}

	_, without, _ := generate.Build(r, types.PromptRequest{Category: "travel", Components: map[string]string{"topic": "Lisbon"}})
	if strings.Contains(without, "Example prompt:") {
		t.Error("travel with short details should not include examples")
	}
	if !strings.Contains(without, "topic: Lisbon") {
		t.Errorf("components missing:\n%s", without)
	}
}

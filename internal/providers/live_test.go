package providers

import (
	"context"
	"testing"
	"time"

	"github.com/jackzampolin/promptiverse/internal/types"
)

// Runs against the real APIs for whichever keys are in the environment.
func TestLiveProviders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live provider test in short mode")
	}
	cfg := LoadTestConfig()
	if !cfg.HasAny() {
		t.Skip("no provider API keys set (OPENAI_API_KEY, GROQ_API_KEY, GEMINI_API_KEY)")
	}

	for name, key := range cfg.Keys() {
		t.Run(name, func(t *testing.T) {
			adapter, err := Create(name, key)
			if err != nil {
				t.Fatalf("Create(%s) error = %v", name, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sugg, err := adapter.GenerateSuggestions(ctx, types.PromptRequest{Step: types.Step(types.StepCategory)})
			if err != nil {
				t.Fatalf("GenerateSuggestions() error = %v (kind %s)", err, KindOf(err))
			}
			if len(sugg) == 0 {
				t.Fatal("GenerateSuggestions() returned nothing")
			}
			for _, s := range sugg {
				if s.Value == "" || s.Text == "" {
					t.Errorf("suggestion not normalized: %+v", s)
				}
			}

			gen, ok := adapter.(PromptGenerator)
			if !ok {
				return
			}
			text, err := gen.GeneratePrompt(ctx, types.PromptRequest{CustomPrompt: "Reply with the single word: ok"})
			if err != nil {
				t.Fatalf("GeneratePrompt() error = %v", err)
			}
			if text == "" {
				t.Error("GeneratePrompt() returned empty text")
			}
		})
	}
}

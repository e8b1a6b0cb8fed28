package providers

import (
	"errors"
	"testing"

	"github.com/jackzampolin/promptiverse/internal/types"
)

func TestParseSuggestions(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		got, err := parseSuggestions("test", `[{"type":"tone","value":"warm","text":"Warm"}]`, 1)
		if err != nil {
			t.Fatalf("parseSuggestions() error = %v", err)
		}
		if len(got) != 1 || got[0].Value != "warm" || got[0].Type != types.SuggestionTone {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("wrapped object in code fence", func(t *testing.T) {
		content := "```json\n{\"suggestions\":[{\"value\":\"coding\",\"text\":\"Coding\"}]}\n```"
		got, err := parseSuggestions("test", content, 0)
		if err != nil {
			t.Fatalf("parseSuggestions() error = %v", err)
		}
		if len(got) != 1 || got[0].Type != types.SuggestionCategory {
			t.Errorf("type should default to category at step 0: %+v", got)
		}
	})

	t.Run("surrounding prose", func(t *testing.T) {
		content := "Sure! Here you go:\n[{\"text\":\"Teenagers\"}]\nHope that helps."
		got, err := parseSuggestions("test", content, 2)
		if err != nil {
			t.Fatalf("parseSuggestions() error = %v", err)
		}
		if got[0].Value != "Teenagers" || got[0].Type != types.SuggestionAudience {
			t.Errorf("value should default to text: %+v", got[0])
		}
	})

	t.Run("snippet kept opaque", func(t *testing.T) {
		got, err := parseSuggestions("test", `[{"type":"snippet","value":"v","text":"t","snippet":{"field":"goal"}}]`, 3)
		if err != nil {
			t.Fatal(err)
		}
		if string(got[0].Snippet) != `{"field":"goal"}` {
			t.Errorf("snippet payload = %s", got[0].Snippet)
		}
	})
}

func TestParseSuggestionsPassesCountThrough(t *testing.T) {
	three := `[{"value":"a"},{"value":"b"},{"value":"c"}]`
	seven := `[{"value":"a"},{"value":"b"},{"value":"c"},{"value":"d"},{"value":"e"},{"value":"f"},{"value":"g"}]`

	for content, want := range map[string]int{three: 3, seven: 7} {
		got, err := parseSuggestions("test", content, 1)
		if err != nil {
			t.Fatalf("parseSuggestions() error = %v", err)
		}
		if len(got) != want {
			t.Errorf("expected %d suggestions passed through, got %d", want, len(got))
		}
	}
}

func TestParseSuggestionsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not json", "I cannot help with that."},
		{"object without suggestions", `{"items":[{"value":"a"}]}`},
		{"array of strings", `["a","b"]`},
		{"item without value or text", `[{"type":"tone"}]`},
		{"string literal", `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSuggestions("test", tt.content, 1)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected malformed error, got %v", err)
			}
		})
	}
}

func TestNormalizeSuggestionsDropsEmpty(t *testing.T) {
	got := normalizeSuggestions([]types.Suggestion{
		{Value: "  "},
		{Type: "goal", Text: "Ship it"},
	}, 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if got[0].Type != types.SuggestionSnippet || got[0].Value != "Ship it" {
		t.Errorf("unexpected normalization: %+v", got[0])
	}
}

func TestExtractJSONCandidate(t *testing.T) {
	if got := extractJSONCandidate(`text [1,2] more`); got != "[1,2]" {
		t.Errorf("array candidate = %q", got)
	}
	if got := extractJSONCandidate(`text {"a":[1]} more`); got != `{"a":[1]}` {
		t.Errorf("object candidate = %q", got)
	}
	if got := extractJSONCandidate(`no json here`); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

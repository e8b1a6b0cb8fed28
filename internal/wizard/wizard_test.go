package wizard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/types"
)

// fakeGenerator stands in for the orchestrator.
type fakeGenerator struct {
	providers   []string
	prompt      string
	suggestions []types.Suggestion

	mu         sync.Mutex
	requests   []types.PromptRequest
	promptReqs []types.PromptRequest
	prompts    atomic.Int32
	suggests   atomic.Int32
}

func (g *fakeGenerator) AvailableProviders(context.Context) []string { return g.providers }

func (g *fakeGenerator) GenerateSuggestions(_ context.Context, req types.PromptRequest) []types.Suggestion {
	g.suggests.Add(1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.suggestions
}

func (g *fakeGenerator) GeneratePrompt(_ context.Context, req types.PromptRequest) string {
	g.prompts.Add(1)
	g.mu.Lock()
	g.promptReqs = append(g.promptReqs, req)
	g.mu.Unlock()
	return g.prompt
}

// blockingGenerator holds GeneratePrompt until release is closed.
type blockingGenerator struct {
	*fakeGenerator
	started chan struct{}
	release chan struct{}
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{
		fakeGenerator: &fakeGenerator{providers: []string{"openai"}},
		started:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
}

func (g *blockingGenerator) GeneratePrompt(context.Context, types.PromptRequest) string {
	g.started <- struct{}{}
	<-g.release
	return "AI prompt"
}

func newSession(t *testing.T, gen Generator, saver PromptSaver) (*Manager, *Session) {
	t.Helper()
	m := NewManager(Config{Generator: gen, Saver: saver, Debounce: 10 * time.Millisecond})
	t.Cleanup(m.Close)
	s, err := m.Session(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	return m, s
}

func strp(s string) *string { return &s }

func TestCategoryRequiredToLeaveFirstStep(t *testing.T) {
	_, s := newSession(t, nil, nil)

	st, err := s.Next(context.Background())
	if !errors.Is(err, ErrCategoryRequired) {
		t.Fatalf("Next() error = %v, want ErrCategoryRequired", err)
	}
	if st.Step != types.StepCategory {
		t.Errorf("step = %d, want 0", st.Step)
	}

	if _, err := s.Update(context.Background(), Patch{Category: strp("coding")}); err != nil {
		t.Fatal(err)
	}
	st, err = s.Next(context.Background())
	if err != nil || st.Step != types.StepToneAudience {
		t.Errorf("Next() = %d, %v", st.Step, err)
	}
}

func TestBackFloorsAtZero(t *testing.T) {
	_, s := newSession(t, nil, nil)
	st, err := s.Back(context.Background())
	if err != nil || st.Step != 0 {
		t.Errorf("Back() = %d, %v", st.Step, err)
	}
}

func TestScenarioTemplateFallbackForCreativeWriting(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	_, s := newSession(t, gen, nil)

	s.Update(ctx, Patch{Category: strp("creative_writing"), Components: map[string]string{"theme": "redemption"}})
	s.Next(ctx)
	s.Next(ctx)
	st, err := s.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Step != types.StepPreview {
		t.Fatalf("step = %d, want 3", st.Step)
	}
	if want := "Write a creative story about redemption."; st.GeneratedPrompt != want {
		t.Errorf("GeneratedPrompt = %q, want %q", st.GeneratedPrompt, want)
	}
	if gen.prompts.Load() != 0 {
		t.Error("no provider configured, AI generation must not be attempted")
	}
}

func TestAIPromptPreferredAndFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{providers: []string{"openai"}, prompt: "  AI prompt  "}
	_, s := newSession(t, gen, nil)

	s.Update(ctx, Patch{Category: strp("coding"), Components: map[string]string{"language": "Go", "task": "parse logs"}})
	s.Next(ctx)
	s.Next(ctx)
	st, _ := s.Next(ctx)
	if st.GeneratedPrompt != "AI prompt" {
		t.Errorf("GeneratedPrompt = %q", st.GeneratedPrompt)
	}
	gen.mu.Lock()
	last := gen.promptReqs[len(gen.promptReqs)-1]
	gen.mu.Unlock()
	if last.StepValue() != types.StepPreview || last.Components["language"] != "Go" {
		t.Errorf("unexpected generation request: %+v", last)
	}

	// Provider configured but producing nothing.
	gen.prompt = ""
	s.Back(ctx)
	st, err := s.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Write Go code to parse logs."; st.GeneratedPrompt != want {
		t.Errorf("GeneratedPrompt = %q, want %q", st.GeneratedPrompt, want)
	}
}

func TestNextAtPreviewStays(t *testing.T) {
	ctx := context.Background()
	_, s := newSession(t, nil, nil)
	s.Update(ctx, Patch{Category: strp("business")})
	for i := 0; i < 5; i++ {
		s.Next(ctx)
	}
	if st := s.State(); st.Step != types.StepPreview {
		t.Errorf("step = %d", st.Step)
	}
}

func TestApplySuggestionRouting(t *testing.T) {
	ctx := context.Background()
	_, s := newSession(t, nil, nil)

	s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionCategory, Value: "business"})
	s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionTone, Value: "formal"})
	s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionAudience, Text: "Investors"})

	s.Update(ctx, Patch{Components: map[string]string{"purpose": "a funding pitch"}})
	st, _ := s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionSnippet, Value: "Revenue growth"})

	f := st.Form
	if f.Category != "business" || f.Tone != "formal" || f.Audience != "Investors" {
		t.Errorf("unexpected form: %+v", f)
	}
	if f.Components["key_points"] != "Revenue growth" {
		t.Errorf("snippet should fill the first empty field, got %+v", f.Components)
	}

	s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionSnippet, Value: "Series A"})
	st, _ = s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionSnippet, Value: "Close by Q3"})
	if st.Form.Components["context"] != "Series A" || st.Form.Goal != "Close by Q3" {
		t.Errorf("with every field filled the snippet goes to the goal: %+v", st.Form)
	}
}

func TestApplySnippetAtPreviewGoesToGoal(t *testing.T) {
	ctx := context.Background()
	_, s := newSession(t, nil, nil)
	s.Update(ctx, Patch{Category: strp("coding")})
	s.Next(ctx)
	s.Next(ctx)
	s.Next(ctx)

	st, _ := s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionSnippet, Value: "tests", Text: "Add tests"})
	if st.Form.Goal != "Add tests" || st.Form.Component("language") != "" {
		t.Errorf("unexpected form: %+v", st.Form)
	}
}

func TestApplySnippetInsertsText(t *testing.T) {
	ctx := context.Background()
	_, s := newSession(t, nil, nil)
	s.Update(ctx, Patch{Category: strp("business")})
	s.Next(ctx)
	s.Next(ctx)
	s.Next(ctx)

	fallback := providers.FallbackSuggestions(types.StepPreview)[0]
	st, err := s.ApplySuggestion(ctx, fallback)
	if err != nil {
		t.Fatal(err)
	}
	if st.Form.Goal != "Include two concrete examples." {
		t.Errorf("goal = %q, want the snippet sentence", st.Form.Goal)
	}

	// A snippet without text falls back to its value.
	st, _ = s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionSnippet, Value: "Be brief."})
	if st.Form.Goal != "Be brief." {
		t.Errorf("goal = %q, want value fallback", st.Form.Goal)
	}

	// Selections keep storing the value.
	st, _ = s.ApplySuggestion(ctx, types.Suggestion{Type: types.SuggestionTone, Value: "formal", Text: "Formal"})
	if st.Form.Tone != "formal" {
		t.Errorf("tone = %q, want the value", st.Form.Tone)
	}
}

func TestStatePersistsAcrossManagers(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "wizard.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	states := store.NewSessionStore(db)

	m1 := NewManager(Config{States: states})
	s, _ := m1.Session(ctx, "abc")
	s.Update(ctx, Patch{Category: strp("creative_writing"), Tone: strp("Dark"), Components: map[string]string{"setting": "a lighthouse"}})
	s.Next(ctx)
	s.Next(ctx)
	s.Next(ctx)
	want := s.State()
	m1.Close()

	m2 := NewManager(Config{States: states})
	defer m2.Close()
	restored, err := m2.Session(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	got := restored.State()
	if got.Step != want.Step || got.GeneratedPrompt != want.GeneratedPrompt || got.Form.Component("setting") != "a lighthouse" {
		t.Errorf("restored %+v, want %+v", got, want)
	}
	if got.GeneratedPrompt != "Write a dark creative story set in a lighthouse." {
		t.Errorf("GeneratedPrompt = %q", got.GeneratedPrompt)
	}

	if _, err := restored.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := states.Get(ctx, "abc", KeyFormData); ok {
		t.Error("reset should clear the persisted copy")
	}
}

func TestLoadIgnoresBadValues(t *testing.T) {
	ctx := context.Background()
	states := NewMemoryStateStore()
	states.Set(ctx, "x", KeyFormData, "{not json")
	states.Set(ctx, "x", KeyCurrentStep, "9")
	states.Set(ctx, "x", KeyGeneratedPrompt, "kept")

	m := NewManager(Config{States: states})
	defer m.Close()
	s, err := m.Session(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if st.Step != 0 || st.Form.Category != "" || st.GeneratedPrompt != "kept" {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := credentials.WithUser(context.Background(), "alice")
	db, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	prompts := store.NewPromptStore(db)

	_, s := newSession(t, nil, prompts)
	if _, err := s.Save(ctx, SaveOptions{}); !errors.Is(err, ErrNothingToSave) {
		t.Errorf("Save() before generation error = %v", err)
	}

	s.Update(ctx, Patch{Category: strp("coding"), Components: map[string]string{"language": "Go"}})
	s.Next(ctx)
	s.Next(ctx)
	s.Next(ctx)
	edited := "Write Go code.\nKeep it short."
	s.Update(ctx, Patch{GeneratedPrompt: &edited})

	res, err := s.Save(ctx, SaveOptions{Tags: []string{"go"}, Then: ThenLibrary})
	if err != nil {
		t.Fatal(err)
	}
	if res.Location != LibraryLocation || res.State.Step != types.StepPreview {
		t.Errorf("library save should keep state: %+v", res)
	}

	loaded, err := prompts.Get(ctx, "alice", res.Prompt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Text != edited {
		t.Errorf("saved text = %q, want %q", loaded.Text, edited)
	}
	if loaded.Title != "Write Go code." || loaded.Category != "coding" {
		t.Errorf("unexpected saved prompt: %+v", loaded)
	}

	res, err = s.Save(ctx, SaveOptions{Title: "Again", Then: ThenNew})
	if err != nil {
		t.Fatal(err)
	}
	if res.State.Step != 0 || res.State.GeneratedPrompt != "" {
		t.Errorf("new save should reset: %+v", res.State)
	}

	if _, err := s.Save(ctx, SaveOptions{Then: "elsewhere"}); !errors.Is(err, ErrUnknownThen) {
		t.Errorf("Save() error = %v", err)
	}
}

func TestSuggestionsUseCurrentStep(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{suggestions: []types.Suggestion{{Type: types.SuggestionTone, Value: "warm"}}}
	_, s := newSession(t, gen, nil)
	s.Update(ctx, Patch{Category: strp("marketing")})
	s.Next(ctx)

	got := s.Suggestions(ctx)
	if len(got) != 1 {
		t.Fatalf("Suggestions() = %+v", got)
	}
	gen.mu.Lock()
	last := gen.requests[len(gen.requests)-1]
	gen.mu.Unlock()
	if last.StepValue() != 1 || last.Category != "marketing" {
		t.Errorf("unexpected request: %+v", last)
	}
}

func TestUpdateRefreshesSuggestionsInBackground(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{suggestions: []types.Suggestion{{Type: types.SuggestionCategory, Value: "coding"}}}
	_, s := newSession(t, gen, nil)

	for _, tone := range []string{"w", "wa", "war", "warm"} {
		s.Update(ctx, Patch{Tone: strp(tone)})
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(s.View().Suggestions) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("suggestions never refreshed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := gen.suggests.Load(); n != 1 {
		t.Errorf("rapid edits should collapse into one lookup, got %d", n)
	}
}

func TestSessionIDRequired(t *testing.T) {
	m := NewManager(Config{})
	defer m.Close()
	if _, err := m.Session(context.Background(), " "); err == nil {
		t.Error("expected error for empty session id")
	}
	a, _ := m.Session(context.Background(), "same")
	b, _ := m.Session(context.Background(), "same")
	if a != b {
		t.Error("sessions should be reused")
	}
}

func TestNextKeepsSessionReadableDuringGeneration(t *testing.T) {
	ctx := context.Background()
	gen := newBlockingGenerator()
	_, s := newSession(t, gen, nil)
	s.Update(ctx, Patch{Category: strp("coding")})
	s.Next(ctx)
	s.Next(ctx)

	done := make(chan State, 1)
	go func() {
		st, _ := s.Next(ctx)
		done <- st
	}()
	<-gen.started

	views := make(chan View, 1)
	go func() { views <- s.View() }()
	select {
	case v := <-views:
		if v.State.Step != types.StepDetails {
			t.Errorf("step = %d while generating, want %d", v.State.Step, types.StepDetails)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("View blocked on prompt generation")
	}

	close(gen.release)
	st := <-done
	if st.Step != types.StepPreview || st.GeneratedPrompt != "AI prompt" {
		t.Errorf("unexpected state after generation: step %d prompt %q", st.Step, st.GeneratedPrompt)
	}
}

func TestNextDropsPromptWhenStepMovedDuringGeneration(t *testing.T) {
	ctx := context.Background()
	gen := newBlockingGenerator()
	_, s := newSession(t, gen, nil)
	s.Update(ctx, Patch{Category: strp("coding")})
	s.Next(ctx)
	s.Next(ctx)

	done := make(chan State, 1)
	go func() {
		st, _ := s.Next(ctx)
		done <- st
	}()
	<-gen.started

	if st, err := s.Back(ctx); err != nil || st.Step != types.StepToneAudience {
		t.Fatalf("Back() = %d, %v", st.Step, err)
	}
	close(gen.release)

	st := <-done
	if st.Step != types.StepToneAudience || st.GeneratedPrompt != "" {
		t.Errorf("stale generation applied: step %d prompt %q", st.Step, st.GeneratedPrompt)
	}
	if got := s.State(); got.Step != types.StepToneAudience || got.GeneratedPrompt != "" {
		t.Errorf("session state changed by stale generation: %+v", got)
	}
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Config{IdleTimeout: time.Minute, Debounce: 10 * time.Millisecond})
	t.Cleanup(m.Close)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	a, _ := m.Session(ctx, "a")
	if _, err := a.Update(ctx, Patch{Category: strp("coding")}); err != nil {
		t.Fatal(err)
	}
	m.Session(ctx, "b")

	now = now.Add(30 * time.Second)
	m.Session(ctx, "b")
	now = now.Add(45 * time.Second)
	m.Session(ctx, "c")

	if n := m.Len(); n != 2 {
		t.Fatalf("Len() = %d, want 2 after evicting the idle session", n)
	}

	restored, err := m.Session(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if restored == a {
		t.Error("evicted session should be rebuilt")
	}
	if got := restored.State().Form.Category; got != "coding" {
		t.Errorf("restored category = %q, want persisted value", got)
	}
}

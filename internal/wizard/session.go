package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/types"
)

var (
	// ErrCategoryRequired is returned when leaving the first step without a category.
	ErrCategoryRequired = errors.New("choose a category before continuing")
	// ErrNothingToSave is returned when saving before a prompt was generated.
	ErrNothingToSave = errors.New("no generated prompt to save")
	// ErrUnknownThen is returned for an unrecognized post-save choice.
	ErrUnknownThen = errors.New("unknown post-save action")
)

// Generator is the part of the orchestrator the wizard uses.
type Generator interface {
	AvailableProviders(ctx context.Context) []string
	GenerateSuggestions(ctx context.Context, req types.PromptRequest) []types.Suggestion
	GeneratePrompt(ctx context.Context, req types.PromptRequest) string
}

// PromptSaver receives finished prompts. *store.PromptStore implements it.
type PromptSaver interface {
	Create(ctx context.Context, p store.NewPrompt) (*store.Prompt, error)
}

// Then is what happens after a successful save.
type Then string

const (
	// ThenLibrary keeps the wizard as is and points the user at their library.
	ThenLibrary Then = "library"
	// ThenNew resets the wizard for another prompt.
	ThenNew Then = "new"
)

// LibraryLocation is where saved prompts are listed.
const LibraryLocation = "/api/prompts?scope=mine"

// SaveOptions carries the fields the user fills in when saving.
type SaveOptions struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`
	Then        Then     `json:"then"`
}

// SaveResult reports the saved prompt and where to go next.
type SaveResult struct {
	Prompt   *store.Prompt `json:"prompt"`
	Then     Then          `json:"then"`
	Location string        `json:"location,omitempty"`
	State    State         `json:"state"`
}

// Patch edits form fields. Nil fields are left alone; an empty component
// value removes that component.
type Patch struct {
	Category        *string           `json:"category,omitempty"`
	Tone            *string           `json:"tone,omitempty"`
	Audience        *string           `json:"audience,omitempty"`
	Goal            *string           `json:"goal,omitempty"`
	Components      map[string]string `json:"components,omitempty"`
	GeneratedPrompt *string           `json:"generated_prompt,omitempty"`
}

// View is a session snapshot for display.
type View struct {
	ID          string             `json:"id"`
	State       State              `json:"state"`
	Fields      []string           `json:"fields"`
	Suggestions []types.Suggestion `json:"suggestions"`
}

// Session is one user's pass through the wizard. Every change is persisted
// before the method returns.
type Session struct {
	id     string
	gen    Generator
	saver  PromptSaver
	states StateStore
	logger *slog.Logger

	debouncer *Debouncer

	mu          sync.Mutex
	state       State
	suggestions []types.Suggestion
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// View returns the state plus the latest background suggestions.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	sugg := make([]types.Suggestion, len(s.suggestions))
	copy(sugg, s.suggestions)
	return View{
		ID:          s.id,
		State:       s.state.clone(),
		Fields:      DetailFields(s.state.Form.Category),
		Suggestions: sugg,
	}
}

// Next advances one step. Leaving the details step regenerates the final
// prompt, from a provider when one answers and from the template otherwise.
// The session stays readable while the provider works; if another call moved
// the wizard in the meantime the generated prompt is dropped.
func (s *Session) Next(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Step {
	case types.StepCategory:
		if strings.TrimSpace(s.state.Form.Category) == "" {
			return s.state.clone(), ErrCategoryRequired
		}
	case types.StepDetails:
		form := s.state.Form.clone()
		s.mu.Unlock()
		prompt := s.finalPrompt(ctx, form)
		s.mu.Lock()
		if s.state.Step != types.StepDetails {
			return s.state.clone(), nil
		}
		s.state.GeneratedPrompt = prompt
	case types.StepPreview:
		return s.state.clone(), nil
	}
	s.state.Step++
	return s.persist(ctx)
}

// Back moves one step back. The first step stays put.
func (s *Session) Back(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Step > types.StepCategory {
		s.state.Step--
	}
	return s.persist(ctx)
}

// Update applies a field edit and schedules a suggestion refresh.
func (s *Session) Update(ctx context.Context, p Patch) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &s.state.Form
	if p.Category != nil {
		f.Category = strings.TrimSpace(*p.Category)
	}
	if p.Tone != nil {
		f.Tone = *p.Tone
	}
	if p.Audience != nil {
		f.Audience = *p.Audience
	}
	if p.Goal != nil {
		f.Goal = *p.Goal
	}
	for k, v := range p.Components {
		if f.Components == nil {
			f.Components = make(map[string]string)
		}
		if strings.TrimSpace(v) == "" {
			delete(f.Components, k)
			continue
		}
		f.Components[k] = v
	}
	if p.GeneratedPrompt != nil {
		s.state.GeneratedPrompt = *p.GeneratedPrompt
	}

	st, err := s.persist(ctx)
	if err != nil {
		return st, err
	}
	if s.debouncer != nil && s.gen != nil {
		s.debouncer.Submit(context.WithoutCancel(ctx), s.Suggestions, s.setSuggestions)
	}
	return st, nil
}

// ApplySuggestion writes a clicked suggestion into the form.
func (s *Session) ApplySuggestion(ctx context.Context, sugg types.Suggestion) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.state.Form, s.state.Step, sugg)
	return s.persist(ctx)
}

// Suggestions looks up suggestions for the current step.
func (s *Session) Suggestions(ctx context.Context) []types.Suggestion {
	s.mu.Lock()
	req := s.state.Form.Request(s.state.Step)
	s.mu.Unlock()

	if s.gen == nil {
		return []types.Suggestion{}
	}
	return s.gen.GenerateSuggestions(ctx, req)
}

// Reset clears the wizard and its persisted copy.
func (s *Session) Reset(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx)
}

// Save hands the preview text to the prompt store exactly as shown.
func (s *Session) Save(ctx context.Context, opts SaveOptions) (*SaveResult, error) {
	if opts.Then == "" {
		opts.Then = ThenLibrary
	}
	if opts.Then != ThenLibrary && opts.Then != ThenNew {
		return nil, fmt.Errorf("%w: %q", ErrUnknownThen, opts.Then)
	}
	if s.saver == nil {
		return nil, errors.New("prompt store not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.state.GeneratedPrompt
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToSave
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = defaultTitle(text)
	}

	saved, err := s.saver.Create(ctx, store.NewPrompt{
		UserID:      credentials.UserFrom(ctx),
		Title:       title,
		Text:        text,
		Category:    s.state.Form.Category,
		IsPublic:    opts.IsPublic,
		Tags:        opts.Tags,
		Description: opts.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("save prompt: %w", err)
	}

	result := &SaveResult{Prompt: saved, Then: opts.Then}
	if opts.Then == ThenNew {
		st, err := s.reset(ctx)
		if err != nil {
			return nil, err
		}
		result.State = st
		return result, nil
	}
	result.Location = LibraryLocation
	result.State = s.state.clone()
	return result, nil
}

func (s *Session) reset(ctx context.Context) (State, error) {
	s.state = InitialState()
	s.suggestions = nil
	if err := clearState(ctx, s.states, s.id); err != nil {
		return s.state.clone(), fmt.Errorf("clear wizard state: %w", err)
	}
	return s.state.clone(), nil
}

func (s *Session) finalPrompt(ctx context.Context, f Form) string {
	if s.gen != nil && len(s.gen.AvailableProviders(ctx)) > 0 {
		if text := strings.TrimSpace(s.gen.GeneratePrompt(ctx, f.Request(types.StepPreview))); text != "" {
			return text
		}
		s.logger.Info("AI prompt generation unavailable, using template", "session", s.id, "category", f.Category)
	}
	return BuildPrompt(f)
}

func (s *Session) setSuggestions(sugg []types.Suggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = sugg
}

// persist writes the state; callers hold s.mu.
func (s *Session) persist(ctx context.Context) (State, error) {
	if err := saveState(ctx, s.states, s.id, s.state); err != nil {
		return s.state.clone(), fmt.Errorf("persist wizard state: %w", err)
	}
	return s.state.clone(), nil
}

func defaultTitle(text string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])
	if utf8.RuneCountInString(line) <= 60 {
		return line
	}
	return string([]rune(line)[:57]) + "..."
}

package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/svcctx"
	"github.com/jackzampolin/promptiverse/internal/types"
	"github.com/jackzampolin/promptiverse/internal/wizard"
)

// Wizard actions that take no request body.
const (
	WizardNext        = "next"
	WizardBack        = "back"
	WizardReset       = "reset"
	WizardSuggestions = "suggestions"
)

// wizardSession resolves the session named in the path. Sessions are keyed
// per user so two users cannot share one by guessing its name.
func wizardSession(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	mgr := svcctx.WizardFrom(r.Context())
	if mgr == nil {
		writeError(w, http.StatusInternalServerError, "wizard not available")
		return nil, false
	}
	id := credentials.UserFrom(r.Context()) + "/" + r.PathValue("session")
	s, err := mgr.Session(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return s, true
}

// writeWizardError maps wizard errors to a status code.
func writeWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wizard.ErrCategoryRequired),
		errors.Is(err, wizard.ErrNothingToSave),
		errors.Is(err, wizard.ErrUnknownThen),
		errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func wizardPath(session, action string) string {
	p := "/api/wizard/" + url.PathEscape(session)
	if action != "" {
		p += "/" + action
	}
	return p
}

// GetWizardEndpoint handles GET /api/wizard/{session}.
type GetWizardEndpoint struct{}

func (e *GetWizardEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/wizard/{session}", e.handler
}

func (e *GetWizardEndpoint) RequiresInit() bool { return true }

func (e *GetWizardEndpoint) Group() string { return "wizard" }

// handler godoc
//
//	@Summary		Show wizard state
//	@Description	Current step, form, generated prompt and the latest background suggestions
//	@Tags			wizard
//	@Produce		json
//	@Param			session	path		string	true	"Session name"
//	@Success		200		{object}	wizard.View
//	@Router			/api/wizard/{session} [get]
func (e *GetWizardEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := wizardSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (e *GetWizardEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session>",
		Short: "Show wizard state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp wizard.View
			if err := client.Get(cmd.Context(), wizardPath(args[0], ""), &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// UpdateWizardEndpoint handles PATCH /api/wizard/{session}.
type UpdateWizardEndpoint struct{}

func (e *UpdateWizardEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/wizard/{session}", e.handler
}

func (e *UpdateWizardEndpoint) RequiresInit() bool { return true }

func (e *UpdateWizardEndpoint) Group() string { return "wizard" }

// handler godoc
//
//	@Summary		Edit wizard fields
//	@Description	Omitted fields are left alone; an empty component value removes it. Suggestions refresh in the background.
//	@Tags			wizard
//	@Accept			json
//	@Produce		json
//	@Param			session	path		string			true	"Session name"
//	@Param			request	body		wizard.Patch	true	"Fields to change"
//	@Success		200		{object}	wizard.View
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/wizard/{session} [patch]
func (e *UpdateWizardEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var patch wizard.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := wizardSession(w, r)
	if !ok {
		return
	}
	if _, err := s.Update(r.Context(), patch); err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (e *UpdateWizardEndpoint) Command(getServerURL func() string) *cobra.Command {
	var category, tone, audience, goal, generated string
	var components map[string]string
	cmd := &cobra.Command{
		Use:   "set <session>",
		Short: "Edit wizard fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch wizard.Patch
			flags := cmd.Flags()
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("tone") {
				patch.Tone = &tone
			}
			if flags.Changed("audience") {
				patch.Audience = &audience
			}
			if flags.Changed("goal") {
				patch.Goal = &goal
			}
			if flags.Changed("prompt") {
				patch.GeneratedPrompt = &generated
			}
			patch.Components = components

			client := api.NewClient(getServerURL())
			var resp wizard.View
			if err := client.Patch(cmd.Context(), wizardPath(args[0], ""), patch, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&tone, "tone", "", "Tone")
	cmd.Flags().StringVar(&audience, "audience", "", "Audience")
	cmd.Flags().StringVar(&goal, "goal", "", "Goal")
	cmd.Flags().StringVar(&generated, "prompt", "", "Edit the generated prompt")
	cmd.Flags().StringToStringVar(&components, "component", nil, "Detail fields, e.g. --component theme=loss")
	return cmd
}

// WizardActionEndpoint handles POST /api/wizard/{session}/{next|back|reset|suggestions}.
type WizardActionEndpoint struct {
	Action string
}

func (e *WizardActionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/wizard/{session}/" + e.Action, e.handler
}

func (e *WizardActionEndpoint) RequiresInit() bool { return true }

func (e *WizardActionEndpoint) Group() string { return "wizard" }

func (e *WizardActionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := wizardSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var err error
	switch e.Action {
	case WizardNext:
		_, err = s.Next(ctx)
	case WizardBack:
		_, err = s.Back(ctx)
	case WizardReset:
		_, err = s.Reset(ctx)
	case WizardSuggestions:
		writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: s.Suggestions(ctx)})
		return
	default:
		writeError(w, http.StatusNotFound, "unknown wizard action: "+e.Action)
		return
	}
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (e *WizardActionEndpoint) Command(getServerURL func() string) *cobra.Command {
	short := map[string]string{
		WizardNext:        "Advance to the next step",
		WizardBack:        "Go back one step",
		WizardReset:       "Start over",
		WizardSuggestions: "Suggestions for the current step",
	}[e.Action]
	return &cobra.Command{
		Use:   e.Action + " <session>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp any
			if e.Action == WizardSuggestions {
				resp = &SuggestionsResponse{}
			} else {
				resp = &wizard.View{}
			}
			if err := client.Post(cmd.Context(), wizardPath(args[0], e.Action), nil, resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// ApplySuggestionEndpoint handles POST /api/wizard/{session}/apply.
type ApplySuggestionEndpoint struct{}

func (e *ApplySuggestionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/wizard/{session}/apply", e.handler
}

func (e *ApplySuggestionEndpoint) RequiresInit() bool { return true }

func (e *ApplySuggestionEndpoint) Group() string { return "wizard" }

// handler godoc
//
//	@Summary		Apply a suggestion
//	@Description	Writes a clicked suggestion into the field it targets for the current step
//	@Tags			wizard
//	@Accept			json
//	@Produce		json
//	@Param			session	path		string				true	"Session name"
//	@Param			request	body		types.Suggestion	true	"Suggestion"
//	@Success		200		{object}	wizard.View
//	@Router			/api/wizard/{session}/apply [post]
func (e *ApplySuggestionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var sugg types.Suggestion
	if err := decodeJSON(r, &sugg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sugg.Value == "" && sugg.Text == "" {
		writeError(w, http.StatusBadRequest, "suggestion value is required")
		return
	}
	s, ok := wizardSession(w, r)
	if !ok {
		return
	}
	if _, err := s.ApplySuggestion(r.Context(), sugg); err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (e *ApplySuggestionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "apply <session> <value>",
		Short: "Apply a suggestion to the current step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			sugg := types.Suggestion{Type: types.SuggestionType(typ), Value: args[1], Text: args[1]}
			var resp wizard.View
			if err := client.Post(cmd.Context(), wizardPath(args[0], "apply"), sugg, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "category, tone, audience or snippet (default: the step's type)")
	return cmd
}

// SaveWizardEndpoint handles POST /api/wizard/{session}/save.
type SaveWizardEndpoint struct{}

func (e *SaveWizardEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/wizard/{session}/save", e.handler
}

func (e *SaveWizardEndpoint) RequiresInit() bool { return true }

func (e *SaveWizardEndpoint) Group() string { return "wizard" }

// handler godoc
//
//	@Summary		Save the generated prompt
//	@Description	Stores the preview text in the caller's library. then=new resets the wizard.
//	@Tags			wizard
//	@Accept			json
//	@Produce		json
//	@Param			session	path		string				true	"Session name"
//	@Param			request	body		wizard.SaveOptions	false	"Title, tags and what to do next"
//	@Success		201		{object}	wizard.SaveResult
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/wizard/{session}/save [post]
func (e *SaveWizardEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var opts wizard.SaveOptions
	if err := decodeJSON(r, &opts); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := wizardSession(w, r)
	if !ok {
		return
	}
	result, err := s.Save(r.Context(), opts)
	if err != nil {
		writeWizardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (e *SaveWizardEndpoint) Command(getServerURL func() string) *cobra.Command {
	var opts wizard.SaveOptions
	var then string
	cmd := &cobra.Command{
		Use:   "save <session>",
		Short: "Save the generated prompt to your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Then = wizard.Then(then)
			client := api.NewClient(getServerURL())
			var resp wizard.SaveResult
			if err := client.Post(cmd.Context(), wizardPath(args[0], "save"), opts, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "Title (default: first line of the prompt)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Description")
	cmd.Flags().BoolVar(&opts.IsPublic, "public", false, "Share with everyone")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "Tags (repeatable)")
	cmd.Flags().StringVar(&then, "then", string(wizard.ThenLibrary), "library or new")
	return cmd
}

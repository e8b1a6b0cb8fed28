package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/notify"
	"github.com/jackzampolin/promptiverse/internal/orchestrator"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/svcctx"
	"github.com/jackzampolin/promptiverse/internal/types"
)

// ProvidersResponse lists providers for the calling user.
type ProvidersResponse struct {
	Known      []string `json:"known"`
	Available  []string `json:"available"`
	Generating bool     `json:"generating"`
}

// SuggestionsResponse carries suggestions plus any notices raised on the way.
type SuggestionsResponse struct {
	Suggestions []types.Suggestion `json:"suggestions"`
	Notices     []notify.Notice    `json:"notices,omitempty"`
}

// GenerateResponse carries a generated prompt. An empty prompt means no
// provider produced one; the notices say why.
type GenerateResponse struct {
	Prompt  string          `json:"prompt"`
	Notices []notify.Notice `json:"notices,omitempty"`
}

// ProviderGenerateRequest is the body for POST /api/providers/{name}/generate.
type ProviderGenerateRequest struct {
	Mode    string              `json:"mode"`
	Request types.PromptRequest `json:"request"`
}

// ProviderGenerateResponse wraps a single provider result.
type ProviderGenerateResponse struct {
	orchestrator.ProviderResult
	Notices []notify.Notice `json:"notices,omitempty"`
}

// ListProvidersEndpoint handles GET /api/providers.
type ListProvidersEndpoint struct{}

func (e *ListProvidersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/providers", e.handler
}

func (e *ListProvidersEndpoint) RequiresInit() bool { return true }

func (e *ListProvidersEndpoint) Group() string { return "providers" }

// handler godoc
//
//	@Summary		List providers
//	@Description	Known providers and the ones the caller has a key for, in fallback order
//	@Tags			providers
//	@Produce		json
//	@Success		200	{object}	ProvidersResponse
//	@Router			/api/providers [get]
func (e *ListProvidersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusInternalServerError, "orchestrator not available")
		return
	}
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Known:      providers.KnownProviders,
		Available:  orch.AvailableProviders(r.Context()),
		Generating: orch.IsGenerating(),
	})
}

func (e *ListProvidersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List providers and which ones have a key",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProvidersResponse
			if err := client.Get(cmd.Context(), "/api/providers", &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// SuggestionsEndpoint handles POST /api/suggestions.
type SuggestionsEndpoint struct{}

func (e *SuggestionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/suggestions", e.handler
}

func (e *SuggestionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Generate suggestions
//	@Description	Suggestions for a wizard step. Always succeeds; falls back to static suggestions.
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.PromptRequest	true	"Prompt request"
//	@Success		200		{object}	SuggestionsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/suggestions [post]
func (e *SuggestionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req types.PromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusInternalServerError, "orchestrator not available")
		return
	}

	col := &notify.Collector{}
	ctx := notify.WithCollector(r.Context(), col)
	out := orch.GenerateSuggestions(ctx, req)

	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: out, Notices: col.Notices()})
}

func (e *SuggestionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Get suggestions for a wizard step",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SuggestionsResponse
			if err := client.Post(cmd.Context(), "/api/suggestions", rf.request(cmd), &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	rf.register(cmd)
	return cmd
}

// GeneratePromptEndpoint handles POST /api/generate.
type GeneratePromptEndpoint struct{}

func (e *GeneratePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate", e.handler
}

func (e *GeneratePromptEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Generate a prompt
//	@Description	Final prompt text from the first provider that answers. Empty when none do.
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.PromptRequest	true	"Prompt request"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/generate [post]
func (e *GeneratePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req types.PromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusInternalServerError, "orchestrator not available")
		return
	}

	col := &notify.Collector{}
	ctx := notify.WithCollector(r.Context(), col)
	prompt := orch.GeneratePrompt(ctx, req)

	writeJSON(w, http.StatusOK, GenerateResponse{Prompt: prompt, Notices: col.Notices()})
}

func (e *GeneratePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a final prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp GenerateResponse
			if err := client.Post(cmd.Context(), "/api/generate", rf.request(cmd), &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatYAML && resp.Prompt != "" && len(resp.Notices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), resp.Prompt)
				return nil
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	rf.register(cmd)
	return cmd
}

// ProviderGenerateEndpoint handles POST /api/providers/{name}/generate.
type ProviderGenerateEndpoint struct{}

func (e *ProviderGenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/providers/{name}/generate", e.handler
}

func (e *ProviderGenerateEndpoint) RequiresInit() bool { return true }

func (e *ProviderGenerateEndpoint) Group() string { return "providers" }

// handler godoc
//
//	@Summary		Call one provider
//	@Description	Suggestions, prompt or a raw test prompt from a single provider, without fallback or caching
//	@Tags			providers
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string					true	"Provider name"
//	@Param			request	body		ProviderGenerateRequest	true	"Mode and request"
//	@Success		200		{object}	ProviderGenerateResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/providers/{name}/generate [post]
func (e *ProviderGenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("name"))
	if !providers.IsKnown(name) {
		writeError(w, http.StatusNotFound, "unknown provider: "+name)
		return
	}

	var req ProviderGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := orchestrator.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orch := svcctx.OrchestratorFrom(r.Context())
	if orch == nil {
		writeError(w, http.StatusInternalServerError, "orchestrator not available")
		return
	}

	col := &notify.Collector{}
	ctx := notify.WithCollector(r.Context(), col)
	result := orch.GenerateWithProvider(ctx, name, req.Request, mode)

	writeJSON(w, http.StatusOK, ProviderGenerateResponse{ProviderResult: result, Notices: col.Notices()})
}

func (e *ProviderGenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var rf requestFlags
	var mode, prompt string
	cmd := &cobra.Command{
		Use:   "generate <provider>",
		Short: "Call a single provider (modes: suggestions, prompt, test)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			body := ProviderGenerateRequest{Mode: mode, Request: rf.request(cmd)}
			body.Request.Prompt = prompt
			var resp ProviderGenerateResponse
			path := "/api/providers/" + url.PathEscape(args[0]) + "/generate"
			if err := client.Post(cmd.Context(), path, body, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", "suggestions", "suggestions, prompt or test")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Raw prompt for test mode")
	return cmd
}

// requestFlags binds CLI flags to a PromptRequest.
type requestFlags struct {
	step       int
	category   string
	tone       string
	audience   string
	goal       string
	custom     string
	components map[string]string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.step, "step", 0, "Wizard step (0-3)")
	cmd.Flags().StringVar(&f.category, "category", "", "Prompt category")
	cmd.Flags().StringVar(&f.tone, "tone", "", "Tone")
	cmd.Flags().StringVar(&f.audience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&f.goal, "goal", "", "Goal")
	cmd.Flags().StringVar(&f.custom, "custom", "", "Send this prompt verbatim")
	cmd.Flags().StringToStringVar(&f.components, "component", nil, "Detail fields, e.g. --component theme=loss")
}

func (f *requestFlags) request(cmd *cobra.Command) types.PromptRequest {
	req := types.PromptRequest{
		Category:     f.category,
		Tone:         f.tone,
		Audience:     f.audience,
		Goal:         f.goal,
		Components:   f.components,
		CustomPrompt: f.custom,
	}
	// An unset --step leaves the step undefined, like a caller that has
	// not entered the wizard yet.
	if cmd.Flags().Changed("step") {
		req.Step = types.Step(f.step)
	}
	return req
}

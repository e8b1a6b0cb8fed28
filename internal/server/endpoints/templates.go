package endpoints

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/svcctx"
)

// TemplateResponse represents a single prompt template.
type TemplateResponse struct {
	Key         string   `json:"key"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash,omitempty"`
	IsOverride  bool     `json:"is_override"`
}

// TemplatesListResponse contains all templates.
type TemplatesListResponse struct {
	Templates []TemplateResponse `json:"templates"`
}

// ListTemplatesEndpoint handles GET /api/templates.
type ListTemplatesEndpoint struct{}

func (e *ListTemplatesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates", e.handler
}

func (e *ListTemplatesEndpoint) RequiresInit() bool { return true }

func (e *ListTemplatesEndpoint) Group() string { return "templates" }

// handler godoc
//
//	@Summary		List prompt templates
//	@Description	Every template sent to providers, with config overrides applied
//	@Tags			templates
//	@Produce		json
//	@Success		200	{object}	TemplatesListResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/templates [get]
func (e *ListTemplatesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return
	}

	embedded := resolver.AllEmbedded()

	resp := TemplatesListResponse{
		Templates: make([]TemplateResponse, 0, len(embedded)),
	}
	for _, p := range embedded {
		t := TemplateResponse{
			Key:         p.Key,
			Text:        p.Text,
			Description: p.Description,
			Variables:   p.Variables,
			Hash:        p.Hash,
		}
		if resolved, err := resolver.Resolve(p.Key); err == nil && resolved.IsOverride {
			t.Text = resolved.Text
			t.Variables = resolved.Variables
			t.Hash = resolved.Hash
			t.IsOverride = true
		}
		resp.Templates = append(resp.Templates, t)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListTemplatesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List prompt templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TemplatesListResponse
			if err := client.Get(cmd.Context(), "/api/templates", &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// GetTemplateEndpoint handles GET /api/templates/{key...}.
type GetTemplateEndpoint struct{}

func (e *GetTemplateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/templates/{key...}", e.handler
}

func (e *GetTemplateEndpoint) RequiresInit() bool { return true }

func (e *GetTemplateEndpoint) Group() string { return "templates" }

func (e *GetTemplateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid template key")
		return
	}

	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusInternalServerError, "prompt resolver not available")
		return
	}

	embedded, ok := resolver.GetEmbedded(key)
	if !ok {
		writeError(w, http.StatusNotFound, "template not found: "+key)
		return
	}
	resp := TemplateResponse{
		Key:         embedded.Key,
		Text:        embedded.Text,
		Description: embedded.Description,
		Variables:   embedded.Variables,
		Hash:        embedded.Hash,
	}
	if resolved, err := resolver.Resolve(key); err == nil && resolved.IsOverride {
		resp.Text = resolved.Text
		resp.Variables = resolved.Variables
		resp.Hash = resolved.Hash
		resp.IsOverride = true
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *GetTemplateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a prompt template by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TemplateResponse
			if err := client.Get(cmd.Context(), "/api/templates/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

package endpoints

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/svcctx"
)

// Credential sources.
const (
	SourceUser   = "user"
	SourceConfig = "config"
)

// CredentialInfo describes a stored key without revealing it.
type CredentialInfo struct {
	Provider string `json:"provider"`
	Hint     string `json:"hint"`
	Source   string `json:"source"`
}

// CredentialsResponse lists the caller's keys in fallback order.
type CredentialsResponse struct {
	Credentials []CredentialInfo `json:"credentials"`
}

// PutCredentialRequest is the body for PUT /api/credentials/{provider}.
type PutCredentialRequest struct {
	APIKey string `json:"api_key"`
}

// ListCredentialsEndpoint handles GET /api/credentials.
type ListCredentialsEndpoint struct{}

func (e *ListCredentialsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/credentials", e.handler
}

func (e *ListCredentialsEndpoint) RequiresInit() bool { return true }

func (e *ListCredentialsEndpoint) Group() string { return "credentials" }

// handler godoc
//
//	@Summary		List API keys
//	@Description	The caller's own keys first, then server-wide keys from config. Secrets are masked.
//	@Tags			credentials
//	@Produce		json
//	@Success		200	{object}	CredentialsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/credentials [get]
func (e *ListCredentialsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cs := svcctx.CredentialStoreFrom(ctx)
	if cs == nil {
		writeError(w, http.StatusInternalServerError, "credential store not available")
		return
	}

	own, err := cs.List(ctx, credentials.UserFrom(ctx))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := CredentialsResponse{Credentials: make([]CredentialInfo, 0, len(own))}
	seen := make(map[string]bool)
	for _, c := range own {
		seen[c.Provider] = true
		resp.Credentials = append(resp.Credentials, CredentialInfo{Provider: c.Provider, Hint: c.Hint(), Source: SourceUser})
	}

	if cm := svcctx.ConfigManagerFrom(ctx); cm != nil {
		cfg := cm.Get()
		server := credentials.NewConfigStore(cfg.ResolvedAPIKeys(), cfg.Defaults.ProviderOrder)
		shared, _ := server.List(ctx, "")
		for _, c := range shared {
			if seen[c.Provider] {
				continue
			}
			resp.Credentials = append(resp.Credentials, CredentialInfo{Provider: c.Provider, Hint: c.Hint(), Source: SourceConfig})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListCredentialsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured API keys (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CredentialsResponse
			if err := client.Get(cmd.Context(), "/api/credentials", &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// PutCredentialEndpoint handles PUT /api/credentials/{provider}.
type PutCredentialEndpoint struct{}

func (e *PutCredentialEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/credentials/{provider}", e.handler
}

func (e *PutCredentialEndpoint) RequiresInit() bool { return true }

func (e *PutCredentialEndpoint) Group() string { return "credentials" }

// handler godoc
//
//	@Summary		Store an API key
//	@Description	Adds or replaces the caller's key for a provider. A replaced key keeps its place in the fallback order.
//	@Tags			credentials
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string					true	"Provider name"
//	@Param			request		body		PutCredentialRequest	true	"API key"
//	@Success		200			{object}	CredentialInfo
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/credentials/{provider} [put]
func (e *PutCredentialEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	provider := strings.ToLower(r.PathValue("provider"))
	if !providers.IsKnown(provider) {
		writeError(w, http.StatusBadRequest, "unknown provider: "+provider)
		return
	}

	var req PutCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	ctx := r.Context()
	cs := svcctx.CredentialStoreFrom(ctx)
	if cs == nil {
		writeError(w, http.StatusInternalServerError, "credential store not available")
		return
	}
	if err := cs.Put(ctx, credentials.UserFrom(ctx), provider, req.APIKey); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cred := credentials.Credential{Provider: provider, Secret: req.APIKey}
	writeJSON(w, http.StatusOK, CredentialInfo{Provider: provider, Hint: cred.Hint(), Source: SourceUser})
}

func (e *PutCredentialEndpoint) Command(getServerURL func() string) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CredentialInfo
			path := "/api/credentials/" + url.PathEscape(args[0])
			if err := client.Put(cmd.Context(), path, PutCredentialRequest{APIKey: key}, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "API key")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// DeleteCredentialEndpoint handles DELETE /api/credentials/{provider}.
type DeleteCredentialEndpoint struct{}

func (e *DeleteCredentialEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/credentials/{provider}", e.handler
}

func (e *DeleteCredentialEndpoint) RequiresInit() bool { return true }

func (e *DeleteCredentialEndpoint) Group() string { return "credentials" }

// handler godoc
//
//	@Summary		Remove an API key
//	@Tags			credentials
//	@Param			provider	path	string	true	"Provider name"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/credentials/{provider} [delete]
func (e *DeleteCredentialEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cs := svcctx.CredentialStoreFrom(ctx)
	if cs == nil {
		writeError(w, http.StatusInternalServerError, "credential store not available")
		return
	}
	if err := cs.Delete(ctx, credentials.UserFrom(ctx), r.PathValue("provider")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteCredentialEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove your API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/credentials/"+url.PathEscape(args[0]))
		},
	}
}

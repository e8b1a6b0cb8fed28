package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/svcctx"
)

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return true }

func (e *ListPromptsEndpoint) Group() string { return "prompts" }

// handler godoc
//
//	@Summary		List saved prompts
//	@Description	The caller's prompts and public ones, filtered, sorted and paginated
//	@Tags			prompts
//	@Produce		json
//	@Param			scope		query		string	false	"mine, public, or empty for both"
//	@Param			category	query		string	false	"Filter by category"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Param			q			query		string	false	"Search title, text and description"
//	@Param			favorites	query		bool	false	"Only the caller's favorites"
//	@Param			sort		query		string	false	"created_at (default), updated_at or title"
//	@Param			order		query		string	false	"asc or desc (default)"
//	@Param			limit		query		int		false	"Page size (default 20, max 100)"
//	@Param			offset		query		int		false	"Result offset"
//	@Success		200			{object}	store.ListResult
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ps := svcctx.PromptStoreFrom(r.Context())
	if ps == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}

	q := r.URL.Query()
	opts := store.ListOptions{
		ViewerID: credentials.UserFrom(r.Context()),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Search:   q.Get("q"),
		SortBy:   q.Get("sort"),
	}

	switch scope := store.Scope(q.Get("scope")); scope {
	case store.ScopeVisible, store.ScopeMine, store.ScopePublic:
		opts.Scope = scope
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid scope: %q must be mine or public", scope))
		return
	}

	switch order := strings.ToLower(q.Get("order")); order {
	case "", "desc":
	case "asc":
		opts.Ascending = true
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid order: %q must be asc or desc", order))
		return
	}

	if v := q.Get("favorites"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid favorites filter: %q must be true or false", v))
			return
		}
		opts.FavoritesOnly = b
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q must be an integer", v))
			return
		}
		opts.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset: %q must be an integer", v))
			return
		}
		opts.Offset = offset
	}

	result, err := ps.List(r.Context(), opts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var scope, category, tag, search, sortBy, order string
	var favorites bool
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			params := url.Values{}
			for k, v := range map[string]string{
				"scope": scope, "category": category, "tag": tag,
				"q": search, "sort": sortBy, "order": order,
			} {
				if v != "" {
					params.Set(k, v)
				}
			}
			if favorites {
				params.Set("favorites", "true")
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				params.Set("offset", strconv.Itoa(offset))
			}

			path := "/api/prompts"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var resp store.ListResult
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "mine or public (default both)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVar(&search, "search", "", "Search text")
	cmd.Flags().StringVar(&sortBy, "sort", "", "created_at, updated_at or title")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorites")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset")
	return cmd
}

// CreatePromptEndpoint handles POST /api/prompts.
type CreatePromptEndpoint struct{}

func (e *CreatePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/prompts", e.handler
}

func (e *CreatePromptEndpoint) RequiresInit() bool { return true }

func (e *CreatePromptEndpoint) Group() string { return "prompts" }

// handler godoc
//
//	@Summary		Save a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		store.NewPrompt	true	"Prompt"
//	@Success		201		{object}	store.Prompt
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/prompts [post]
func (e *CreatePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req store.NewPrompt
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Owner always comes from the request identity.
	req.UserID = credentials.UserFrom(r.Context())

	ps := svcctx.PromptStoreFrom(r.Context())
	if ps == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}

	p, err := ps.Create(r.Context(), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (e *CreatePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req store.NewPrompt
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Save a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Title = args[0]
			client := api.NewClient(getServerURL())
			var resp store.Prompt
			if err := client.Post(cmd.Context(), "/api/prompts", req, &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&req.Text, "text", "", "Prompt text")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().BoolVar(&req.IsPublic, "public", false, "Share with everyone")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tags (repeatable)")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

// GetPromptEndpoint handles GET /api/prompts/{id}.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{id}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return true }

func (e *GetPromptEndpoint) Group() string { return "prompts" }

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ps := svcctx.PromptStoreFrom(r.Context())
	if ps == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}
	p, err := ps.Get(r.Context(), credentials.UserFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a saved prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Prompt
			if err := client.Get(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// DeletePromptEndpoint handles DELETE /api/prompts/{id}.
type DeletePromptEndpoint struct{}

func (e *DeletePromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/prompts/{id}", e.handler
}

func (e *DeletePromptEndpoint) RequiresInit() bool { return true }

func (e *DeletePromptEndpoint) Group() string { return "prompts" }

func (e *DeletePromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ps := svcctx.PromptStoreFrom(r.Context())
	if ps == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}
	if err := ps.Delete(r.Context(), credentials.UserFrom(r.Context()), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeletePromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]))
		},
	}
}

// FavoriteResponse reports the favorite flag after a change.
type FavoriteResponse struct {
	ID         string `json:"id"`
	IsFavorite bool   `json:"is_favorite"`
}

// FavoriteEndpoint handles POST and DELETE /api/prompts/{id}/favorite.
type FavoriteEndpoint struct {
	// Remove selects the DELETE route.
	Remove bool
}

func (e *FavoriteEndpoint) Route() (string, string, http.HandlerFunc) {
	method := "POST"
	if e.Remove {
		method = "DELETE"
	}
	return method, "/api/prompts/{id}/favorite", e.handler
}

func (e *FavoriteEndpoint) RequiresInit() bool { return true }

func (e *FavoriteEndpoint) Group() string { return "prompts" }

func (e *FavoriteEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ps := svcctx.PromptStoreFrom(r.Context())
	if ps == nil {
		writeError(w, http.StatusInternalServerError, "prompt store not available")
		return
	}
	id := r.PathValue("id")
	if err := ps.SetFavorite(r.Context(), credentials.UserFrom(r.Context()), id, !e.Remove); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{ID: id, IsFavorite: !e.Remove})
}

func (e *FavoriteEndpoint) Command(getServerURL func() string) *cobra.Command {
	use, short := "favorite <id>", "Mark a prompt as a favorite"
	if e.Remove {
		use, short = "unfavorite <id>", "Remove a prompt from favorites"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/prompts/" + url.PathEscape(args[0]) + "/favorite"
			var resp FavoriteResponse
			var err error
			if e.Remove {
				err = client.Delete(cmd.Context(), path)
				resp = FavoriteResponse{ID: args[0]}
			} else {
				err = client.Post(cmd.Context(), path, nil, &resp)
			}
			if err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

// ListCategoriesEndpoint handles GET /api/categories.
type ListCategoriesEndpoint struct{}

// CategoriesResponse lists wizard categories in display order.
type CategoriesResponse struct {
	Categories []store.Category `json:"categories"`
}

func (e *ListCategoriesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/categories", e.handler
}

func (e *ListCategoriesEndpoint) RequiresInit() bool { return true }

func (e *ListCategoriesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cs := svcctx.CategoryStoreFrom(r.Context())
	if cs == nil {
		writeError(w, http.StatusInternalServerError, "category store not available")
		return
	}
	cats, err := cs.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

func (e *ListCategoriesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List prompt categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CategoriesResponse
			if err := client.Get(cmd.Context(), "/api/categories", &resp); err != nil {
				return err
			}
			return api.Print(cmd.OutOrStdout(), resp)
		},
	}
}

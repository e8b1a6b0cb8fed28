package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/promptiverse/internal/api"
	"github.com/jackzampolin/promptiverse/internal/llmcall"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/server/endpoints"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/types"
	"github.com/jackzampolin/promptiverse/internal/wizard"
)

type testServer struct {
	srv     *Server
	handler http.Handler
	mock    *providers.MockAdapter
}

// newTestServer starts an initialized server on an in-memory database.
// Every known provider is backed by the same mock adapter.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	for _, env := range []string{"OPENAI_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := providers.NewMockAdapter("")
	factory := providers.NewFactory(providers.FactoryConfig{Logger: logger})
	for _, name := range providers.KnownProviders {
		name := name
		factory.Register(name, func(secret string, opts providers.Options) (providers.Adapter, error) {
			mock.ProviderName = name
			return mock, nil
		})
	}

	srv, err := New(Config{
		DatabasePath: ":memory:",
		Factory:      factory,
		Logger:       logger,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Init(context.Background()))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, handler: srv.Handler(), mock: mock}
}

func (ts *testServer) do(t *testing.T, method, path, user string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if user != "" {
		req.Header.Set(api.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{DatabasePath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.False(t, srv.IsRunning())
	assert.Nil(t, srv.Services())

	_, err = New(Config{})
	assert.Error(t, err, "no database path and no home should fail")
}

func TestRequireInit(t *testing.T) {
	srv, err := New(Config{DatabasePath: ":memory:", Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/prompts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Health does not need the database.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndStatus(t *testing.T) {
	ts := newTestServer(t)

	var health endpoints.HealthResponse
	assert.Equal(t, http.StatusOK, ts.do(t, "GET", "/ready", "", nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Database)

	var status endpoints.StatusResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/status", "", nil, &status))
	assert.Equal(t, "running", status.Server)
	assert.Equal(t, "healthy", status.Database.Health)
	assert.Positive(t, status.Database.SchemaVersion)
	assert.Equal(t, providers.KnownProviders, status.Providers.Known)
	assert.Empty(t, status.Providers.Available)
}

func TestSuggestions_FallbackWithoutKeys(t *testing.T) {
	ts := newTestServer(t)

	var resp endpoints.SuggestionsResponse
	code := ts.do(t, "POST", "/api/suggestions", "", types.PromptRequest{Step: types.Step(types.StepToneAudience)}, &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, providers.FallbackSuggestions(types.StepToneAudience), resp.Suggestions)
	assert.Zero(t, ts.mock.SuggestCalls())

	var gen endpoints.GenerateResponse
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/generate", "", types.PromptRequest{Category: "coding"}, &gen))
	assert.Empty(t, gen.Prompt)
	require.NotEmpty(t, gen.Notices)
	assert.Contains(t, gen.Notices[0].Message, "No AI providers configured")
}

func TestCredentialsAndGeneration(t *testing.T) {
	ts := newTestServer(t)

	// Unknown providers and empty keys are rejected.
	assert.Equal(t, http.StatusBadRequest,
		ts.do(t, "PUT", "/api/credentials/claude", "alice", endpoints.PutCredentialRequest{APIKey: "k"}, nil))
	assert.Equal(t, http.StatusBadRequest,
		ts.do(t, "PUT", "/api/credentials/openai", "alice", endpoints.PutCredentialRequest{APIKey: " "}, nil))

	require.Equal(t, http.StatusNoContent,
		ts.do(t, "PUT", "/api/credentials/openai", "alice", endpoints.PutCredentialRequest{APIKey: "sk-alice-1234"}, nil))

	var creds endpoints.CredentialsResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/credentials", "alice", nil, &creds))
	require.Len(t, creds.Credentials, 1)
	assert.Equal(t, "openai", creds.Credentials[0].Provider)
	assert.Equal(t, "user", creds.Credentials[0].Source)
	assert.NotContains(t, creds.Credentials[0].Hint, "sk-alice")

	// Keys are per user.
	var bob endpoints.CredentialsResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/credentials", "bob", nil, &bob))
	assert.Empty(t, bob.Credentials)

	var provs endpoints.ProvidersResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/providers", "alice", nil, &provs))
	assert.Equal(t, []string{"openai"}, provs.Available)

	var sugg endpoints.SuggestionsResponse
	require.Equal(t, http.StatusOK,
		ts.do(t, "POST", "/api/suggestions", "alice", types.PromptRequest{Category: "coding", Step: types.Step(types.StepToneAudience)}, &sugg))
	assert.Len(t, sugg.Suggestions, 5)
	assert.Equal(t, "warm", sugg.Suggestions[0].Value)
	assert.EqualValues(t, 1, ts.mock.SuggestCalls())

	var gen endpoints.GenerateResponse
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/generate", "alice", types.PromptRequest{Category: "coding"}, &gen))
	assert.Equal(t, "mock prompt", gen.Prompt)

	// Every provider attempt lands in the call log.
	var calls endpoints.LLMCallsResponse
	require.Eventually(t, func() bool {
		calls = endpoints.LLMCallsResponse{}
		return ts.do(t, "GET", "/api/llmcalls?user_id=alice", "", nil, &calls) == http.StatusOK && calls.Total == 2
	}, 10*time.Second, 50*time.Millisecond)
	for _, c := range calls.Calls {
		assert.Equal(t, "openai", c.Provider)
		assert.True(t, c.Success)
	}

	var counts endpoints.LLMCallCountsResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/llmcalls/counts", "", nil, &counts))
	assert.Equal(t, llmcall.ProviderCounts{Succeeded: 2}, counts.Counts["openai"])

	var one endpoints.LLMCallResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/llmcalls/"+calls.Calls[0].ID, "", nil, &one))
	require.NotNil(t, one.Call)
	assert.Equal(t, calls.Calls[0].ID, one.Call.ID)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/llmcalls/missing", "", nil, nil))

	assert.Equal(t, http.StatusNoContent, ts.do(t, "DELETE", "/api/credentials/openai", "alice", nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, "DELETE", "/api/credentials/openai", "alice", nil, nil))
}

func TestProviderGenerate(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusNoContent,
		ts.do(t, "PUT", "/api/credentials/groq", "", endpoints.PutCredentialRequest{APIKey: "gsk-test"}, nil))

	var resp endpoints.ProviderGenerateResponse
	code := ts.do(t, "POST", "/api/providers/groq/generate", "",
		endpoints.ProviderGenerateRequest{Mode: "suggestions", Request: types.PromptRequest{Step: types.Step(types.StepCategory)}}, &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Suggestions, 5)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "POST", "/api/providers/claude/generate", "",
		endpoints.ProviderGenerateRequest{Mode: "prompt"}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/providers/groq/generate", "",
		endpoints.ProviderGenerateRequest{Mode: "poem"}, nil))
}

func TestPromptLibrary(t *testing.T) {
	ts := newTestServer(t)

	var created store.Prompt
	code := ts.do(t, "POST", "/api/prompts", "alice", store.NewPrompt{
		Title:    "Refactor helper",
		Text:     "Refactor this Go function for readability.",
		Category: "coding",
		IsPublic: true,
		Tags:     []string{"Go", "refactor"},
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "alice", created.UserID)
	require.NotEmpty(t, created.ID)

	assert.Equal(t, http.StatusBadRequest,
		ts.do(t, "POST", "/api/prompts", "alice", store.NewPrompt{Title: "no text"}, nil))

	var got store.Prompt
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/prompts/"+created.ID, "bob", nil, &got))
	assert.Equal(t, "Refactor helper", got.Title)

	var fav endpoints.FavoriteResponse
	require.Equal(t, http.StatusOK, ts.do(t, "POST", "/api/prompts/"+created.ID+"/favorite", "bob", nil, &fav))
	assert.True(t, fav.IsFavorite)

	var list store.ListResult
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/prompts?favorites=true", "bob", nil, &list))
	require.Len(t, list.Prompts, 1)
	assert.True(t, list.Prompts[0].IsFavorite)

	require.Equal(t, http.StatusOK, ts.do(t, "DELETE", "/api/prompts/"+created.ID+"/favorite", "bob", nil, &fav))
	assert.False(t, fav.IsFavorite)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, "GET", "/api/prompts?scope=everything", "bob", nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "GET", "/api/prompts?limit=lots", "bob", nil, nil))

	// Only the owner can delete.
	assert.Equal(t, http.StatusNotFound, ts.do(t, "DELETE", "/api/prompts/"+created.ID, "bob", nil, nil))
	assert.Equal(t, http.StatusNoContent, ts.do(t, "DELETE", "/api/prompts/"+created.ID, "alice", nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/prompts/"+created.ID, "alice", nil, nil))

	var cats endpoints.CategoriesResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/categories", "", nil, &cats))
	assert.NotEmpty(t, cats.Categories)
}

func TestWizardFlow(t *testing.T) {
	ts := newTestServer(t)
	const base = "/api/wizard/s1"

	var view wizard.View
	require.Equal(t, http.StatusOK, ts.do(t, "GET", base, "alice", nil, &view))
	assert.Equal(t, types.StepCategory, view.State.Step)
	assert.Equal(t, "alice/s1", view.ID)

	// A category is required before leaving the first step.
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", base+"/next", "alice", nil, nil))

	var sugg endpoints.SuggestionsResponse
	require.Equal(t, http.StatusOK, ts.do(t, "POST", base+"/suggestions", "alice", nil, &sugg))
	require.NotEmpty(t, sugg.Suggestions)
	assert.Equal(t, types.SuggestionCategory, sugg.Suggestions[0].Type)

	require.Equal(t, http.StatusOK, ts.do(t, "POST", base+"/apply", "alice",
		types.Suggestion{Type: types.SuggestionCategory, Value: "creative_writing"}, &view))
	assert.Equal(t, "creative_writing", view.State.Form.Category)

	require.Equal(t, http.StatusOK, ts.do(t, "POST", base+"/next", "alice", nil, &view))
	assert.Equal(t, types.StepToneAudience, view.State.Step)

	tone := "Whimsical"
	require.Equal(t, http.StatusOK, ts.do(t, "PATCH", base, "alice", wizard.Patch{Tone: &tone}, &view))
	require.Equal(t, http.StatusOK, ts.do(t, "POST", base+"/next", "alice", nil, &view))
	require.Equal(t, http.StatusOK, ts.do(t, "PATCH", base, "alice",
		wizard.Patch{Components: map[string]string{"theme": "friendship"}}, &view))
	assert.Equal(t, []string{"theme", "character", "setting"}, view.Fields)

	// No keys configured, so the preview comes from the template.
	require.Equal(t, http.StatusOK, ts.do(t, "POST", base+"/next", "alice", nil, &view))
	assert.Equal(t, types.StepPreview, view.State.Step)
	assert.Equal(t, "Write a whimsical creative story about friendship.", view.State.GeneratedPrompt)

	// Sessions are per user.
	var other wizard.View
	require.Equal(t, http.StatusOK, ts.do(t, "GET", base, "bob", nil, &other))
	assert.Equal(t, types.StepCategory, other.State.Step)

	var saved wizard.SaveResult
	require.Equal(t, http.StatusCreated, ts.do(t, "POST", base+"/save", "alice",
		wizard.SaveOptions{Title: "Robot story", Then: wizard.ThenNew}, &saved))
	assert.Equal(t, "Robot story", saved.Prompt.Title)
	assert.Equal(t, "alice", saved.Prompt.UserID)
	assert.Equal(t, types.StepCategory, saved.State.Step)

	// The saved prompt is in alice's library and the wizard starts over.
	var list store.ListResult
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/prompts?scope=mine", "alice", nil, &list))
	require.Len(t, list.Prompts, 1)
	assert.Equal(t, "Write a whimsical creative story about friendship.", list.Prompts[0].Text)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", base+"/save", "alice", wizard.SaveOptions{}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", base+"/save", "alice", wizard.SaveOptions{Then: "elsewhere"}, nil))
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t)

	var list endpoints.TemplatesListResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/templates", "", nil, &list))
	keys := make([]string, 0, len(list.Templates))
	for _, tmpl := range list.Templates {
		keys = append(keys, tmpl.Key)
	}
	assert.Contains(t, keys, "generate.system")
	assert.Contains(t, keys, "suggestions.step0")

	var one endpoints.TemplateResponse
	require.Equal(t, http.StatusOK, ts.do(t, "GET", "/api/templates/generate.user", "", nil, &one))
	assert.Equal(t, "generate.user", one.Key)
	assert.NotEmpty(t, one.Text)
	assert.False(t, one.IsOverride)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/templates/nope", "", nil, nil))
}

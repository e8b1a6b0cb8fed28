package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	GeminiName           = "gemini"
	geminiDefaultModel   = "gemini-1.5-flash"
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiMaxAttempts    = 3
	geminiRetryDelay     = 250 * time.Millisecond
)

// GeminiAdapter talks to the Gemini generateContent REST API.
type GeminiAdapter struct {
	*chatAdapter
}

// NewGeminiAdapter creates a Gemini adapter.
func NewGeminiAdapter(apiKey string, opts Options) *GeminiAdapter {
	model := opts.Model
	if model == "" {
		model = geminiDefaultModel
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * DefaultTimeout}
	}
	backend := &geminiHTTP{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  httpClient,
	}
	return &GeminiAdapter{chatAdapter: newChatAdapter(GeminiName, model, opts, backend)}
}

type geminiHTTP struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	Contents          []geminiContent       `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (g *geminiHTTP) complete(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: user}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature: suggestionTemperature,
		},
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if jsonOutput {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", malformed(GeminiName, "failed to marshal request", err)
	}

	var respBody []byte
	err = retry.Do(
		func() error {
			var attemptErr error
			respBody, attemptErr = g.post(ctx, bodyBytes)
			return attemptErr
		},
		retry.Context(ctx),
		retry.Attempts(geminiMaxAttempts),
		retry.Delay(geminiRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryableGeminiError),
	)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return "", pe
		}
		return "", transportError(ctx, GeminiName, err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", malformed(GeminiName, "failed to decode response", err)
	}
	if len(parsed.Candidates) == 0 {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return "", malformed(GeminiName, fmt.Sprintf("prompt blocked: %s", parsed.PromptFeedback.BlockReason), nil)
		}
		return "", malformed(GeminiName, "no candidates returned", nil)
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// post sends one generateContent request and returns the body of a 200 reply.
func (g *geminiHTTP) post(ctx context.Context, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, malformed(GeminiName, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, GeminiName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, GeminiName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorForStatus(GeminiName, resp.StatusCode, geminiErrorMessage(respBody))
	}
	return respBody, nil
}

// retryableGeminiError retries network failures and 5xx replies only.
func retryableGeminiError(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	if pe.Kind != KindTransient {
		return false
	}
	if errors.Is(pe.Cause, context.DeadlineExceeded) || errors.Is(pe.Cause, context.Canceled) {
		return false
	}
	return pe.StatusCode == 0 || pe.StatusCode >= 500
}

// geminiErrorMessage pulls error.message out of an error body when present.
func geminiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(body)
}

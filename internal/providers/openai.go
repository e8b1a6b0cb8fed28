package providers

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"

	suggestionTemperature = 0.7
)

// openAIChat issues chat completions against any OpenAI-compatible endpoint.
type openAIChat struct {
	provider string
	model    string
	client   openai.Client
}

func newOpenAIChat(provider, apiKey, model string, opts Options) *openAIChat {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// The adapter deadline cancels the request; this only guards stuck connections.
		httpClient = &http.Client{Timeout: 2 * DefaultTimeout}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		// The orchestrator owns fallback; SDK retries would hide 429s.
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &openAIChat{
		provider: provider,
		model:    model,
		client:   openai.NewClient(reqOpts...),
	}
}

func (c *openAIChat) complete(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(suggestionTemperature),
	}
	if jsonOutput {
		// json_object mode requires an object at the top level.
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapOpenAIError(ctx, c.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", malformed(c.provider, "no choices returned", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// mapOpenAIError converts SDK errors into typed adapter errors.
func mapOpenAIError(ctx context.Context, provider string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return errorForStatus(provider, apiErr.StatusCode, apiErr.Message)
	}
	return transportError(ctx, provider, err)
}

// OpenAIAdapter talks to the OpenAI chat completions API.
type OpenAIAdapter struct {
	*chatAdapter
}

// NewOpenAIAdapter creates an OpenAI adapter.
func NewOpenAIAdapter(apiKey string, opts Options) *OpenAIAdapter {
	model := opts.Model
	if model == "" {
		model = openAIDefaultModel
	}
	backend := newOpenAIChat(OpenAIName, apiKey, model, opts)
	return &OpenAIAdapter{chatAdapter: newChatAdapter(OpenAIName, model, opts, backend)}
}

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/promptiverse/internal/credentials"
	"github.com/jackzampolin/promptiverse/internal/llmcall"
	"github.com/jackzampolin/promptiverse/internal/notify"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/types"
)

// Mode selects what GenerateWithProvider asks the provider for.
type Mode string

const (
	ModeSuggestions Mode = "suggestions"
	ModePrompt      Mode = "prompt"
	// ModeTest sends the request's Prompt verbatim as a custom prompt.
	ModeTest Mode = "test"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSuggestions, ModePrompt, ModeTest:
		return m, nil
	case "":
		return ModeSuggestions, nil
	}
	return "", fmt.Errorf("unknown mode %q (want suggestions, prompt or test)", s)
}

// ProviderResult is the outcome of a single-provider call. Suggestions is
// non-nil in suggestions mode; Prompt is set otherwise.
type ProviderResult struct {
	Provider    string             `json:"provider"`
	Mode        Mode               `json:"mode"`
	Suggestions []types.Suggestion `json:"suggestions,omitempty"`
	Prompt      string             `json:"prompt,omitempty"`
}

// GenerateWithProvider calls exactly one provider, bypassing the fallback
// loop and the caches. Problems are reported as notices and an empty result.
func (o *Orchestrator) GenerateWithProvider(ctx context.Context, provider string, req types.PromptRequest, mode Mode) ProviderResult {
	provider = strings.ToLower(strings.TrimSpace(provider))
	result := ProviderResult{Provider: provider, Mode: mode}
	if mode == ModeSuggestions {
		result.Suggestions = []types.Suggestion{}
	}

	cred, err := o.creds.GetByProvider(ctx, credentials.UserFrom(ctx), provider)
	if err != nil || cred == nil {
		if err != nil {
			o.logger.Warn("credential lookup failed", "provider", provider, "error", err)
		}
		o.warn(ctx, provider, fmt.Sprintf("No API key configured for %s.", provider))
		return result
	}

	adapter, err := o.factory.Create(provider, cred.Secret)
	if err != nil {
		o.logger.Warn("could not create adapter", "provider", provider, "error", err)
		o.warn(ctx, provider, fmt.Sprintf("%s is not available.", provider))
		return result
	}

	if mode == ModeSuggestions {
		o.generating.Add(1)
		defer o.generating.Add(-1)

		started := time.Now()
		out, err := adapter.GenerateSuggestions(ctx, req)
		o.record(ctx, llmcall.OpSuggestions, req, provider, started, len(out), err)
		if err != nil {
			o.reportSingle(ctx, provider, err)
			return result
		}
		result.Suggestions = out
		return result
	}

	gen, ok := adapter.(providers.PromptGenerator)
	if !ok {
		o.warn(ctx, provider, fmt.Sprintf("%s does not support prompt generation.", provider))
		return result
	}

	op := llmcall.OpPrompt
	if mode == ModeTest {
		op = llmcall.OpTest
		if strings.TrimSpace(req.Prompt) == "" {
			o.warn(ctx, provider, "Enter a prompt to test.")
			return result
		}
		req.CustomPrompt = req.Prompt
	}

	o.generating.Add(1)
	defer o.generating.Add(-1)

	started := time.Now()
	text, err := gen.GeneratePrompt(ctx, req)
	o.record(ctx, op, req, provider, started, len(text), err)
	if err != nil {
		o.reportSingle(ctx, provider, err)
		return result
	}
	result.Prompt = text
	return result
}

func (o *Orchestrator) reportSingle(ctx context.Context, provider string, err error) {
	switch providers.KindOf(err) {
	case providers.KindAuth:
		o.warn(ctx, provider, fmt.Sprintf("Invalid API key for %s.", provider))
	case providers.KindRateLimit:
		o.warn(ctx, provider, fmt.Sprintf("%s is rate limited. Try again in a moment.", provider))
	default:
		o.logger.Warn("provider call failed", "provider", provider, "error", err)
		o.notifier.Notify(ctx, notify.Notice{
			Level:    notify.LevelError,
			Provider: provider,
			Message:  fmt.Sprintf("%s failed: %v", provider, err),
		})
	}
}

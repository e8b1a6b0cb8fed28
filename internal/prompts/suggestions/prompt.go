package suggestions

import (
	_ "embed"
	"fmt"

	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/types"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed step0.tmpl
var step0Prompt string

//go:embed step1.tmpl
var step1Prompt string

//go:embed step2.tmpl
var step2Prompt string

//go:embed step3.tmpl
var step3Prompt string

// Prompt keys
const (
	SystemPromptKey = "suggestions.system"
	Step0PromptKey  = "suggestions.step0"
	Step1PromptKey  = "suggestions.step1"
	Step2PromptKey  = "suggestions.step2"
	Step3PromptKey  = "suggestions.step3"
)

// KeyForStep returns the user prompt key for a wizard step.
func KeyForStep(step int) (string, error) {
	switch step {
	case types.StepCategory:
		return Step0PromptKey, nil
	case types.StepToneAudience:
		return Step1PromptKey, nil
	case types.StepDetails:
		return Step2PromptKey, nil
	case types.StepPreview:
		return Step3PromptKey, nil
	}
	return "", fmt.Errorf("no suggestion prompt for step %d", step)
}

// Build renders the system and user prompts for req.
func Build(r *prompts.Resolver, req types.PromptRequest) (system, user string, err error) {
	key, err := KeyForStep(req.StepValue())
	if err != nil {
		return "", "", err
	}
	data := prompts.DataFor(req)
	if system, err = r.Render(SystemPromptKey, data); err != nil {
		return "", "", err
	}
	if user, err = r.Render(key, data); err != nil {
		return "", "", err
	}
	return system, user, nil
}

// RegisterPrompts registers the suggestion prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Suggestion system prompt - fixes the JSON reply shape",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         Step0PromptKey,
		Text:        step0Prompt,
		Description: "Category suggestions",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         Step1PromptKey,
		Text:        step1Prompt,
		Description: "Tone suggestions for a category",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         Step2PromptKey,
		Text:        step2Prompt,
		Description: "Audience suggestions for a category and tone",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         Step3PromptKey,
		Text:        step3Prompt,
		Description: "Tailored snippet suggestions that skip chosen details",
	})
}

package generate

import (
	_ "embed"

	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/types"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "generate.system"
	UserPromptKey   = "generate.user"
)

// Build renders the prompt-generation messages for req. A custom prompt is
// returned verbatim as the user message with no system prompt.
func Build(r *prompts.Resolver, req types.PromptRequest) (system, user string, err error) {
	if req.IsCustom() {
		return "", req.CustomPrompt, nil
	}
	data := prompts.DataFor(req)
	if system, err = r.Render(SystemPromptKey, data); err != nil {
		return "", "", err
	}
	if user, err = r.Render(UserPromptKey, data); err != nil {
		return "", "", err
	}
	return system, user, nil
}

// RegisterPrompts registers the generation prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Prompt generation system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Prompt generation request, with worked examples when the shot policy applies",
	})
}

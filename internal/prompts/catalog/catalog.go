// Package catalog assembles a Resolver with every embedded prompt registered.
package catalog

import (
	"log/slog"

	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/prompts/generate"
	"github.com/jackzampolin/promptiverse/internal/prompts/suggestions"
)

// New returns a resolver with the suggestion and generation prompts registered.
func New(logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(logger)
	suggestions.RegisterPrompts(r)
	generate.RegisterPrompts(r)
	return r
}

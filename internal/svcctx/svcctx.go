// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/promptiverse/internal/config"
	"github.com/jackzampolin/promptiverse/internal/home"
	"github.com/jackzampolin/promptiverse/internal/llmcall"
	"github.com/jackzampolin/promptiverse/internal/orchestrator"
	"github.com/jackzampolin/promptiverse/internal/prompts"
	"github.com/jackzampolin/promptiverse/internal/providers"
	"github.com/jackzampolin/promptiverse/internal/store"
	"github.com/jackzampolin/promptiverse/internal/wizard"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Orchestrator    *orchestrator.Orchestrator
	Wizard          *wizard.Manager
	Factory         *providers.Factory
	PromptResolver  *prompts.Resolver
	Store           *store.Store
	PromptStore     *store.PromptStore
	CategoryStore   *store.CategoryStore
	CredentialStore *store.CredentialStore
	LLMCallStore    *llmcall.Store
	ConfigManager   *config.Manager
	Logger          *slog.Logger
	Home            *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// OrchestratorFrom extracts the orchestrator from context.
func OrchestratorFrom(ctx context.Context) *orchestrator.Orchestrator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Orchestrator
	}
	return nil
}

// WizardFrom extracts the wizard session manager from context.
func WizardFrom(ctx context.Context) *wizard.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Wizard
	}
	return nil
}

// FactoryFrom extracts the provider factory from context.
func FactoryFrom(ctx context.Context) *providers.Factory {
	if s := ServicesFrom(ctx); s != nil {
		return s.Factory
	}
	return nil
}

// PromptResolverFrom extracts the prompt template resolver from context.
func PromptResolverFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.PromptResolver
	}
	return nil
}

// StoreFrom extracts the database from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// PromptStoreFrom extracts the saved prompt store from context.
func PromptStoreFrom(ctx context.Context) *store.PromptStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.PromptStore
	}
	return nil
}

// CategoryStoreFrom extracts the category store from context.
func CategoryStoreFrom(ctx context.Context) *store.CategoryStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.CategoryStore
	}
	return nil
}

// CredentialStoreFrom extracts the per-user credential store from context.
func CredentialStoreFrom(ctx context.Context) *store.CredentialStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.CredentialStore
	}
	return nil
}

// LLMCallStoreFrom extracts the LLM call store from context.
func LLMCallStoreFrom(ctx context.Context) *llmcall.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLMCallStore
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

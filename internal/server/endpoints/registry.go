package endpoints

import (
	"github.com/jackzampolin/promptiverse/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Provider and generation endpoints
		&ListProvidersEndpoint{},
		&ProviderGenerateEndpoint{},
		&SuggestionsEndpoint{},
		&GeneratePromptEndpoint{},

		// Credential endpoints
		&ListCredentialsEndpoint{},
		&PutCredentialEndpoint{},
		&DeleteCredentialEndpoint{},

		// Prompt library endpoints
		&ListPromptsEndpoint{},
		&CreatePromptEndpoint{},
		&GetPromptEndpoint{},
		&DeletePromptEndpoint{},
		&FavoriteEndpoint{},
		&FavoriteEndpoint{Remove: true},
		&ListCategoriesEndpoint{},

		// Template endpoints
		&ListTemplatesEndpoint{},
		&GetTemplateEndpoint{},

		// Wizard endpoints
		&GetWizardEndpoint{},
		&UpdateWizardEndpoint{},
		&WizardActionEndpoint{Action: WizardNext},
		&WizardActionEndpoint{Action: WizardBack},
		&WizardActionEndpoint{Action: WizardReset},
		&WizardActionEndpoint{Action: WizardSuggestions},
		&ApplySuggestionEndpoint{},
		&SaveWizardEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
		&LLMCallCountsEndpoint{},
	}
}

package providers

const (
	GroqName           = "groq"
	groqDefaultModel   = "llama-3.3-70b-versatile"
	groqDefaultBaseURL = "https://api.groq.com/openai/v1/"
)

// GroqAdapter talks to Groq's OpenAI-compatible endpoint.
type GroqAdapter struct {
	*chatAdapter
}

// NewGroqAdapter creates a Groq adapter.
func NewGroqAdapter(apiKey string, opts Options) *GroqAdapter {
	model := opts.Model
	if model == "" {
		model = groqDefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = groqDefaultBaseURL
	}
	backend := newOpenAIChat(GroqName, apiKey, model, opts)
	return &GroqAdapter{chatAdapter: newChatAdapter(GroqName, model, opts, backend)}
}

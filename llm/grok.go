package llm

// GrokBaseURL is xAI's OpenAI-compatible endpoint.
const GrokBaseURL = "https://api.x.ai/v1"

// newGrokProvider builds a Grok backend on the OpenAI-compatible adapter.
func newGrokProvider(opts providerOptions) *OpenAIProvider {
	if opts.baseURL == "" {
		opts.baseURL = GrokBaseURL
	}
	return newOpenAIProvider("grok", opts)
}

// Loop configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

import "time"

// DefaultMaxIterations caps tool rounds per run.
const DefaultMaxIterations = 5

// Config holds loop configuration.
type Config struct {
	// Name identifies the loop in logs.
	Name string

	// SystemPrompt guides the backend's behavior.
	SystemPrompt string

	// MaxIterations caps tool rounds. Zero means DefaultMaxIterations.
	MaxIterations int

	// CallTimeout bounds each backend call. Zero means 120s.
	CallTimeout time.Duration
}

// DefaultConfig returns the research loop configuration.
func DefaultConfig() Config {
	return Config{
		Name:          "researcher",
		SystemPrompt:  ResearchSystemPrompt,
		MaxIterations: DefaultMaxIterations,
		CallTimeout:   120 * time.Second,
	}
}

func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) callTimeout() time.Duration {
	if c.CallTimeout <= 0 {
		return 120 * time.Second
	}
	return c.CallTimeout
}

// ResearchSystemPrompt instructs the backend to research with tools.
const ResearchSystemPrompt = `You are an expert research assistant with access to web search, web page scraping and the user's research history.
Use the tools to gather accurate, current information before answering. Prefer primary sources, scrape the most relevant pages for detail, and cite the URLs you used.
When you have enough information, answer directly without calling more tools.`

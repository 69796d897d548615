package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/richinex/dossier/llm"
)

// Registry manages available tools with dynamic registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools, sorted by name.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		metadata = append(metadata, tool.Metadata())
	}
	sort.Slice(metadata, func(i, j int) bool { return metadata[i].Name < metadata[j].Name })
	return metadata
}

// Definitions renders JSON-schema tool definitions for the backends, sorted
// by name.
func (r *Registry) Definitions() []llm.ToolDefinition {
	names := r.Names()
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		tool, ok := r.Get(name)
		if !ok {
			continue
		}
		meta := tool.Metadata()
		props := make(map[string]any, len(meta.Parameters))
		required := []string{}
		for _, p := range meta.Parameters {
			props[p.Name] = map[string]any{
				"type":        p.ParamType,
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		})
	}
	return defs
}

// ResearchConfig wires the research tools to their collaborators.
type ResearchConfig struct {
	Gateway WebGateway
	// SearchCredential selects the keyed search backend when non-empty.
	SearchCredential string
	// History is optional; without it get_history reports unavailable.
	History HistoryProvider
	Owner   string
	// MaxResults and ScrapeChars are defaults for omitted arguments.
	MaxResults  int
	ScrapeChars int
}

// NewResearchRegistry creates a registry holding search_web, scrape_webpage
// and get_history.
func NewResearchRegistry(cfg ResearchConfig) (*Registry, error) {
	registry := NewRegistry()

	tools := []Tool{
		NewSearchWebTool(cfg.Gateway, cfg.SearchCredential, cfg.MaxResults),
		NewScrapeWebpageTool(cfg.Gateway, cfg.ScrapeChars),
		NewGetHistoryTool(cfg.History, cfg.Owner),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register research tools: %w", err)
		}
	}

	return registry, nil
}

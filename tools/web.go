package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/dossier/model"
	"github.com/richinex/dossier/search"
)

// WebGateway is the search and scrape surface the web tools need.
type WebGateway interface {
	Search(ctx context.Context, query, credential string, maxResults int) ([]model.SearchResult, search.Backend)
	Scrape(ctx context.Context, url string, maxChars int) model.ScrapedPage
}

// SearchWebTool runs a web search on the keyed backend when a credential is
// configured, DuckDuckGo otherwise.
type SearchWebTool struct {
	gateway    WebGateway
	credential string
	maxResults int
}

// NewSearchWebTool creates a search_web tool. maxResults is the default when
// the model omits max_results.
func NewSearchWebTool(gateway WebGateway, credential string, maxResults int) *SearchWebTool {
	if maxResults <= 0 {
		maxResults = search.DefaultMaxResults
	}
	return &SearchWebTool{gateway: gateway, credential: credential, maxResults: maxResults}
}

// Metadata returns the tool metadata.
func (t *SearchWebTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        NameSearchWeb,
		Description: "Perform a web search to find information. Use this when you need to search for information about a person, company, or topic.",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "The search query string. Be specific and include relevant keywords.", Required: true},
			{Name: "max_results", ParamType: "integer", Description: "Maximum number of search results to return (default: 10, max: 20)"},
		},
	}
}

// Execute runs the search.
func (t *SearchWebTool) Execute(ctx context.Context, raw json.RawMessage) Result {
	args, err := decodeArgs[SearchWebArgs](NameSearchWeb, raw)
	if err != nil {
		return FailureResult(err)
	}
	if args.MaxResults == 0 {
		args.MaxResults = t.maxResults
	}

	results, _ := t.gateway.Search(ctx, args.Query, t.credential, args.MaxResults)
	return SuccessResult(FormatSearchResults(results))
}

// FormatSearchResults renders results as numbered title/URL/snippet blocks.
func FormatSearchResults(results []model.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet))
	}
	return strings.Join(blocks, "\n")
}

// ScrapeWebpageTool extracts the readable text of one page.
type ScrapeWebpageTool struct {
	gateway  WebGateway
	maxChars int
}

// NewScrapeWebpageTool creates a scrape_webpage tool. maxChars is the
// default budget when the model omits max_chars.
func NewScrapeWebpageTool(gateway WebGateway, maxChars int) *ScrapeWebpageTool {
	if maxChars <= 0 {
		maxChars = search.DefaultScrapeChars
	}
	return &ScrapeWebpageTool{gateway: gateway, maxChars: maxChars}
}

// Metadata returns the tool metadata.
func (t *ScrapeWebpageTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        NameScrapeWebpage,
		Description: "Extract and read the main content from a specific webpage URL. Use this to get detailed information from a specific page.",
		Parameters: []ToolParameter{
			{Name: "url", ParamType: "string", Description: "The full URL of the webpage to scrape", Required: true},
			{Name: "max_chars", ParamType: "integer", Description: "Maximum characters to extract from the page (default: 5000)"},
		},
	}
}

type scrapedContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Execute fetches the page.
func (t *ScrapeWebpageTool) Execute(ctx context.Context, raw json.RawMessage) Result {
	args, err := decodeArgs[ScrapeWebpageArgs](NameScrapeWebpage, raw)
	if err != nil {
		return FailureResult(err)
	}
	if args.MaxChars == 0 {
		args.MaxChars = t.maxChars
	}

	page := t.gateway.Scrape(ctx, args.URL, args.MaxChars)
	if !page.Success {
		if page.Error == "" {
			page.Error = "Scraping failed"
		}
		return FailureResult(errors.New(page.Error))
	}
	return DataResult(scrapedContent{URL: page.URL, Content: page.Content})
}

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/richinex/dossier/model"
)

// Elements whose text is never page content.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Template: true,
}

const maxScrapeBody = 5 << 20

// Scrape fetches targetURL and returns its visible text, truncated to
// maxChars runes with "..." appended when longer. Failures are reported in
// the page record rather than as an error.
func (g *Gateway) Scrape(ctx context.Context, targetURL string, maxChars int) model.ScrapedPage {
	if maxChars <= 0 {
		maxChars = DefaultScrapeChars
	}
	page := model.ScrapedPage{URL: targetURL}

	ctx, cancel := context.WithTimeout(ctx, g.scrapeTimeout)
	defer cancel()

	start := time.Now()
	title, text, err := g.fetchText(ctx, targetURL)
	if err != nil {
		g.log.Warn("scrape failed", zap.String("url", targetURL), zap.Error(err))
		page.Error = err.Error()
		return page
	}

	page.Title = title
	page.Content = truncateRunes(text, maxChars)
	page.Success = true

	g.log.Info("scrape completed",
		zap.String("url", targetURL),
		zap.Int("chars", len(page.Content)),
		zap.Duration("elapsed", time.Since(start)))
	return page
}

func (g *Gateway) fetchText(ctx context.Context, targetURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", "", fmt.Errorf("HTTP %d %s for url %s", resp.StatusCode, http.StatusText(resp.StatusCode), targetURL)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxScrapeBody))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	title, text := extractVisibleText(doc)
	return title, text, nil
}

// extractVisibleText returns the document title and its visible text with
// whitespace runs collapsed to single spaces.
func extractVisibleText(doc *html.Node) (string, string) {
	var title string
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title && title == "" {
				title = strings.Join(strings.Fields(textContent(n)), " ")
				return
			}
			if skippedElements[n.DataAtom] {
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, strings.Join(strings.Fields(b.String()), " ")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

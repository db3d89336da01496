package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

// DefaultGoogleNewsURL is the Google News RSS search endpoint.
const DefaultGoogleNewsURL = "https://news.google.com/rss/search"

// GoogleNews searches the Google News RSS feed.
type GoogleNews struct {
	fetcher scraper.Fetcher
	baseURL string
	parser  *gofeed.Parser
	logger  *slog.Logger
}

// NewGoogleNews creates a Google News searcher. An empty baseURL uses
// DefaultGoogleNewsURL.
func NewGoogleNews(f scraper.Fetcher, baseURL string) *GoogleNews {
	if baseURL == "" {
		baseURL = DefaultGoogleNewsURL
	}
	return &GoogleNews{
		fetcher: f,
		baseURL: baseURL,
		parser:  gofeed.NewParser(),
		logger:  slog.Default(),
	}
}

// URL returns the feed address for a '+' joined query.
func (g *GoogleNews) URL(query string) string {
	terms := strings.ReplaceAll(query, "+", " ")
	return fmt.Sprintf("%s?q=%s&hl=en-US&gl=US&ceid=US:en", g.baseURL, url.QueryEscape(terms))
}

// Search implements Searcher. Links are returned in feed order.
func (g *GoogleNews) Search(ctx context.Context, query string) ([]string, error) {
	page, err := g.fetcher.Fetch(ctx, g.URL(query))
	if err != nil {
		if scraper.StatusCode(err) == 429 {
			return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return nil, fmt.Errorf("news search %q: %w", query, err)
	}

	feed, err := g.parser.ParseString(page.RawHTML)
	if err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}

	seen := make(map[string]bool, len(feed.Items))
	var urls []string
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		urls = append(urls, link)
	}
	g.logger.Debug("news search results", "query", query, "urls", len(urls))
	return urls, nil
}

// New returns the Searcher for backend.
func New(backend Backend, f scraper.Fetcher, baseURL string) (Searcher, error) {
	switch backend {
	case "", BackendGoogle:
		return NewGoogle(f, baseURL), nil
	case BackendGoogleNews:
		return NewGoogleNews(f, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", backend)
	}
}

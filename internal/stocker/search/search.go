// Package search discovers candidate article URLs for a query.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

// ErrBlocked is returned when the search engine refuses to serve results
// (rate limiting or a captcha interstitial).
var ErrBlocked = errors.New("search engine blocked the request")

// Searcher returns result URLs for a '+' joined query string.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Backend names a Searcher implementation.
type Backend string

const (
	BackendGoogle     Backend = "google"
	BackendGoogleNews Backend = "googlenews"
)

// ParseBackend validates a backend name. Empty means google.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendGoogle:
		return BackendGoogle, nil
	case BackendGoogleNews:
		return b, nil
	default:
		return "", fmt.Errorf("unknown search backend %q", s)
	}
}

// DefaultGoogleURL is the results page queried by Google.
const DefaultGoogleURL = "https://www.google.co.in/search"

// Google scrapes the Google web results page.
type Google struct {
	fetcher scraper.Fetcher
	baseURL string
	logger  *slog.Logger
}

// NewGoogle creates a Google searcher. An empty baseURL uses DefaultGoogleURL.
func NewGoogle(f scraper.Fetcher, baseURL string) *Google {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	return &Google{fetcher: f, baseURL: baseURL, logger: slog.Default()}
}

// URL returns the results page address for query. The query is expected to
// be '+' joined already and is inserted verbatim.
func (g *Google) URL(query string) string {
	return g.baseURL + "?site=&source=hp&q=" + query + "&gws_rd=ssl"
}

// Search implements Searcher.
func (g *Google) Search(ctx context.Context, query string) ([]string, error) {
	page, err := g.fetcher.Fetch(ctx, g.URL(query))
	if err != nil {
		if scraper.StatusCode(err) == 429 {
			return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if isCaptcha(page) {
		return nil, ErrBlocked
	}

	urls, err := ParseResults(page.RawHTML)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	g.logger.Debug("search results", "query", query, "urls", len(urls))
	return urls, nil
}

func isCaptcha(p *scraper.Page) bool {
	if strings.Contains(p.FinalURL, "/sorry/") {
		return true
	}
	return strings.Contains(p.RawHTML, "id=\"captcha-form\"")
}

// ParseResults extracts result links from a Google results page. Each
// element with class "g" contributes its first link. Redirect links of the
// form /url?q=TARGET&sa=... yield TARGET.
func ParseResults(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find(".g").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		target := ResultTarget(href)
		if target == "" || seen[target] {
			return
		}
		seen[target] = true
		urls = append(urls, target)
	})
	return urls, nil
}

// ResultTarget resolves a result href to the page it points at, or "" when
// the href is not an external http(s) link.
func ResultTarget(href string) string {
	if rest, ok := strings.CutPrefix(href, "/url?"); ok {
		// Everything up to "&sa=" is the target, matching how Google
		// orders the redirect parameters.
		if i := strings.Index(rest, "&sa="); i >= 0 {
			rest = rest[:i]
		}
		q, err := url.ParseQuery(rest)
		if err != nil {
			return ""
		}
		href = q.Get("q")
		if href == "" {
			href = q.Get("url")
		}
	}

	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

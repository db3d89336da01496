// Package scraper provides HTTP content fetching and HTML parsing utilities.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// BrowserUserAgent is sent to sites that refuse obvious bots.
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/50.0.2661.102 Safari/537.36"

// FetchOptions configures the behavior of a Fetcher.
type FetchOptions struct {
	UserAgent  string            `yaml:"user_agent" env:"STOCKER_USER_AGENT"`
	Timeout    time.Duration     `yaml:"timeout" env:"STOCKER_HTTP_TIMEOUT"`
	RetryCount int               `yaml:"retry_count" env:"STOCKER_HTTP_RETRIES"`
	RetryDelay time.Duration     `yaml:"retry_delay"`
	Headers    map[string]string `yaml:"headers"`
}

// DefaultFetchOptions returns sensible defaults for fetching.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		UserAgent:  BrowserUserAgent,
		Timeout:    15 * time.Second,
		RetryCount: 2,
		RetryDelay: time.Second,
	}
}

// Page holds the result of fetching a URL.
type Page struct {
	URL         string        `json:"url"`
	FinalURL    string        `json:"final_url"`
	StatusCode  int           `json:"status_code"`
	ContentType string        `json:"content_type"`
	RawHTML     string        `json:"raw_html"`
	FetchedAt   time.Time     `json:"fetched_at"`
	Duration    time.Duration `json:"duration"`
}

// Fetcher defines the interface for fetching web content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher implements Fetcher using standard HTTP.
type HTTPFetcher struct {
	client *http.Client
	opts   FetchOptions
	logger *slog.Logger
}

// NewHTTPFetcher creates a new HTTP-based fetcher. A nil opts uses the defaults.
func NewHTTPFetcher(opts *FetchOptions) *HTTPFetcher {
	o := *DefaultFetchOptions()
	if opts != nil {
		if opts.UserAgent != "" {
			o.UserAgent = opts.UserAgent
		}
		if opts.Timeout > 0 {
			o.Timeout = opts.Timeout
		}
		if opts.RetryCount >= 0 {
			o.RetryCount = opts.RetryCount
		}
		if opts.RetryDelay > 0 {
			o.RetryDelay = opts.RetryDelay
		}
		o.Headers = opts.Headers
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: o.Timeout},
		opts:   o,
		logger: slog.Default(),
	}
}

// WithLogger replaces the fetcher's logger.
func (f *HTTPFetcher) WithLogger(l *slog.Logger) *HTTPFetcher {
	f.logger = l
	return f
}

// Fetch retrieves a URL. Temporary failures (network errors, 429, 5xx) are
// retried up to RetryCount times with a linear backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var lastErr error
	for attempt := 0; attempt <= f.opts.RetryCount; attempt++ {
		page, err := f.fetchOnce(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsTemporary(err) || attempt == f.opts.RetryCount {
			break
		}

		delay := time.Duration(attempt+1) * f.opts.RetryDelay
		f.logger.Debug("fetch failed, retrying", "url", url, "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, &Error{URL: url, Op: "fetch", Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*Page, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Op: "create request", Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range f.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{URL: url, Op: "fetch", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: url, Op: "read body", Err: err}
	}

	return &Page{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		RawHTML:     string(body),
		FetchedAt:   time.Now(),
		Duration:    time.Since(start),
	}, nil
}

// ExtractText converts HTML to clean structured text, removing navigation/footer/scripts.
func ExtractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var sb strings.Builder
	extractTextFromNode(doc, &sb, map[string]bool{
		"script": true, "style": true, "nav": true, "footer": true,
		"header": true, "noscript": true, "svg": true, "iframe": true,
		"aside": true, "form": true,
	})
	return collapseBlankLines(sb.String())
}

func extractTextFromNode(n *html.Node, sb *strings.Builder, skipTags map[string]bool) {
	if n.Type == html.ElementNode {
		if skipTags[n.Data] {
			return
		}
		switch n.Data {
		case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4":
			sb.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextFromNode(c, sb, skipTags)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "p", "li", "tr":
			sb.WriteString("\n")
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Title returns the contents of the first <title> element, or "".
func Title(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// DescribePage is a short human-readable label for log lines.
func DescribePage(p *Page) string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d, %d bytes, %s)", p.URL, p.StatusCode, len(p.RawHTML), p.Duration.Round(time.Millisecond))
}

// Package webparser turns a search result URL into an article record, or,
// for section and landing pages, into further article links to crawl.
package webparser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/RobinCoderZhao/stocker/internal/stocker/classify"
	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

var (
	// ErrNoArticle means the page did not contain enough article text.
	ErrNoArticle = errors.New("no article content")
	// ErrUnsupportedURL means the URL is not an absolute http(s) URL.
	ErrUnsupportedURL = errors.New("unsupported url")
)

// DefaultMinArticleLength is the shortest text accepted as an article.
const DefaultMinArticleLength = 200

// Node is one scraped article.
type Node struct {
	URL            string
	Source         string
	Ticker         string
	Title          string
	Article        string
	PubDate        time.Time
	Sector         string
	Industry       string
	Classification string
}

// Result is the outcome of scraping one URL: either an article node or, for
// landing pages, a list of links to crawl next.
type Result struct {
	Node  *Node
	Links []string
}

// IsLanding reports whether the result carries links instead of an article.
func (r *Result) IsLanding() bool {
	return r != nil && r.Node == nil
}

// ProfileLookup supplies the sector and industry of a ticker.
type ProfileLookup interface {
	Profile(ctx context.Context, ticker string) (sector, industry string)
}

// Scraper is what the pipeline needs from a page parser.
type Scraper interface {
	Scrape(ctx context.Context, rawURL, source, ticker string) (*Result, error)
}

// Parser scrapes article pages.
type Parser struct {
	fetcher    scraper.Fetcher
	profiles   ProfileLookup
	classifier classify.Classifier
	minLength  int
	logger     *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithProfiles sets the sector/industry source.
func WithProfiles(p ProfileLookup) Option {
	return func(ps *Parser) { ps.profiles = p }
}

// WithClassifier replaces the default lexicon classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(ps *Parser) { ps.classifier = c }
}

// WithMinArticleLength sets the shortest accepted article text.
func WithMinArticleLength(n int) Option {
	return func(ps *Parser) {
		if n > 0 {
			ps.minLength = n
		}
	}
}

// WithLogger sets the parser's logger.
func WithLogger(l *slog.Logger) Option {
	return func(ps *Parser) { ps.logger = l }
}

// NewParser creates a parser fetching pages with f.
func NewParser(f scraper.Fetcher, opts ...Option) *Parser {
	p := &Parser{
		fetcher:    f,
		classifier: classify.NewLexicon(nil, nil),
		minLength:  DefaultMinArticleLength,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scrape fetches rawURL. Landing pages yield links to crawl; other pages
// yield an article node tagged with ticker and source.
func (p *Parser) Scrape(ctx context.Context, rawURL, source, ticker string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	page, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("fetched page", "page", scraper.DescribePage(page))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.RawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	if IsHomepage(rawURL) {
		links := ExtractLinks(doc, u)
		p.logger.Debug("landing page", "url", rawURL, "links", len(links))
		return &Result{Links: links}, nil
	}

	title, text := p.extractArticle(page.RawHTML, u)
	if len(text) < p.minLength {
		return nil, fmt.Errorf("%w: %s (%d chars)", ErrNoArticle, rawURL, len(text))
	}

	node := &Node{
		URL:            rawURL,
		Source:         source,
		Ticker:         strings.ToUpper(ticker),
		Title:          title,
		Article:        text,
		PubDate:        PublishDate(doc),
		Classification: p.classifier.Classify(text),
	}
	if p.profiles != nil {
		node.Sector, node.Industry = p.profiles.Profile(ctx, ticker)
	}
	return &Result{Node: node}, nil
}

// extractArticle prefers readability's main-content text and falls back to
// the whole-page text when readability finds too little.
func (p *Parser) extractArticle(rawHTML string, u *url.URL) (title, text string) {
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err == nil {
		title = strings.TrimSpace(article.Title)
		text = normalizeSpace(article.TextContent)
	} else {
		p.logger.Debug("readability failed", "url", u.String(), "error", err)
	}

	if len(text) < p.minLength {
		if fallback := normalizeSpace(scraper.ExtractText(rawHTML)); len(fallback) > len(text) {
			text = fallback
		}
	}
	if title == "" {
		title = scraper.Title(rawHTML)
	}
	return title, text
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

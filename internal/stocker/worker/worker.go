// Package worker processes one search query: it collects result URLs, drops
// the ones already recorded, scrapes the rest and turns articles into rows.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/search"
	"github.com/RobinCoderZhao/stocker/internal/stocker/webparser"
)

// DefaultMaxURLs bounds how many URLs one query may visit, landing-page links
// included.
const DefaultMaxURLs = 50

// Worker holds the state of one query.
type Worker struct {
	Ticker string
	Source string
	Query  string

	// URLs are the pages to visit; after BuildNodes only the ones that
	// scraped successfully remain, landing pages included.
	URLs  []string
	Nodes []*webparser.Node

	// Failures counts URLs dropped because they could not be scraped.
	Failures int
	MaxURLs  int

	seen   map[string]bool
	logger *slog.Logger
}

// New creates a worker for item.
func New(item query.WorkItem) *Worker {
	return &Worker{
		Ticker:  strings.ToUpper(item.Ticker),
		Source:  item.Source,
		Query:   item.Query,
		MaxURLs: DefaultMaxURLs,
		seen:    map[string]bool{},
		logger:  slog.Default(),
	}
}

// WithLogger replaces the worker's logger.
func (w *Worker) WithLogger(l *slog.Logger) *Worker {
	w.logger = l.With("ticker", w.Ticker, "source", w.Source)
	return w
}

// GetURLs runs the query, keeping at most MaxURLs results. A failed search is
// logged and leaves URLs empty.
func (w *Worker) GetURLs(ctx context.Context, s search.Searcher) error {
	urls, err := s.Search(ctx, w.Query)
	if err != nil {
		w.logger.Warn("search failed", "query", w.Query, "error", err)
		w.URLs = nil
		return err
	}
	w.logger.Debug("search results", "query", w.Query, "urls", len(urls))
	if w.MaxURLs > 0 && len(urls) > w.MaxURLs {
		urls = urls[:w.MaxURLs]
	}
	w.URLs = urls
	return nil
}

// RemoveDups drops URLs already recorded for the ticker. seen is kept so
// landing-page links are filtered against it too.
func (w *Worker) RemoveDups(seen map[string]bool) {
	for u := range seen {
		w.seen[u] = true
	}
	kept := w.URLs[:0]
	for _, u := range w.URLs {
		if !w.seen[u] {
			kept = append(kept, u)
		}
	}
	w.URLs = kept
}

// BuildNodes scrapes every URL in order. Landing pages add their links to the
// queue; pages that fail are removed from URLs.
func (w *Worker) BuildNodes(ctx context.Context, s webparser.Scraper) error {
	queued := make(map[string]bool, len(w.URLs))
	for _, u := range w.URLs {
		queued[u] = true
	}

	var kept []string
	for i := 0; i < len(w.URLs); i++ {
		if err := ctx.Err(); err != nil {
			w.URLs = append(kept, w.URLs[i:]...)
			return err
		}
		u := w.URLs[i]

		res, err := s.Scrape(ctx, u, w.Source, w.Ticker)
		if err != nil {
			w.Failures++
			if errors.Is(err, webparser.ErrNoArticle) {
				w.logger.Debug("no article", "url", u)
			} else {
				w.logger.Warn("scrape failed", "url", u, "error", err)
			}
			continue
		}
		kept = append(kept, u)

		if res.IsLanding() {
			added := 0
			for _, link := range res.Links {
				if queued[link] || w.seen[link] {
					continue
				}
				if w.MaxURLs > 0 && len(w.URLs) >= w.MaxURLs {
					break
				}
				queued[link] = true
				w.URLs = append(w.URLs, link)
				added++
			}
			w.logger.Debug("landing page", "url", u, "links", len(res.Links), "queued", added)
			continue
		}
		w.Nodes = append(w.Nodes, res.Node)
	}
	w.URLs = kept
	return nil
}

// Dictify converts the nodes to output rows, or nil when there are none.
func (w *Worker) Dictify() []output.Row {
	if len(w.Nodes) == 0 {
		return nil
	}
	rows := make([]output.Row, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		rows = append(rows, output.Row{
			Ticker:   n.Ticker,
			Sector:   n.Sector,
			Industry: n.Industry,
			Article:  n.Article,
			URL:      n.URL,
			PubDate:  formatDate(n.PubDate),
			Class:    n.Classification,
		})
	}
	return rows
}

// ArticleURLs returns the URLs that produced article nodes. These are the
// URLs recorded as processed.
func (w *Worker) ArticleURLs() []string {
	out := make([]string, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		out = append(out, n.URL)
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

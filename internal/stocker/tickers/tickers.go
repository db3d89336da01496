// Package tickers fetches index constituent lists (S&P 500, NYSE and NASDAQ
// most actives) and keeps a symbol directory with names and classifications.
package tickers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

// Company is one listed company.
type Company struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Index names a ticker list.
type Index string

const (
	SP500  Index = "sp500"
	NYSE   Index = "nyse"
	NASDAQ Index = "nasdaq"
)

// Indexes returns every supported index.
func Indexes() []Index {
	return []Index{SP500, NYSE, NASDAQ}
}

// ParseIndex validates an index name.
func ParseIndex(s string) (Index, error) {
	idx := Index(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Indexes() {
		if idx == known {
			return idx, nil
		}
	}
	return "", fmt.Errorf("unknown index %q (want sp500, nyse or nasdaq)", s)
}

// DefaultURLs are the pages each index is scraped from.
var DefaultURLs = map[Index]string{
	SP500:  "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
	NYSE:   "http://online.wsj.com/mdc/public/page/2_3021-activnyse-actives.html",
	NASDAQ: "http://online.wsj.com/mdc/public/page/2_3021-activnnm-actives.html",
}

// Client fetches index lists.
type Client struct {
	fetcher scraper.Fetcher
	urls    map[Index]string
	logger  *slog.Logger
}

// NewClient creates a client using DefaultURLs.
func NewClient(f scraper.Fetcher) *Client {
	urls := make(map[Index]string, len(DefaultURLs))
	for k, v := range DefaultURLs {
		urls[k] = v
	}
	return &Client{fetcher: f, urls: urls, logger: slog.Default()}
}

// SetURL overrides the page an index is read from.
func (c *Client) SetURL(idx Index, url string) {
	c.urls[idx] = url
}

// Fetch downloads and parses one index.
func (c *Client) Fetch(ctx context.Context, idx Index) ([]Company, error) {
	u, ok := c.urls[idx]
	if !ok {
		return nil, fmt.Errorf("no url configured for index %s", idx)
	}

	page, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch %s list: %w", idx, err)
	}

	var companies []Company
	switch idx {
	case SP500:
		companies, err = ParseSP500(page.RawHTML)
	default:
		companies, err = ParseMostActives(page.RawHTML)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s list: %w", idx, err)
	}
	c.logger.Info("fetched index", "index", idx, "companies", len(companies))
	return companies, nil
}

// FetchAll fetches the given indexes concurrently and merges them by symbol,
// keeping first-seen order. Any failure fails the whole call.
func (c *Client) FetchAll(ctx context.Context, idxs []Index) ([]Company, error) {
	results := make([][]Company, len(idxs))

	g, gctx := errgroup.WithContext(ctx)
	for i, idx := range idxs {
		g.Go(func() error {
			companies, err := c.Fetch(gctx, idx)
			if err != nil {
				return err
			}
			results[i] = companies
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(results...), nil
}

// Merge combines lists by symbol. Later lists only fill fields the earlier
// record left empty.
func Merge(lists ...[]Company) []Company {
	pos := make(map[string]int)
	var out []Company
	for _, list := range lists {
		for _, co := range list {
			i, ok := pos[co.Symbol]
			if !ok {
				pos[co.Symbol] = len(out)
				out = append(out, co)
				continue
			}
			cur := &out[i]
			if cur.Name == "" {
				cur.Name = co.Name
			}
			if cur.Sector == "" {
				cur.Sector = co.Sector
			}
			if cur.Industry == "" {
				cur.Industry = co.Industry
			}
		}
	}
	return out
}

// Symbols returns the ticker symbols of companies.
func Symbols(companies []Company) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.Symbol
	}
	return out
}

// ParseSP500 reads the constituents table of the Wikipedia S&P 500 page:
// symbol, security, GICS sector, GICS sub-industry.
func ParseSP500(html string) ([]Company, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable.sortable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	var companies []Company
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() == 0 {
			return
		}
		cell := func(i int) string {
			return strings.TrimSpace(cols.Eq(i).Text())
		}
		symbol := cell(0)
		if symbol == "" {
			return
		}
		companies = append(companies, Company{
			Symbol:   symbol,
			Name:     cell(1),
			Sector:   cell(2),
			Industry: cell(3),
		})
	})
	return companies, nil
}

var parenthesised = regexp.MustCompile(`\(.*?\)`)

// ParseMostActives reads a WSJ most-actives table, where each td.text cell
// looks like "Apple Inc. (AAPL)".
func ParseMostActives(html string) ([]Company, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var companies []Company
	doc.Find("td.text").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		m := parenthesised.FindString(text)
		if len(m) < 3 {
			return
		}
		companies = append(companies, Company{
			Symbol: m[1 : len(m)-1],
			Name:   strings.TrimSpace(strings.Replace(text, m, "", 1)),
		})
	})
	return companies, nil
}

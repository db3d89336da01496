// Package query builds the search queries that drive a stocker run.
package query

import (
	"context"
	"regexp"
	"strings"
)

// WorkItem is one search to perform: a ticker scoped to a news source.
type WorkItem struct {
	Ticker string `json:"ticker"`
	Source string `json:"source"`
	Query  string `json:"query"`
}

// NameResolver maps a ticker symbol to its company name.
type NameResolver interface {
	CompanyName(ctx context.Context, ticker string) (string, bool)
}

// ValidSources lists the news outlets queries are usually scoped to.
func ValidSources() []string {
	return []string{"bloomberg", "seekingalpha", "reuters", "thestreet", "investopedia"}
}

// IsValidSource reports whether s is one of ValidSources.
func IsValidSource(s string) bool {
	for _, v := range ValidSources() {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Querify joins the space separated words of s with '+'.
func Querify(s string) string {
	return strings.Join(strings.Split(s, " "), "+")
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// CleanCompanyName turns "Apple Inc." into "Apple" and "AT&T Inc." into "ATT",
// joining the remaining words with '+'.
func CleanCompanyName(name string) string {
	var words []string
	for _, w := range strings.Split(name, " ") {
		if w == "Inc." {
			continue
		}
		if w = nonWord.ReplaceAllString(w, ""); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, "+")
}

// ArticlesQuery is the ticker based query: "AAPL+reuters+stock+articles".
func ArticlesQuery(ticker, source string) string {
	return ticker + "+" + source + "+stock+articles"
}

// NewsQuery is the company name based query: "Apple+reuters+stock+news".
func NewsQuery(cleanName, source string) string {
	return cleanName + "+" + source + "+stock+news"
}

// Builder creates work items for every ticker/source pair.
type Builder struct {
	// Names is consulted only when depth > 1. It may be nil.
	Names NameResolver
}

// Build returns the work items for tickers x sources. With depth > 1 and a
// resolvable company name, a name based query precedes the ticker query.
// Each ticker's name is resolved at most once per call.
func (b Builder) Build(ctx context.Context, tickers, sources []string, depth int) []WorkItem {
	var items []WorkItem
	names := make(map[string]string)

	for _, t := range tickers {
		for _, s := range sources {
			if depth > 1 && b.Names != nil {
				name, seen := names[t]
				if !seen {
					if n, ok := b.Names.CompanyName(ctx, t); ok {
						name = CleanCompanyName(n)
					}
					names[t] = name
				}
				if name != "" {
					items = append(items, WorkItem{Ticker: t, Source: s, Query: NewsQuery(name, s)})
				}
			}
			items = append(items, WorkItem{Ticker: t, Source: s, Query: ArticlesQuery(t, s)})
		}
	}
	return items
}

// ChainResolver tries each resolver in order and returns the first hit.
type ChainResolver []NameResolver

// CompanyName implements NameResolver.
func (c ChainResolver) CompanyName(ctx context.Context, ticker string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if name, ok := r.CompanyName(ctx, ticker); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

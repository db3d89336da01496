package tickers

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Directory indexes companies by symbol. It serves as a company name
// resolver for query building and as a sector/industry profile source.
type Directory struct {
	mu       sync.RWMutex
	bySymbol map[string]Company
}

// NewDirectory builds a directory from companies.
func NewDirectory(companies ...Company) *Directory {
	d := &Directory{bySymbol: make(map[string]Company, len(companies))}
	d.Add(companies...)
	return d
}

// Add inserts or merges companies into the directory.
func (d *Directory) Add(companies ...Company) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range companies {
		key := strings.ToUpper(c.Symbol)
		c.Symbol = key
		if cur, ok := d.bySymbol[key]; ok {
			c = Merge([]Company{cur}, []Company{c})[0]
		}
		d.bySymbol[key] = c
	}
}

// Len returns the number of symbols known.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bySymbol)
}

// Companies returns every company, sorted by symbol.
func (d *Directory) Companies() []Company {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Company, 0, len(d.bySymbol))
	for _, c := range d.bySymbol {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns every known symbol, sorted.
func (d *Directory) Symbols() []string {
	return Symbols(d.Companies())
}

// Lookup returns the company for symbol.
func (d *Directory) Lookup(symbol string) (Company, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.bySymbol[strings.ToUpper(symbol)]
	return c, ok
}

// CompanyName implements query.NameResolver.
func (d *Directory) CompanyName(_ context.Context, ticker string) (string, bool) {
	c, ok := d.Lookup(ticker)
	if !ok || c.Name == "" {
		return "", false
	}
	return c.Name, true
}

// Profile implements webparser.ProfileLookup.
func (d *Directory) Profile(_ context.Context, ticker string) (sector, industry string) {
	c, _ := d.Lookup(ticker)
	return c.Sector, c.Industry
}

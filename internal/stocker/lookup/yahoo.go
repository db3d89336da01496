// Package lookup resolves ticker symbols to company names.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

// DefaultYahooBaseURL is the Yahoo symbol autocomplete endpoint.
const DefaultYahooBaseURL = "http://d.yimg.com/autoc.finance.yahoo.com"

// Yahoo looks up company names with the Yahoo Finance autocomplete API.
type Yahoo struct {
	fetcher scraper.Fetcher
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewYahoo creates a resolver fetching through f. An empty baseURL uses
// DefaultYahooBaseURL; timeout bounds one lookup including retries.
func NewYahoo(f scraper.Fetcher, baseURL string, timeout time.Duration) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Yahoo{
		fetcher: f,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  slog.Default(),
	}
}

type autocResponse struct {
	ResultSet struct {
		Query  string `json:"Query"`
		Result []struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
			Exch   string `json:"exch"`
			Type   string `json:"type"`
		} `json:"Result"`
	} `json:"ResultSet"`
}

// CompanyName implements query.NameResolver. Lookup failures are logged and
// reported as a miss.
func (y *Yahoo) CompanyName(ctx context.Context, ticker string) (string, bool) {
	name, err := y.Lookup(ctx, ticker)
	if err != nil {
		y.logger.Warn("company name lookup failed", "ticker", ticker, "error", err)
		return "", false
	}
	return name, name != ""
}

// Lookup returns the company name for ticker, or "" when Yahoo has no exact
// symbol match.
func (y *Yahoo) Lookup(ctx context.Context, ticker string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	u := fmt.Sprintf("%s/autoc?query=%s&region=1&lang=en", y.baseURL, url.QueryEscape(symbol))

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	page, err := y.fetcher.Fetch(ctx, u)
	if err != nil {
		return "", fmt.Errorf("yahoo autoc %s: %w", symbol, err)
	}

	var out autocResponse
	if err := json.Unmarshal([]byte(page.RawHTML), &out); err != nil {
		return "", fmt.Errorf("decode yahoo response: %w", err)
	}

	for _, r := range out.ResultSet.Result {
		if strings.EqualFold(r.Symbol, symbol) {
			return r.Name, nil
		}
	}
	return "", nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RobinCoderZhao/stocker/internal/stocker/config"
	"github.com/RobinCoderZhao/stocker/internal/stocker/lookup"
	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
	"github.com/RobinCoderZhao/stocker/internal/stocker/pipeline"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/search"
	"github.com/RobinCoderZhao/stocker/internal/stocker/store"
	"github.com/RobinCoderZhao/stocker/internal/stocker/tickers"
	"github.com/RobinCoderZhao/stocker/internal/stocker/webparser"
	"github.com/RobinCoderZhao/stocker/pkg/notify"
	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

// app holds the components shared by the commands.
type app struct {
	cfg     *config.StockerConfig
	logger  *slog.Logger
	fetcher *scraper.HTTPFetcher
}

func newApp(cfg *config.StockerConfig, logger *slog.Logger) *app {
	return &app{
		cfg:     cfg,
		logger:  logger,
		fetcher: scraper.NewHTTPFetcher(&cfg.HTTP).WithLogger(logger),
	}
}

// directory loads the configured index lists. A failed fetch is logged and
// yields an empty directory.
func (a *app) directory(ctx context.Context) *tickers.Directory {
	idxs := a.cfg.IndexList()
	if len(idxs) == 0 {
		return tickers.NewDirectory()
	}
	companies, err := tickers.NewClient(a.fetcher).FetchAll(ctx, idxs)
	if err != nil {
		a.logger.Warn("index lists unavailable, sector and industry will be empty", "error", err)
		return tickers.NewDirectory()
	}
	return tickers.NewDirectory(companies...)
}

// tickerList picks the tickers to process: explicit arguments, then the
// config file, then every symbol of the directory.
func (a *app) tickerList(args []string, dir *tickers.Directory) ([]string, error) {
	list := args
	if len(list) == 0 {
		list = a.cfg.Tickers
	}
	if len(list) == 0 {
		list = dir.Symbols()
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no tickers: pass them as arguments, set tickers in the config or enable an index")
	}
	out := make([]string, 0, len(list))
	for _, t := range list {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (a *app) names(dir *tickers.Directory) query.NameResolver {
	chain := query.ChainResolver{dir}
	if a.cfg.Lookup.Yahoo {
		chain = append(chain, lookup.NewYahoo(a.fetcher, a.cfg.Lookup.YahooURL, a.cfg.Lookup.Timeout))
	}
	return chain
}

func (a *app) searcher() (search.Searcher, error) {
	backend, err := search.ParseBackend(a.cfg.Search.Backend)
	if err != nil {
		return nil, err
	}
	return search.New(backend, a.fetcher, a.cfg.Search.BaseURL)
}

// stocker wires a pipeline for tickers. The returned closer releases the
// database, if one is configured.
func (a *app) stocker(ctx context.Context, tickerList []string, dir *tickers.Directory) (*pipeline.Stocker, func(), error) {
	s, err := a.searcher()
	if err != nil {
		return nil, nil, err
	}
	parser := webparser.NewParser(a.fetcher,
		webparser.WithProfiles(dir),
		webparser.WithMinArticleLength(a.cfg.Parser.MinArticleLength),
		webparser.WithLogger(a.logger),
	)

	deps := pipeline.Deps{
		Searcher: s,
		Scraper:  parser,
		Names:    a.names(dir),
		Logger:   a.logger,
	}
	if a.cfg.Output.CSV != "" {
		deps.CSV = output.NewCSVWriter(a.cfg.Output.CSV)
	}
	if a.cfg.Output.JSON != "" {
		deps.Dedup = output.NewDedupFile(a.cfg.Output.JSON)
	}
	closer := func() {}
	if a.cfg.Output.DB != "" {
		st, err := store.Open(ctx, a.cfg.Output.DB)
		if err != nil {
			return nil, nil, err
		}
		deps.Store = st
		closer = func() {
			if err := st.Close(); err != nil {
				a.logger.Warn("close database", "error", err)
			}
		}
	}

	stk := pipeline.New(tickerList, a.cfg.Sources, deps)
	stk.MaxURLs = a.cfg.Parser.MaxURLs
	stk.QueryDelay = a.cfg.QueryDelay
	return stk, closer, nil
}

// dispatcher registers the configured notification channels.
func (a *app) dispatcher() *notify.Dispatcher {
	d := notify.NewDispatcher().WithLogger(a.logger)
	if a.cfg.Notify.Webhook.URL != "" {
		d.Register(notify.NewWebhookNotifier(a.cfg.Notify.Webhook))
	}
	if a.cfg.Notify.Telegram.Enabled() {
		d.Register(notify.NewTelegramNotifier(a.cfg.Notify.Telegram))
	}
	return d
}

// runOnce performs one full run and sends its summary.
func (a *app) runOnce(ctx context.Context, args []string, opts pipeline.Options) (*pipeline.Summary, error) {
	dir := a.directory(ctx)
	tickerList, err := a.tickerList(args, dir)
	if err != nil {
		return nil, err
	}
	stk, closer, err := a.stocker(ctx, tickerList, dir)
	if err != nil {
		return nil, err
	}
	defer closer()

	sum, runErr := stk.Run(ctx, opts)
	if sum != nil && sum.RunID != "" {
		if err := a.dispatcher().SendAll(context.WithoutCancel(ctx), sum.Message()); err != nil {
			a.logger.Warn("summary notification failed", "error", err)
		}
	}
	return sum, runErr
}

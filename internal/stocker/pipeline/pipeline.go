// Package pipeline drives a stocker run: it builds the search queries, hands
// each one to a worker and writes the resulting rows to the configured
// outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/search"
	"github.com/RobinCoderZhao/stocker/internal/stocker/store"
	"github.com/RobinCoderZhao/stocker/internal/stocker/webparser"
	"github.com/RobinCoderZhao/stocker/internal/stocker/worker"
)

// Deps are the collaborators of a Stocker. Nil outputs are skipped.
type Deps struct {
	Searcher search.Searcher
	Scraper  webparser.Scraper
	Names    query.NameResolver

	CSV   *output.CSVWriter
	Dedup *output.DedupFile
	Store *store.Store

	Logger *slog.Logger
}

// Options control one Run.
type Options struct {
	// Depth > 1 adds a company name query per ticker and source.
	Depth int
	// BuildQueries appends queries for Tickers x Sources before running.
	BuildQueries bool
	Shuffle      bool
	// Seed makes the shuffle reproducible. Zero seeds from the clock.
	Seed int64
	CSV  bool
	JSON bool
	// ReturnRows keeps every written row in Summary.Collected.
	ReturnRows bool
}

// DefaultOptions matches a plain command line run.
func DefaultOptions() Options {
	return Options{Depth: 1, BuildQueries: true, Shuffle: true, CSV: true, JSON: true}
}

// Stocker gathers news articles for a set of tickers from a set of sources.
type Stocker struct {
	Tickers []string
	Sources []string
	// Queries are the work items of the next Run. Callers may add their own.
	Queries []query.WorkItem

	// MaxURLs bounds the pages visited per query. Zero uses the worker
	// default.
	MaxURLs int
	// QueryDelay pauses between queries.
	QueryDelay time.Duration

	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Stocker.
func New(tickers, sources []string, deps Deps) *Stocker {
	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Stocker{
		Tickers: tickers,
		Sources: sources,
		deps:    deps,
		logger:  l,
		now:     time.Now,
	}
}

// BuildQueries appends the queries for every ticker and source.
func (s *Stocker) BuildQueries(ctx context.Context, depth int) []query.WorkItem {
	b := query.Builder{Names: s.deps.Names}
	items := b.Build(ctx, s.Tickers, s.Sources, depth)
	s.Queries = append(s.Queries, items...)
	s.logger.Debug("built queries", "count", len(items))
	return items
}

// Run processes every query in turn. An empty query list returns an empty
// summary without touching any output.
func (s *Stocker) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.BuildQueries {
		s.BuildQueries(ctx, opts.Depth)
	}
	if len(s.Queries) == 0 {
		return &Summary{}, nil
	}
	if s.deps.Searcher == nil || s.deps.Scraper == nil {
		return nil, fmt.Errorf("stocker: searcher and scraper are required")
	}
	if opts.Shuffle {
		shuffle(s.Queries, opts.Seed)
	}

	sum := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Queries:   len(s.Queries),
		PerTicker: map[string]int{},
	}
	logger := s.logger.With("run_id", sum.RunID)
	logger.Info("run started", "queries", sum.Queries)

	if s.deps.Store != nil {
		if err := s.deps.Store.StartRun(ctx, sum.RunID); err != nil {
			return nil, err
		}
	}

	runErr := s.process(ctx, logger, opts, sum)
	sum.FinishedAt = s.now()

	if s.deps.Store != nil {
		// the run row is finished even when ctx was canceled
		finishCtx := context.WithoutCancel(ctx)
		if err := s.deps.Store.FinishRun(finishCtx, sum.storeRun()); err != nil {
			logger.Warn("finish run failed", "error", err)
		}
	}

	logger.Info("run finished",
		"queries", sum.Processed,
		"rows", sum.Rows,
		"urls", sum.URLs,
		"failures", sum.Failures,
		"duration", sum.Duration().Round(time.Millisecond))
	return sum, runErr
}

func (s *Stocker) process(ctx context.Context, logger *slog.Logger, opts Options, sum *Summary) error {
	total := len(s.Queries)
	for i, item := range s.Queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && s.QueryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.QueryDelay):
			}
		}
		logger.Info("query", "progress", fmt.Sprintf("%d/%d", i+1, total),
			"ticker", strings.ToUpper(item.Ticker), "source", item.Source)

		err := s.processOne(ctx, logger, item, opts, sum)
		sum.Processed++
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Stocker) processOne(ctx context.Context, logger *slog.Logger, item query.WorkItem, opts Options, sum *Summary) error {
	w := worker.New(item).WithLogger(logger)
	if s.MaxURLs > 0 {
		w.MaxURLs = s.MaxURLs
	}

	if err := w.GetURLs(ctx, s.deps.Searcher); err != nil {
		sum.SearchErrors++
		if errors.Is(err, search.ErrBlocked) {
			return fmt.Errorf("query %q: %w", item.Query, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}

	seen, err := s.seen(ctx, w.Ticker, opts)
	if err != nil {
		return err
	}
	w.RemoveDups(seen)

	if err := w.BuildNodes(ctx, s.deps.Scraper); err != nil {
		return err
	}
	sum.Failures += w.Failures

	rows := w.Dictify()
	if rows == nil {
		return nil
	}
	sum.Rows += len(rows)
	sum.PerTicker[w.Ticker] += len(rows)
	if opts.ReturnRows {
		sum.Collected = append(sum.Collected, rows...)
	}

	if opts.CSV && s.deps.CSV != nil {
		if err := s.deps.CSV.Write(rows); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if opts.JSON && s.deps.Dedup != nil {
		added, err := s.deps.Dedup.Merge(w.Ticker, w.ArticleURLs())
		if err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		sum.URLs += added
	}
	if s.deps.Store != nil {
		stored, err := s.deps.Store.SaveRows(ctx, sum.RunID, rows)
		if err != nil {
			return err
		}
		sum.Stored += stored
	}
	return nil
}

// seen merges the URLs recorded for ticker in the JSON file and the database.
func (s *Stocker) seen(ctx context.Context, ticker string, opts Options) (map[string]bool, error) {
	seen := map[string]bool{}
	if opts.JSON && s.deps.Dedup != nil {
		fromFile, err := s.deps.Dedup.Seen(ticker)
		if err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
		for u := range fromFile {
			seen[u] = true
		}
	}
	if s.deps.Store != nil {
		fromDB, err := s.deps.Store.SeenURLs(ctx, ticker)
		if err != nil {
			return nil, err
		}
		for u := range fromDB {
			seen[u] = true
		}
	}
	return seen, nil
}

func shuffle(items []query.WorkItem, seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
	r.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}

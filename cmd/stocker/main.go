// Stocker gathers stock news articles from web search results.
//
// Usage:
//
//	stocker run AAPL MSFT          # gather articles once
//	stocker watch --every 6h       # gather on a schedule
//	stocker queries AAPL --depth 2 # show the queries a run would issue
//	stocker tickers --index sp500  # list index constituents
//	stocker export --out news.xlsx # convert the CSV output to a spreadsheet
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/stocker/internal/logger"
	"github.com/RobinCoderZhao/stocker/internal/stocker/config"
	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
	"github.com/RobinCoderZhao/stocker/internal/stocker/pipeline"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/scheduler"
	"github.com/RobinCoderZhao/stocker/internal/stocker/store"
	"github.com/RobinCoderZhao/stocker/internal/stocker/tickers"
)

var version = "dev"

// globals set by the root command's persistent flags
var (
	configPath string
	logLevel   string
	cfg        *config.StockerConfig
	appLogger  *slog.Logger
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "stocker",
		Short:         "Gather stock news articles from web search results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./stocker.yaml or ~/.stocker.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(queriesCmd())
	rootCmd.AddCommand(tickersCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	cfg = c
	appLogger = logger.New("stocker", cfg.Log)
	slog.SetDefault(appLogger)
	if cfg.Path != "" {
		appLogger.Debug("config loaded", "path", cfg.Path)
	}
	return nil
}

// runFlags are the flags shared by run and watch.
type runFlags struct {
	sources []string
	depth   int
	csv     string
	json    string
	db      string
	backend string
	noCSV   bool
	noJSON  bool
	noShuf  bool
	seed    int64
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.sources, "sources", "s", nil, "news sources to search (default from config)")
	cmd.Flags().IntVarP(&f.depth, "depth", "d", 0, "query depth; 2 adds company name queries")
	cmd.Flags().StringVar(&f.csv, "csv", "", "CSV output file")
	cmd.Flags().StringVar(&f.json, "json", "", "JSON file of processed URLs")
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite database file")
	cmd.Flags().StringVar(&f.backend, "backend", "", "search backend: google or googlenews")
	cmd.Flags().BoolVar(&f.noCSV, "no-csv", false, "do not write the CSV file")
	cmd.Flags().BoolVar(&f.noJSON, "no-json", false, "do not read or write the JSON file")
	cmd.Flags().BoolVar(&f.noShuf, "no-shuffle", false, "process queries in order")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "shuffle seed (0 = random)")
}

// apply copies flags onto the config and returns the run options.
func (f *runFlags) apply(cmd *cobra.Command) (pipeline.Options, error) {
	if len(f.sources) > 0 {
		cfg.Sources = f.sources
	}
	if f.depth > 0 {
		cfg.Depth = f.depth
	}
	if f.csv != "" {
		cfg.Output.CSV = f.csv
	}
	if f.json != "" {
		cfg.Output.JSON = f.json
	}
	if f.db != "" {
		cfg.Output.DB = f.db
	}
	if f.backend != "" {
		cfg.Search.Backend = f.backend
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = f.seed
	}
	if f.noShuf {
		cfg.Shuffle = false
	}
	if f.noCSV {
		cfg.Output.CSV = ""
	}
	if f.noJSON {
		cfg.Output.JSON = ""
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	for _, s := range cfg.Sources {
		if !query.IsValidSource(s) {
			appLogger.Warn("source is not one of the usual outlets", "source", s, "known", query.ValidSources())
		}
	}

	return pipeline.Options{
		Depth:        cfg.Depth,
		BuildQueries: true,
		Shuffle:      cfg.Shuffle,
		Seed:         cfg.Seed,
		CSV:          cfg.Output.CSV != "",
		JSON:         cfg.Output.JSON != "",
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [TICKER...]",
		Short: "Gather articles once",
		Long:  "Search every ticker/source pair, scrape the result pages and append new articles to the outputs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.apply(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			sum, err := newApp(cfg, appLogger).runOnce(ctx, args, opts)
			if sum != nil && sum.RunID != "" {
				renderSummary(cmd.OutOrStdout(), sum)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No queries to run.")
			}
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func watchCmd() *cobra.Command {
	var flags runFlags
	var every string

	cmd := &cobra.Command{
		Use:   "watch [TICKER...]",
		Short: "Gather articles repeatedly on a schedule",
		Long:  "Run immediately and then on every activation of the schedule (a duration such as 6h, @every 30m or a cron expression).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if every != "" {
				cfg.Schedule = every
			}
			opts, err := flags.apply(cmd)
			if err != nil {
				return err
			}
			if cfg.Schedule == "" {
				return fmt.Errorf("no schedule: set schedule in the config or pass --every")
			}
			sched, err := scheduler.ParseSchedule(cfg.Schedule)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			a := newApp(cfg, appLogger)
			s := scheduler.NewScheduler().WithLogger(appLogger)
			s.Add(scheduler.Job{
				Name: "gather",
				Fn: func(ctx context.Context) error {
					_, err := a.runOnce(ctx, args, opts)
					return err
				},
			})
			return s.Start(ctx, sched)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&every, "every", "", "schedule (default from config)")
	return cmd
}

func queriesCmd() *cobra.Command {
	var sources []string
	var depth int

	cmd := &cobra.Command{
		Use:   "queries [TICKER...]",
		Short: "Show the search queries a run would issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sources) > 0 {
				cfg.Sources = sources
			}
			if depth > 0 {
				cfg.Depth = depth
			}
			ctx, cancel := signalContext()
			defer cancel()

			a := newApp(cfg, appLogger)
			dir := tickers.NewDirectory()
			if (len(args) == 0 && len(cfg.Tickers) == 0) || cfg.Depth > 1 {
				dir = a.directory(ctx)
			}
			list, err := a.tickerList(args, dir)
			if err != nil {
				return err
			}
			items := query.Builder{Names: a.names(dir)}.Build(ctx, list, cfg.Sources, cfg.Depth)
			renderQueries(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "sources", "s", nil, "news sources (default from config)")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "query depth")
	return cmd
}

func tickersCmd() *cobra.Command {
	var indexes []string
	var limit int

	cmd := &cobra.Command{
		Use:   "tickers",
		Short: "List index constituents with sector and industry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(indexes) > 0 {
				cfg.Indexes = indexes
			}
			for _, raw := range cfg.Indexes {
				if _, err := tickers.ParseIndex(raw); err != nil {
					return err
				}
			}
			ctx, cancel := signalContext()
			defer cancel()

			a := newApp(cfg, appLogger)
			companies, err := tickers.NewClient(a.fetcher).FetchAll(ctx, cfg.IndexList())
			if err != nil {
				return err
			}
			if limit > 0 && len(companies) > limit {
				companies = companies[:limit]
			}
			renderCompanies(cmd.OutOrStdout(), companies)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&indexes, "index", "i", nil, "sp500, nyse or nasdaq (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n companies")
	return cmd
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the known news sources",
		Run: func(cmd *cobra.Command, args []string) {
			renderSources(cmd.OutOrStdout(), query.ValidSources())
		},
	}
}

func exportCmd() *cobra.Command {
	var in, out string
	var fromDB bool
	var ticker string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export gathered articles to an Excel spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			if fromDB {
				if cfg.Output.DB == "" {
					return fmt.Errorf("no database configured")
				}
				ctx := context.Background()
				st, err := store.Open(ctx, cfg.Output.DB)
				if err != nil {
					return err
				}
				defer st.Close()
				rows, err := st.Articles(ctx, ticker)
				if err != nil {
					return err
				}
				if err := output.WriteXLSX(out, rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d articles to %s\n", len(rows), out)
				return nil
			}

			if in == "" {
				in = cfg.Output.CSV
			}
			if in == "" {
				return fmt.Errorf("no CSV file: pass --in or set output.csv")
			}
			n, err := output.ExportXLSX(in, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d articles to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "CSV file to read (default output.csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "spreadsheet to write")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "read articles from the SQLite database instead")
	cmd.Flags().StringVar(&ticker, "ticker", "", "with --from-db, export only this ticker")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Output.DB == "" {
				return fmt.Errorf("no database configured: set output.db or STOCKER_DB_PATH")
			}
			ctx := context.Background()
			st, err := store.Open(ctx, cfg.Output.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			count, err := st.ArticleCount(ctx)
			if err != nil {
				return err
			}
			renderRuns(cmd.OutOrStdout(), runs)
			fmt.Fprintf(cmd.OutOrStdout(), "%d articles stored\n", count)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stocker %s\n", version)
		},
	}
}

// Package config holds the stocker configuration file format, its defaults
// and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RobinCoderZhao/stocker/internal/logger"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/scheduler"
	"github.com/RobinCoderZhao/stocker/internal/stocker/search"
	"github.com/RobinCoderZhao/stocker/internal/stocker/tickers"
	"github.com/RobinCoderZhao/stocker/internal/stocker/webparser"
	"github.com/RobinCoderZhao/stocker/internal/stocker/worker"
	pkgconfig "github.com/RobinCoderZhao/stocker/pkg/config"
	"github.com/RobinCoderZhao/stocker/pkg/notify"
	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

// FileName is the config file looked up in the working and home directories.
const FileName = "stocker.yaml"

// StockerConfig is the full stocker configuration.
type StockerConfig struct {
	Log logger.Options `yaml:"log"`

	// Tickers to gather news for. Empty means every symbol of Indexes.
	Tickers []string `yaml:"tickers" env:"STOCKER_TICKERS"`
	// Indexes supply symbols and the sector/industry of each company.
	Indexes []string `yaml:"indexes" env:"STOCKER_INDEXES"`
	Sources []string `yaml:"sources" env:"STOCKER_SOURCES"`
	Depth   int      `yaml:"depth" env:"STOCKER_DEPTH"`

	Shuffle bool  `yaml:"shuffle" env:"STOCKER_SHUFFLE"`
	Seed    int64 `yaml:"seed" env:"STOCKER_SEED"`
	// QueryDelay pauses between queries to stay under search rate limits.
	QueryDelay time.Duration `yaml:"query_delay" env:"STOCKER_QUERY_DELAY"`

	Search SearchConfig         `yaml:"search"`
	Lookup LookupConfig         `yaml:"lookup"`
	HTTP   scraper.FetchOptions `yaml:"http"`
	Parser ParserConfig         `yaml:"parser"`
	Output OutputConfig         `yaml:"output"`

	// Schedule drives the watch command: a duration, "@every 6h" or cron.
	Schedule string       `yaml:"schedule" env:"STOCKER_SCHEDULE"`
	Notify   NotifyConfig `yaml:"notify"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// SearchConfig selects the search backend.
type SearchConfig struct {
	Backend string `yaml:"backend" env:"STOCKER_SEARCH_BACKEND"`
	BaseURL string `yaml:"base_url" env:"STOCKER_SEARCH_URL"`
}

// LookupConfig configures company name lookups.
type LookupConfig struct {
	// Yahoo enables the Yahoo autocomplete lookup for symbols missing from
	// the index directory.
	Yahoo    bool          `yaml:"yahoo" env:"STOCKER_YAHOO_LOOKUP"`
	YahooURL string        `yaml:"yahoo_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ParserConfig tunes article extraction.
type ParserConfig struct {
	MinArticleLength int `yaml:"min_article_length"`
	MaxURLs          int `yaml:"max_urls_per_query"`
}

// OutputConfig names the output files. Empty paths disable that output.
type OutputConfig struct {
	CSV  string `yaml:"csv" env:"STOCKER_CSV"`
	JSON string `yaml:"json" env:"STOCKER_JSON"`
	DB   string `yaml:"db" env:"STOCKER_DB_PATH"`
}

// NotifyConfig configures run summary notifications.
type NotifyConfig struct {
	Webhook  notify.WebhookConfig  `yaml:"webhook"`
	Telegram notify.TelegramConfig `yaml:"telegram"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *StockerConfig {
	return &StockerConfig{
		Log:     logger.Options{Level: "info", Format: "text"},
		Indexes: []string{string(tickers.SP500)},
		Sources: query.ValidSources(),
		Depth:   1,
		Shuffle: true,
		Search:  SearchConfig{Backend: string(search.BackendGoogle)},
		Lookup:  LookupConfig{Timeout: 10 * time.Second},
		HTTP:    *scraper.DefaultFetchOptions(),
		Parser: ParserConfig{
			MinArticleLength: webparser.DefaultMinArticleLength,
			MaxURLs:          worker.DefaultMaxURLs,
		},
		Output: OutputConfig{
			CSV:  "articles.csv",
			JSON: "seen_urls.json",
		},
		Schedule: "6h",
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// ./stocker.yaml and then ~/.stocker.yaml are tried, falling back to the
// defaults. Environment overrides apply in every case.
func Load(path string) (*StockerConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := pkgconfig.Load(path, cfg); err != nil {
			return nil, err
		}
		cfg.Path = path
		return cfg, nil
	}

	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := pkgconfig.Load(candidate, cfg); err != nil {
			return nil, err
		}
		cfg.Path = candidate
		return cfg, nil
	}

	if err := pkgconfig.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func searchPaths() []string {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+FileName))
	}
	return paths
}

// Validate reports the first configuration problem found.
func (c *StockerConfig) Validate() error {
	if c.Depth < 1 {
		return fmt.Errorf("depth must be at least 1, got %d", c.Depth)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for _, s := range c.Sources {
		if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " +") {
			return fmt.Errorf("invalid source %q", s)
		}
	}
	if c.Output.CSV == "" && c.Output.JSON == "" && c.Output.DB == "" {
		return fmt.Errorf("no output configured: set output.csv, output.json or output.db")
	}
	if _, err := search.ParseBackend(c.Search.Backend); err != nil {
		return err
	}
	for _, idx := range c.Indexes {
		if _, err := tickers.ParseIndex(idx); err != nil {
			return err
		}
	}
	if c.Schedule != "" {
		if _, err := scheduler.ParseSchedule(c.Schedule); err != nil {
			return err
		}
	}
	if c.QueryDelay < 0 {
		return fmt.Errorf("query_delay must not be negative")
	}
	return nil
}

// IndexList returns Indexes parsed. Call Validate first.
func (c *StockerConfig) IndexList() []tickers.Index {
	out := make([]tickers.Index, 0, len(c.Indexes))
	for _, raw := range c.Indexes {
		if idx, err := tickers.ParseIndex(raw); err == nil {
			out = append(out, idx)
		}
	}
	return out
}

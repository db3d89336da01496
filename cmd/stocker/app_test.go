package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/stocker/internal/stocker/config"
	"github.com/RobinCoderZhao/stocker/internal/stocker/pipeline"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/tickers"
	"github.com/RobinCoderZhao/stocker/pkg/notify"
)

func testApp(cfg *config.StockerConfig) *app {
	return newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTickerList(t *testing.T) {
	cfg := config.DefaultConfig()
	a := testApp(cfg)
	dir := tickers.NewDirectory(tickers.Company{Symbol: "MSFT"}, tickers.Company{Symbol: "AAPL"})

	got, err := a.tickerList([]string{"aapl", " goog ", ""}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOG"}, got)

	cfg.Tickers = []string{"nvda"}
	got, err = a.tickerList(nil, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, got)

	cfg.Tickers = nil
	got, err = a.tickerList(nil, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)

	_, err = a.tickerList(nil, tickers.NewDirectory())
	assert.Error(t, err)
}

func TestDispatcherChannels(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Empty(t, testApp(cfg).dispatcher().Channels())

	cfg.Notify.Webhook.URL = "https://hooks.example.com/x"
	cfg.Notify.Telegram = notify.TelegramConfig{BotToken: "t", ChannelID: "c"}
	assert.Equal(t, []notify.Channel{notify.ChannelTelegram, notify.ChannelWebhook}, testApp(cfg).dispatcher().Channels())
}

func TestSearcherBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Search.Backend = "bing"
	_, err := testApp(cfg).searcher()
	assert.Error(t, err)

	cfg.Search.Backend = "googlenews"
	s, err := testApp(cfg).searcher()
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	renderQueries(&buf, []query.WorkItem{{Ticker: "AAPL", Source: "reuters", Query: "AAPL+reuters+stock+articles"}})
	assert.Contains(t, buf.String(), "AAPL+reuters+stock+articles")

	buf.Reset()
	renderSummary(&buf, &pipeline.Summary{RunID: "run-1", Rows: 2, PerTicker: map[string]int{"AAPL": 2}})
	assert.Contains(t, buf.String(), "run-1")
	assert.Contains(t, buf.String(), "AAPL")
}

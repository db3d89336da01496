package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "stocker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRows_Dedup(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rows := []output.Row{
		{Ticker: "aapl", URL: "https://a.com/article/1", Article: "one", Class: "positive", PubDate: "2024-03-05T14:30:00Z"},
		{Ticker: "AAPL", URL: "https://a.com/article/2", Article: "two"},
		{Ticker: "MSFT", URL: "https://a.com/article/1", Article: "msft one"},
	}
	n, err := s.SaveRows(ctx, "run-1", rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.SaveRows(ctx, "run-2", rows[:2])
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := s.ArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	seen, err := s.SeenURLs(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"https://a.com/article/1": true, "https://a.com/article/2": true}, seen)

	got, err := s.Articles(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.Equal(t, "positive", got[0].Class)
	assert.Equal(t, "2024-03-05T14:30:00Z", got[0].PubDate)

	all, err := s.Articles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveRows_Empty(t *testing.T) {
	s := openTest(t)
	n, err := s.SaveRows(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRuns(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	clock := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.StartRun(ctx, "first"))
	clock = clock.Add(time.Minute)
	require.NoError(t, s.FinishRun(ctx, Run{ID: "first", Queries: 2, URLs: 5, Rows: 3, Failures: 1}))
	clock = clock.Add(time.Hour)
	require.NoError(t, s.StartRun(ctx, "second"))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].ID)
	assert.True(t, runs[0].FinishedAt.IsZero())
	assert.Equal(t, "first", runs[1].ID)
	assert.Equal(t, 3, runs[1].Rows)
	assert.Equal(t, 1, runs[1].Failures)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 1, 0, 0, time.UTC), runs[1].FinishedAt)

	r, err := s.GetRun(ctx, "first")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 2, r.Queries)
	assert.Equal(t, 5, r.URLs)

	r, err = s.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, r)

	assert.Error(t, s.FinishRun(ctx, Run{ID: "missing"}))
	assert.Error(t, s.StartRun(ctx, "first"))
}

package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/stocker/pkg/scraper"
)

func testFetcher(retries int) *scraper.HTTPFetcher {
	return scraper.NewHTTPFetcher(&scraper.FetchOptions{
		UserAgent:  "stocker-test",
		Timeout:    time.Second,
		RetryCount: retries,
		RetryDelay: time.Millisecond,
	})
}

const autocBody = `{"ResultSet":{"Query":"aapl","Result":[
  {"symbol":"AAPL.MX","name":"Apple Inc. (Mexico)","exch":"MEX","type":"S"},
  {"symbol":"AAPL","name":"Apple Inc.","exch":"NMS","type":"S"}
]}}`

func TestYahooLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autoc", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(autocBody))
	}))
	defer srv.Close()

	y := NewYahoo(testFetcher(0), srv.URL, time.Second)
	name, ok := y.CompanyName(context.Background(), "aapl")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", name)
}

func TestYahooLookup_NoExactMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(autocBody))
	}))
	defer srv.Close()

	name, err := NewYahoo(testFetcher(0), srv.URL, time.Second).Lookup(context.Background(), "AAP")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestYahooLookup_ServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	y := NewYahoo(testFetcher(1), srv.URL, time.Second)
	_, err := y.Lookup(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, scraper.StatusCode(err))
	assert.Equal(t, int32(2), calls.Load(), "502 is retried once")

	_, ok := y.CompanyName(context.Background(), "AAPL")
	assert.False(t, ok)
}

func TestYahooLookup_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(autocBody))
	}))
	defer srv.Close()

	name, ok := NewYahoo(testFetcher(2), srv.URL, time.Second).CompanyName(context.Background(), "AAPL")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", name)
	assert.Equal(t, int32(2), calls.Load())
}

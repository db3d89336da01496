package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExtractText_Simple(t *testing.T) {
	html := `<html><body><h1>Title</h1><p>Hello world</p><ul><li>Item 1</li><li>Item 2</li></ul></body></html>`
	text := ExtractText(html)
	for _, want := range []string{"Title", "Hello world", "Item 1", "Item 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
	if strings.Contains(text, "\n\n") {
		t.Errorf("expected blank lines to be collapsed, got: %q", text)
	}
}

func TestExtractText_RemovesScripts(t *testing.T) {
	html := `<html><body><script>alert('xss')</script><p>Content</p><style>.foo{}</style></body></html>`
	text := ExtractText(html)
	if strings.Contains(text, "alert") {
		t.Errorf("expected script content to be removed, got: %s", text)
	}
	if strings.Contains(text, ".foo") {
		t.Errorf("expected style content to be removed, got: %s", text)
	}
	if !strings.Contains(text, "Content") {
		t.Errorf("expected 'Content' in output, got: %s", text)
	}
}

func TestExtractText_RemovesNav(t *testing.T) {
	html := `<html><body><nav><a href="/">Home</a></nav><main><p>Main content</p></main><footer>Footer</footer></body></html>`
	text := ExtractText(html)
	if strings.Contains(text, "Home") {
		t.Errorf("expected nav content to be removed, got: %s", text)
	}
	if strings.Contains(text, "Footer") {
		t.Errorf("expected footer content to be removed, got: %s", text)
	}
	if !strings.Contains(text, "Main content") {
		t.Errorf("expected 'Main content' in output, got: %s", text)
	}
}

func TestTitle(t *testing.T) {
	html := `<html><head><title>Apple beats estimates</title></head><body></body></html>`
	if title := Title(html); title != "Apple beats estimates" {
		t.Errorf("expected 'Apple beats estimates', got '%s'", title)
	}
}

func testFetcher(retries int) *HTTPFetcher {
	return NewHTTPFetcher(&FetchOptions{
		UserAgent:  "stocker-test",
		Timeout:    2 * time.Second,
		RetryCount: retries,
		RetryDelay: time.Millisecond,
	})
}

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "stocker-test" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><title>ok</title></html>"))
	}))
	defer srv.Close()

	page, err := testFetcher(0).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.StatusCode)
	}
	if !strings.Contains(page.RawHTML, "<title>ok</title>") {
		t.Fatalf("unexpected body: %s", page.RawHTML)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	page, err := testFetcher(2).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if page.RawHTML != "recovered" {
		t.Fatalf("unexpected body: %s", page.RawHTML)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestFetch_DoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testFetcher(3).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected status 404 in error, got %v", err)
	}
	if IsTemporary(err) {
		t.Fatal("404 must not be temporary")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestIsTemporary(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &Error{Op: "fetch", StatusCode: 429}, true},
		{"server error", &Error{Op: "fetch", StatusCode: 502}, true},
		{"forbidden", &Error{Op: "fetch", StatusCode: 403}, false},
		{"canceled", &Error{Op: "fetch", Err: context.Canceled}, false},
		{"caller deadline", &Error{Op: "fetch", Err: context.DeadlineExceeded}, false},
		{"bad request", &Error{Op: "create request", Err: errors.New("bad url")}, false},
		{"transport", &Error{Op: "fetch", Err: errors.New("connection reset")}, true},
		{"plain", errors.New("parse failure"), false},
	}
	for _, tc := range cases {
		if got := IsTemporary(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFetch_RetriesClientTimeout(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(&FetchOptions{
		UserAgent:  "stocker-test",
		Timeout:    50 * time.Millisecond,
		RetryCount: 2,
		RetryDelay: time.Millisecond,
	})
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTemporary(err) {
		t.Fatalf("client timeout must be temporary: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestFetch_StopsWhenCallerDeadlinePasses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := testFetcher(3).Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected deadline error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

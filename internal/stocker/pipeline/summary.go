package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RobinCoderZhao/stocker/internal/stocker/output"
	"github.com/RobinCoderZhao/stocker/internal/stocker/store"
	"github.com/RobinCoderZhao/stocker/pkg/notify"
)

// Summary describes a finished run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Queries is the number of queued queries; Processed how many ran.
	Queries   int
	Processed int
	// Rows is the number of article rows produced.
	Rows int
	// URLs is the number of URLs newly recorded in the JSON file.
	URLs int
	// Stored is the number of rows new to the database.
	Stored int
	// Failures counts pages that could not be scraped.
	Failures     int
	SearchErrors int

	PerTicker map[string]int
	Collected []output.Row
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Tickers returns the tickers with rows, sorted.
func (s *Summary) Tickers() []string {
	out := make([]string, 0, len(s.PerTicker))
	for t := range s.PerTicker {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Message renders the summary as a plain text notification.
func (s *Summary) Message() notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "queries: %d/%d\n", s.Processed, s.Queries)
	fmt.Fprintf(&b, "articles: %d (new urls %d, failures %d, search errors %d)\n",
		s.Rows, s.URLs, s.Failures, s.SearchErrors)
	for _, t := range s.Tickers() {
		fmt.Fprintf(&b, "%s: %d\n", t, s.PerTicker[t])
	}
	fmt.Fprintf(&b, "took %s", s.Duration().Round(time.Second))
	return notify.Message{
		Title:  fmt.Sprintf("stocker run %s", shortID(s.RunID)),
		Body:   b.String(),
		Format: "plain",
	}
}

func (s *Summary) storeRun() store.Run {
	return store.Run{
		ID:       s.RunID,
		Queries:  s.Processed,
		URLs:     s.URLs,
		Rows:     s.Rows,
		Failures: s.Failures + s.SearchErrors,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

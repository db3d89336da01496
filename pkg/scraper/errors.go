package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error describes a failed fetch. StatusCode is set when the server answered
// with an error status; Err is set for transport and read failures.
type Error struct {
	URL        string
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: HTTP status %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: failed", e.Op, e.URL)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTemporary reports whether err is worth retrying: client timeouts,
// connection failures, 429 and 5xx responses. Cancellation and a bare
// context.DeadlineExceeded are not temporary.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fe *Error
	if errors.As(err, &fe) {
		if fe.StatusCode != 0 {
			return fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= 500
		}
		if fe.Op == "create request" {
			return false
		}
	}

	return fe != nil && fe.Err != nil
}

// StatusCode extracts the HTTP status from a fetch error, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

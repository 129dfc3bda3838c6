package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnavailable means no provider is configured to answer
var ErrUnavailable = errors.New("language service unavailable")

// TransportError wraps any failure of a round trip: network, HTTP status,
// or an undecodable body.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the round trip ran out of time
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

func transportErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Provider: provider, Err: err}
}

func statusErr(provider string, code int, body []byte) error {
	return &TransportError{Provider: provider, StatusCode: code, Err: errors.New(truncate(string(body), 200))}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

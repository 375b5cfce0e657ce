// Package admin holds the plumbing shared by admin resource clients: the async
// transport contract, futures, failure translation and the HTTP transport.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/dray-io/dray-lookup/internal/adminerr"
)

// Callback receives the outcome of one AsyncGet. Exactly one of OnSuccess and
// OnFailure is invoked, exactly once, usually from a transport goroutine.
type Callback struct {
	OnSuccess func(body []byte)
	OnFailure func(cause error)
}

// Transport issues GET requests against admin endpoints.
type Transport interface {
	// AsyncGet starts a GET of path (already escaped, relative to the service
	// root) and returns immediately. The outcome is delivered to cb. ctx
	// supplies request-scoped values; its cancellation must not fail the
	// request.
	AsyncGet(ctx context.Context, path string, cb Callback)
}

// StatusError is the failure a transport reports for a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("admin: %s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// Reason extracts the server's explanation from the response body. Admin
// endpoints answer errors with {"reason": "..."}; anything else is returned as
// trimmed text.
func (e *StatusError) Reason() string {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Reason != "" {
		return body.Reason
	}
	return strings.TrimSpace(string(e.Body))
}

// Translate maps a raw transport failure into the admin error domain. The
// original cause is always kept as the unwrap target.
func Translate(cause error) *adminerr.Error {
	var existing *adminerr.Error
	if errors.As(cause, &existing) {
		return existing
	}

	e := &adminerr.Error{Kind: adminerr.KindTransport, Err: cause}

	var se *StatusError
	if errors.As(cause, &se) {
		e.StatusCode = se.StatusCode
		e.Reason = se.Reason()
		return e
	}

	switch {
	case errors.Is(cause, syscall.ECONNREFUSED):
		e.Reason = "connection refused"
	case isNetTimeout(cause):
		e.Reason = "request timed out"
	}
	return e
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

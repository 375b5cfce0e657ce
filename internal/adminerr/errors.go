// Package adminerr defines the typed error domain returned by the admin client.
//
// Every failure that crosses the client boundary is an *Error carrying one of
// a closed set of kinds. Callers branch with errors.Is against the sentinel
// values or with KindOf:
//
//	url, err := resolver.LookupTopic(ctx, "my-topic")
//	switch {
//	case errors.Is(err, adminerr.ErrTimeout):
//		// retry later
//	case adminerr.IsNotFound(err):
//		// topic does not exist
//	}
package adminerr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an admin error.
type Kind int

const (
	// KindUnknown is never produced by this module; it is the zero value.
	KindUnknown Kind = iota
	// KindMalformedTopicName is a local validation failure. No request was sent.
	KindMalformedTopicName
	// KindTransport is any failure reported by the HTTP collaborator.
	KindTransport
	// KindTimeout means the blocking wait elapsed before the request resolved.
	KindTimeout
	// KindInterrupted means the waiting context was cancelled.
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindMalformedTopicName:
		return "malformed_topic_name"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrMalformedTopicName = errors.New("adminerr: malformed topic name")
	ErrTransport          = errors.New("adminerr: transport failure")
	ErrTimeout            = errors.New("adminerr: timed out")
	ErrInterrupted        = errors.New("adminerr: interrupted")
)

// Error is the single error type surfaced by the admin client.
type Error struct {
	Kind Kind

	// Op names the client operation, e.g. "lookup-topic".
	Op string

	// Topic is the raw topic argument, when the operation had one.
	Topic string

	// StatusCode is the HTTP status for transport failures that got a response.
	// Zero when no response was received.
	StatusCode int

	// Reason is the server supplied explanation, if any.
	Reason string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Topic != "" {
		fmt.Fprintf(&b, " (topic %q)", e.Topic)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	switch {
	case e.Reason != "":
		b.WriteString(": ")
		b.WriteString(e.Reason)
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindMalformedTopicName:
		return ErrMalformedTopicName
	case KindTransport:
		return ErrTransport
	case KindTimeout:
		return ErrTimeout
	case KindInterrupted:
		return ErrInterrupted
	}
	return nil
}

// WithOp returns a copy of e with Op and Topic filled in where they are empty.
// e itself is never modified, since translated errors may be shared.
func (e *Error) WithOp(op, topic string) *Error {
	c := *e
	if c.Op == "" {
		c.Op = op
	}
	if c.Topic == "" {
		c.Topic = topic
	}
	return &c
}

// MalformedTopicName builds a validation error for raw.
func MalformedTopicName(raw, reason string) *Error {
	return &Error{Kind: KindMalformedTopicName, Topic: raw, Reason: reason}
}

// Timeout builds a timeout error for op wrapping cause.
func Timeout(op, topic string, cause error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Topic: topic, Err: cause}
}

// Interrupted builds an interruption error for op. cause is normally ctx.Err(),
// which keeps errors.Is(err, context.Canceled) true for callers.
func Interrupted(op, topic string, cause error) *Error {
	return &Error{Kind: KindInterrupted, Op: op, Topic: topic, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsNotFound reports a 404 from the admin endpoint.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNotAuthorized reports a 401 or 403 from the admin endpoint.
func IsNotAuthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsConflict reports a 409 from the admin endpoint.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsPreconditionFailed reports a 412 from the admin endpoint.
func IsPreconditionFailed(err error) bool {
	return StatusCode(err) == http.StatusPreconditionFailed
}

// IsServerError reports any 5xx from the admin endpoint.
func IsServerError(err error) bool {
	code := StatusCode(err)
	return code >= 500 && code <= 599
}

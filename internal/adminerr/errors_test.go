package adminerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_IsMatchesOwnKindOnly(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindMalformedTopicName, ErrMalformedTopicName},
		{KindTransport, ErrTransport},
		{KindTimeout, ErrTimeout},
		{KindInterrupted, ErrInterrupted},
	}
	all := []error{ErrMalformedTopicName, ErrTransport, ErrTimeout, ErrInterrupted}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &Error{Kind: tt.kind})
			for _, s := range all {
				got := errors.Is(err, s)
				if got != (s == tt.want) {
					t.Errorf("errors.Is(%v, %v) = %v", tt.kind, s, got)
				}
			}
			if KindOf(err) != tt.kind {
				t.Errorf("KindOf = %v, want %v", KindOf(err), tt.kind)
			}
		})
	}
}

func TestInterrupted_KeepsContextCause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Interrupted("lookup-topic", "t", ctx.Err())

	if !errors.Is(err, ErrInterrupted) {
		t.Error("expected ErrInterrupted")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled to remain visible")
	}
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		code     int
		notFound bool
		authz    bool
		conflict bool
		precond  bool
		server   bool
	}{
		{http.StatusNotFound, true, false, false, false, false},
		{http.StatusUnauthorized, false, true, false, false, false},
		{http.StatusForbidden, false, true, false, false, false},
		{http.StatusConflict, false, false, true, false, false},
		{http.StatusPreconditionFailed, false, false, false, true, false},
		{http.StatusServiceUnavailable, false, false, false, false, true},
		{0, false, false, false, false, false},
	}

	for _, tt := range tests {
		err := &Error{Kind: KindTransport, StatusCode: tt.code}
		if IsNotFound(err) != tt.notFound {
			t.Errorf("%d: IsNotFound = %v", tt.code, !tt.notFound)
		}
		if IsNotAuthorized(err) != tt.authz {
			t.Errorf("%d: IsNotAuthorized = %v", tt.code, !tt.authz)
		}
		if IsConflict(err) != tt.conflict {
			t.Errorf("%d: IsConflict = %v", tt.code, !tt.conflict)
		}
		if IsPreconditionFailed(err) != tt.precond {
			t.Errorf("%d: IsPreconditionFailed = %v", tt.code, !tt.precond)
		}
		if IsServerError(err) != tt.server {
			t.Errorf("%d: IsServerError = %v", tt.code, !tt.server)
		}
	}

	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors carry no status")
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:       KindTransport,
		Op:         "lookup-topic",
		Topic:      "my-topic",
		StatusCode: 404,
		Reason:     "Topic not found",
	}
	want := `lookup-topic: transport (topic "my-topic"): status 404: Topic not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = MalformedTopicName("a/b", "invalid short topic name")
	want = `malformed_topic_name (topic "a/b"): invalid short topic name`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_WithOpCopies(t *testing.T) {
	orig := &Error{Kind: KindTransport, Topic: "given"}
	got := orig.WithOp("bundle-range", "ignored")

	if got == orig {
		t.Fatal("WithOp returned the receiver")
	}
	if got.Op != "bundle-range" || got.Topic != "given" {
		t.Errorf("WithOp = %+v", got)
	}
	if orig.Op != "" {
		t.Errorf("receiver modified: %+v", orig)
	}
}

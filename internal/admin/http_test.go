package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dray-io/dray-lookup/internal/adminerr"
	"github.com/dray-io/dray-lookup/internal/logging"
)

type outcome struct {
	body []byte
	err  error
}

func getSync(ctx context.Context, t *testing.T, tr Transport, path string) outcome {
	t.Helper()
	ch := make(chan outcome, 1)
	tr.AsyncGet(ctx, path, Callback{
		OnSuccess: func(body []byte) { ch <- outcome{body: body} },
		OnFailure: func(err error) { ch <- outcome{err: err} },
	})
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
		return outcome{}
	}
}

func TestHTTPTransport_Success(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"brokerUrl":"pulsar://b1:6650"}`))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(HTTPConfig{
		ServiceURL: srv.URL + "/",
		AuthToken:  "secret",
		UserAgent:  "dray-lookup/test",
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	ctx := logging.WithRequestIDCtx(context.Background(), "req-42")
	o := getSync(ctx, t, tr, "/lookup/v2/topic/persistent/public/default/a%2Fb")
	require.NoError(t, o.err)
	assert.JSONEq(t, `{"brokerUrl":"pulsar://b1:6650"}`, string(o.body))

	gotReq := <-reqs
	assert.Equal(t, "/lookup/v2/topic/persistent/public/default/a%2Fb", gotReq.URL.EscapedPath())
	assert.Equal(t, "Bearer secret", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "dray-lookup/test", gotReq.Header.Get("User-Agent"))
	assert.Equal(t, "req-42", gotReq.Header.Get(RequestIDHeader))
	assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))
}

func TestHTTPTransport_GeneratesRequestID(t *testing.T) {
	ids := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`"x"`))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(HTTPConfig{ServiceURL: srv.URL, Logger: logging.Discard()})
	require.NoError(t, err)

	o := getSync(context.Background(), t, tr, "/p")
	require.NoError(t, o.err)
	assert.Len(t, <-ids, 36)
}

func TestHTTPTransport_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"reason":"Topic not found"}`))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(HTTPConfig{ServiceURL: srv.URL, Logger: logging.Discard()})
	require.NoError(t, err)

	o := getSync(context.Background(), t, tr, "/lookup/v2/topic/persistent/a/b/c")
	require.Error(t, o.err)

	var se *StatusError
	require.ErrorAs(t, o.err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)

	translated := Translate(o.err)
	assert.Equal(t, adminerr.KindTransport, translated.Kind)
	assert.Equal(t, "Topic not found", translated.Reason)
	assert.True(t, adminerr.IsNotFound(translated))
	assert.Same(t, se, errors.Unwrap(translated))
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tr, err := NewHTTPTransport(HTTPConfig{ServiceURL: "http://" + addr, Logger: logging.Discard()})
	require.NoError(t, err)

	o := getSync(context.Background(), t, tr, "/lookup/v2/topic/persistent/a/b/c")
	require.Error(t, o.err)
	assert.ErrorIs(t, o.err, syscall.ECONNREFUSED)

	translated := Translate(o.err)
	assert.ErrorIs(t, translated, adminerr.ErrTransport)
	assert.ErrorIs(t, translated, syscall.ECONNREFUSED)
	assert.Equal(t, "connection refused", translated.Reason)
}

func TestNewHTTPTransport_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "http://", "://nope"} {
		_, err := NewHTTPTransport(HTTPConfig{ServiceURL: u})
		assert.Error(t, err, "url %q", u)
	}
}

func TestBuildTLSConfig_Validation(t *testing.T) {
	_, _, err := BuildTLSConfig(TLSConfig{CertFile: "only-cert.pem"}, logging.Discard())
	assert.Error(t, err)

	_, _, err = BuildTLSConfig(TLSConfig{CAFile: "/does/not/exist.pem"}, logging.Discard())
	assert.Error(t, err)

	cfg, reloader, err := BuildTLSConfig(TLSConfig{InsecureSkipVerify: true}, logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, reloader)
	assert.True(t, cfg.InsecureSkipVerify)
}

func TestTranslate(t *testing.T) {
	cause := errors.New("boom")
	e := Translate(cause)
	assert.Equal(t, adminerr.KindTransport, e.Kind)
	assert.Same(t, cause, e.Err)

	already := &adminerr.Error{Kind: adminerr.KindTimeout}
	assert.Same(t, already, Translate(already))

	timeout := &net.OpError{Op: "dial", Err: timeoutErr{}}
	assert.Equal(t, "request timed out", Translate(timeout).Reason)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

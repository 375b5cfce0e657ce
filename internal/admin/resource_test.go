package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dray-io/dray-lookup/internal/adminerr"
	"github.com/dray-io/dray-lookup/internal/logging"
)

// funcTransport answers every request synchronously through fn.
type funcTransport func(path string, cb Callback)

func (f funcTransport) AsyncGet(_ context.Context, path string, cb Callback) { f(path, cb) }

func TestDecode_StringAcceptsTextAndJSON(t *testing.T) {
	var s string
	require.NoError(t, decode([]byte("0x00000000_0xffffffff\n"), &s))
	assert.Equal(t, "0x00000000_0xffffffff", s)

	require.NoError(t, decode([]byte(`"0x40000000_0x80000000"`), &s))
	assert.Equal(t, "0x40000000_0x80000000", s)
}

func TestAsyncGetRequest_DecodesStruct(t *testing.T) {
	r := NewBaseResource(funcTransport(func(path string, cb Callback) {
		cb.OnSuccess([]byte(`{"name":"x","count":3}`))
	}), time.Second, logging.Discard())

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	f := NewFuture[payload]()
	AsyncGetRequest(context.Background(), &r, "/p", func(p payload) { f.Complete(p) }, func(err error) { f.Fail(err) })

	v, err := f.Get(context.Background(), r.ReadTimeout(), "op", "")
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "x", Count: 3}, v)
}

func TestAsyncGetRequest_DecodeFailureIsTransportError(t *testing.T) {
	r := NewBaseResource(funcTransport(func(path string, cb Callback) {
		cb.OnSuccess([]byte(`not json`))
	}), time.Second, logging.Discard())

	f := NewFuture[map[string]string]()
	AsyncGetRequest(context.Background(), &r, "/p", func(m map[string]string) { f.Complete(m) }, func(err error) { f.Fail(err) })

	_, err := f.Result()
	assert.ErrorIs(t, err, adminerr.ErrTransport)
}

func TestAsyncGetRequest_FailureIsTranslated(t *testing.T) {
	cause := errors.New("connection reset")
	r := NewBaseResource(funcTransport(func(path string, cb Callback) {
		cb.OnFailure(cause)
	}), 0, nil)

	assert.Equal(t, DefaultReadTimeout, r.ReadTimeout())

	var got error
	AsyncGetRequest(context.Background(), &r, "/p", func(string) {}, func(err error) { got = err })

	require.Error(t, got)
	assert.ErrorIs(t, got, adminerr.ErrTransport)
	assert.ErrorIs(t, got, cause)
}

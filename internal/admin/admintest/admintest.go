// Package admintest provides an in-memory admin.Transport for tests.
package admintest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dray-io/dray-lookup/internal/admin"
)

// Response is the scripted outcome for a path.
type Response struct {
	// Body is returned on success.
	Body []byte

	// Err is returned through OnFailure when non-nil.
	Err error

	// Hang leaves the request pending until Release is called, which then
	// delivers Body or Err.
	Hang bool
}

// JSON is a Response whose body is v encoded as JSON. It panics if v cannot
// be encoded.
func JSON(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("admintest: marshal: %v", err))
	}
	return Response{Body: data}
}

// Text is a Response with a raw text body.
func Text(s string) Response { return Response{Body: []byte(s)} }

// Fail is a Response that fails with err.
func Fail(err error) Response { return Response{Err: err} }

// Hang is a Response that never completes on its own.
func Hang() Response { return Response{Hang: true} }

// Transport records requests and answers them from a path table. Unknown
// paths fail with a 404 *admin.StatusError. Callbacks run on a new goroutine,
// as they would with a real transport.
type Transport struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
	pending   []func()
	wg        sync.WaitGroup
}

// New returns an empty Transport.
func New() *Transport {
	return &Transport{responses: make(map[string]Response)}
}

// Set scripts the response for path.
func (t *Transport) Set(path string, r Response) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[path] = r
	return t
}

// AsyncGet implements admin.Transport.
func (t *Transport) AsyncGet(_ context.Context, path string, cb admin.Callback) {
	t.mu.Lock()
	t.calls = append(t.calls, path)
	r, ok := t.responses[path]
	if !ok {
		r = Response{Err: &admin.StatusError{
			Method:     "GET",
			Path:       path,
			StatusCode: 404,
			Body:       []byte(`{"reason":"Not found"}`),
		}}
	}

	deliver := func() {
		if r.Err != nil {
			cb.OnFailure(r.Err)
			return
		}
		cb.OnSuccess(r.Body)
	}

	if r.Hang {
		t.pending = append(t.pending, deliver)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		deliver()
	}()
}

// Release settles every hanging request with its scripted outcome.
func (t *Transport) Release() {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// Calls returns the requested paths in order.
func (t *Transport) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// CallCount returns the number of requests issued.
func (t *Transport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Wait blocks until every non-hanging request has delivered its callback.
func (t *Transport) Wait() { t.wg.Wait() }

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dray-io/dray-lookup/internal/logging"
)

// DefaultReadTimeout bounds blocking calls when no timeout is configured.
const DefaultReadTimeout = 60 * time.Second

// BaseResource is embedded by admin resource clients. It owns the transport
// and the read timeout applied by blocking calls.
type BaseResource struct {
	transport   Transport
	readTimeout time.Duration
	logger      *logging.Logger
}

// NewBaseResource creates a BaseResource. readTimeout <= 0 selects
// DefaultReadTimeout.
func NewBaseResource(transport Transport, readTimeout time.Duration, logger *logging.Logger) BaseResource {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return BaseResource{transport: transport, readTimeout: readTimeout, logger: logger}
}

// ReadTimeout returns the bound used by blocking calls.
func (r *BaseResource) ReadTimeout() time.Duration { return r.readTimeout }

// Logger returns the resource logger.
func (r *BaseResource) Logger() *logging.Logger { return r.logger }

// AsyncGetRequest issues a GET of path through r's transport and decodes the
// response body into a T before handing it to onSuccess. Transport and decode
// failures both reach onFailure, already translated.
func AsyncGetRequest[T any](ctx context.Context, r *BaseResource, path string, onSuccess func(T), onFailure func(error)) {
	r.transport.AsyncGet(ctx, path, Callback{
		OnSuccess: func(body []byte) {
			var v T
			if err := decode(body, &v); err != nil {
				onFailure(Translate(fmt.Errorf("admin: decode %s: %w", path, err)))
				return
			}
			onSuccess(v)
		},
		OnFailure: func(cause error) {
			onFailure(Translate(cause))
		},
	})
}

// decode unmarshals JSON into v. String targets also accept a bare text body,
// which is how some endpoints answer with scalar values.
func decode(body []byte, v any) error {
	if s, ok := v.(*string); ok {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			return json.Unmarshal(trimmed, s)
		}
		*s = string(trimmed)
		return nil
	}
	return json.Unmarshal(body, v)
}

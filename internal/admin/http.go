package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dray-io/dray-lookup/internal/logging"
)

const (
	// DefaultRequestTimeout bounds a single HTTP round trip.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds TCP connection setup.
	DefaultConnectTimeout = 10 * time.Second

	// RequestIDHeader carries the per-request ID to the server.
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 4 << 20
)

// HTTPConfig configures an HTTPTransport.
type HTTPConfig struct {
	// ServiceURL is the admin endpoint, e.g. "http://localhost:8080".
	ServiceURL string

	// AuthToken, when set, is sent as a bearer token.
	AuthToken string

	// UserAgent defaults to "dray-lookup".
	UserAgent string

	// RequestTimeout bounds each request, including reading the body. It is
	// what eventually releases requests that a blocking caller stopped
	// waiting for.
	RequestTimeout time.Duration

	// ConnectTimeout bounds dialing.
	ConnectTimeout time.Duration

	// TLS is used for https service URLs.
	TLS TLSConfig

	// Client overrides the HTTP client entirely. TLS and timeouts are then the
	// caller's responsibility.
	Client *http.Client

	Logger *logging.Logger
}

// HTTPTransport implements Transport over net/http. Each AsyncGet runs on its
// own goroutine.
type HTTPTransport struct {
	base      string
	token     string
	userAgent string
	client    *http.Client
	reloader  *ClientCertReloader
	logger    *logging.Logger
}

// NewHTTPTransport validates cfg and builds the transport.
func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	u, err := url.Parse(cfg.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("admin: parse service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("admin: service url %q must be http or https", cfg.ServiceURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("admin: service url %q has no host", cfg.ServiceURL)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	t := &HTTPTransport{
		base:      strings.TrimRight(u.String(), "/"),
		token:     cfg.AuthToken,
		userAgent: cfg.UserAgent,
		client:    cfg.Client,
		logger:    logger.Named("admin-http"),
	}
	if t.userAgent == "" {
		t.userAgent = "dray-lookup"
	}

	if t.client == nil {
		requestTimeout := cfg.RequestTimeout
		if requestTimeout <= 0 {
			requestTimeout = DefaultRequestTimeout
		}
		connectTimeout := cfg.ConnectTimeout
		if connectTimeout <= 0 {
			connectTimeout = DefaultConnectTimeout
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
		if u.Scheme == "https" {
			tlsCfg, reloader, err := BuildTLSConfig(cfg.TLS, logger)
			if err != nil {
				return nil, err
			}
			transport.TLSClientConfig = tlsCfg
			t.reloader = reloader
		}
		t.client = &http.Client{Transport: transport, Timeout: requestTimeout}
	}

	return t, nil
}

// CertReloader returns the mTLS certificate reloader, or nil.
func (t *HTTPTransport) CertReloader() *ClientCertReloader { return t.reloader }

// AsyncGet implements Transport. Cancelling ctx does not abort the request:
// only RequestTimeout bounds it. Waiters observe cancellation on their own
// through Future.Get.
func (t *HTTPTransport) AsyncGet(ctx context.Context, path string, cb Callback) {
	requestID := logging.RequestIDFromCtx(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = context.WithoutCancel(ctx)

	go func() {
		start := time.Now()
		body, err := t.get(ctx, path, requestID)
		fields := map[string]any{
			"path":       path,
			"durationMs": time.Since(start).Milliseconds(),
		}
		log := t.logger.WithRequestID(requestID)
		if err != nil {
			fields["error"] = err.Error()
			log.Debugf("admin request failed", fields)
			cb.OnFailure(err)
			return
		}
		log.Debugf("admin request completed", fields)
		cb.OnSuccess(body)
	}()
}

func (t *HTTPTransport) get(ctx context.Context, path, requestID string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("admin: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("admin: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}
	return body, nil
}

// unwrapURLError drops the *url.Error layer so the cause recorded on admin
// errors is the underlying network failure.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

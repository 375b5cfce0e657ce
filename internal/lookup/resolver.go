// Package lookup resolves which broker owns a topic, and which namespace
// bundle the topic hashes into, through the admin lookup endpoints.
//
// Every operation has an async form returning an *admin.Future and a blocking
// form that waits on it with the resolver's read timeout. Results are never
// cached; each call issues exactly one request.
package lookup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dray-io/dray-lookup/internal/admin"
	"github.com/dray-io/dray-lookup/internal/adminerr"
	"github.com/dray-io/dray-lookup/internal/logging"
	"github.com/dray-io/dray-lookup/internal/metrics"
	"github.com/dray-io/dray-lookup/internal/topicname"
)

// DefaultRoot is the path prefix of the lookup endpoints.
const DefaultRoot = "/lookup/v2"

const tracerName = "github.com/dray-io/dray-lookup/internal/lookup"

// LookupData is the payload of a broker lookup.
type LookupData struct {
	BrokerURL    string `json:"brokerUrl"`
	BrokerURLTLS string `json:"brokerUrlTls"`
	HTTPURL      string `json:"httpUrl"`
	HTTPURLTLS   string `json:"httpUrlTls"`
	NativeURL    string `json:"nativeUrl"`
}

// Config is fixed at construction.
type Config struct {
	// Root is the endpoint prefix. Defaults to DefaultRoot.
	Root string

	// UseTLS selects BrokerURLTLS over BrokerURL in LookupTopic results.
	UseTLS bool

	// ReadTimeout bounds blocking calls. Defaults to admin.DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics records every lookup in m.
func WithMetrics(m *metrics.LookupMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger. Lookups are logged at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithTracerProvider sets the provider spans are created from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Resolver) { r.tracer = tp.Tracer(tracerName) }
}

// Resolver answers topic lookups. It is safe for concurrent use.
type Resolver struct {
	admin.BaseResource

	root    string
	useTLS  bool
	metrics *metrics.LookupMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// New creates a Resolver issuing requests through transport.
func New(transport admin.Transport, cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		root:   strings.TrimRight(cfg.Root, "/"),
		useTLS: cfg.UseTLS,
	}
	if r.root == "" {
		r.root = DefaultRoot
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.DefaultLogger()
	}
	r.logger = r.logger.Named("lookup")
	if r.tracer == nil {
		r.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	r.BaseResource = admin.NewBaseResource(transport, cfg.ReadTimeout, r.logger)
	return r
}

// UseTLS reports whether broker lookups return TLS URLs.
func (r *Resolver) UseTLS() bool { return r.useTLS }

type operation struct {
	name   string
	metric string
	suffix string
}

var (
	opLookupTopic     = operation{name: "lookup-topic", metric: metrics.OpLookupTopic}
	opLookupTopicData = operation{name: "lookup-topic-data", metric: metrics.OpLookupTopicData}
	opBundleRange     = operation{name: "bundle-range", metric: metrics.OpBundleRange, suffix: "/bundle"}
)

// LookupTopicAsync starts a lookup of the broker serving topic. The returned
// error is non-nil only when topic is malformed, in which case nothing is sent.
// Transport failures fail the future with a KindTransport error. Cancelling
// ctx after the call does not abort the request; the future still settles.
func (r *Resolver) LookupTopicAsync(ctx context.Context, topic string) (*admin.Future[string], error) {
	f := admin.NewFuture[string]()
	err := start(ctx, r, opLookupTopic, topic,
		func(d LookupData) { f.Complete(r.brokerURL(d)) },
		func(err error) { f.Fail(err) })
	if err != nil {
		return nil, err
	}
	return f, nil
}

// LookupTopic returns the URL of the broker serving topic, waiting at most the
// read timeout. Only the read timeout produces a KindTimeout error: when ctx
// is cancelled or reaches its own deadline first, the error is
// KindInterrupted wrapping ctx.Err(), so a caller deadline shorter than the
// read timeout surfaces as interrupted.
func (r *Resolver) LookupTopic(ctx context.Context, topic string) (string, error) {
	f, err := r.LookupTopicAsync(ctx, topic)
	return wait(ctx, r, opLookupTopic, topic, f, err)
}

// LookupTopicDataAsync is LookupTopicAsync returning the whole lookup record.
func (r *Resolver) LookupTopicDataAsync(ctx context.Context, topic string) (*admin.Future[LookupData], error) {
	f := admin.NewFuture[LookupData]()
	err := start(ctx, r, opLookupTopicData, topic,
		func(d LookupData) { f.Complete(d) },
		func(err error) { f.Fail(err) })
	if err != nil {
		return nil, err
	}
	return f, nil
}

// LookupTopicData returns the whole lookup record for topic.
func (r *Resolver) LookupTopicData(ctx context.Context, topic string) (LookupData, error) {
	f, err := r.LookupTopicDataAsync(ctx, topic)
	return wait(ctx, r, opLookupTopicData, topic, f, err)
}

// GetBundleRangeAsync starts a lookup of the namespace bundle topic belongs to.
// The range is returned exactly as the server sent it, e.g.
// "0x00000000_0xffffffff".
func (r *Resolver) GetBundleRangeAsync(ctx context.Context, topic string) (*admin.Future[string], error) {
	f := admin.NewFuture[string]()
	err := start(ctx, r, opBundleRange, topic,
		func(s string) { f.Complete(s) },
		func(err error) { f.Fail(err) })
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetBundleRange returns the bundle range of topic. Timeouts and ctx
// cancellation are reported as for LookupTopic.
func (r *Resolver) GetBundleRange(ctx context.Context, topic string) (string, error) {
	f, err := r.GetBundleRangeAsync(ctx, topic)
	return wait(ctx, r, opBundleRange, topic, f, err)
}

// Path returns the request path a lookup of name is sent to, without the
// bundle suffix.
func (r *Resolver) Path(name topicname.Name) string {
	return r.root + "/" + name.SchemePrefix() + "/" + name.LookupName()
}

func (r *Resolver) brokerURL(d LookupData) string {
	if r.useTLS {
		return d.BrokerURLTLS
	}
	return d.BrokerURL
}

// start parses topic and issues the request for op. Exactly one of onSuccess
// and onFailure runs unless a parse error is returned.
func start[T any](ctx context.Context, r *Resolver, op operation, topic string, onSuccess func(T), onFailure func(error)) error {
	name, err := topicname.Parse(topic)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordRejected(op.metric)
		}
		r.logger.Debugf("rejected malformed topic", map[string]any{
			"op":    op.name,
			"topic": topic,
			"error": err.Error(),
		})
		var ae *adminerr.Error
		if errors.As(err, &ae) {
			return ae.WithOp(op.name, topic)
		}
		return err
	}

	requestID := logging.RequestIDFromCtx(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logging.WithRequestIDCtx(ctx, requestID)
	}
	path := r.Path(name) + op.suffix

	ctx, span := r.tracer.Start(ctx, "lookup."+op.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("dray.lookup.topic", name.String()),
			attribute.String("dray.lookup.scheme", name.Scheme().String()),
			attribute.String("dray.lookup.path", path),
			attribute.String("dray.request_id", requestID),
		),
	)

	log := r.logger.WithRequestID(requestID)
	began := time.Now()
	finish := func(err error) {
		elapsed := time.Since(began)
		status := metrics.StatusSuccess
		fields := map[string]any{
			"op":         op.name,
			"topic":      topic,
			"path":       path,
			"durationMs": elapsed.Milliseconds(),
		}
		if err != nil {
			status = adminerr.KindOf(err).String()
			fields["error"] = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		fields["status"] = status
		span.End()
		if r.metrics != nil {
			r.metrics.RecordLookup(op.metric, status, elapsed.Seconds())
		}
		log.Debugf("lookup settled", fields)
	}

	admin.AsyncGetRequest(ctx, &r.BaseResource, path,
		func(v T) {
			finish(nil)
			onSuccess(v)
		},
		func(err error) {
			var ae *adminerr.Error
			if errors.As(err, &ae) {
				err = ae.WithOp(op.name, topic)
			}
			finish(err)
			onFailure(err)
		},
	)
	return nil
}

// wait is the blocking half shared by every operation.
func wait[T any](ctx context.Context, r *Resolver, op operation, topic string, f *admin.Future[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := f.Get(ctx, r.ReadTimeout(), op.name, topic)
	if err != nil && r.metrics != nil && !f.Settled() {
		r.metrics.RecordAbandoned(op.metric, adminerr.KindOf(err).String())
	}
	return v, err
}

// Package probe periodically resolves a fixed set of topics and reports
// ownership, ownership changes and lookup health.
//
// The prober remembers the last broker seen for each topic only to detect
// changes between rounds. Lookups themselves are never served from it.
package probe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dray-io/dray-lookup/internal/logging"
	"github.com/dray-io/dray-lookup/internal/metrics"
	"github.com/dray-io/dray-lookup/internal/server"
)

// GoroutineName is the name the run loop registers with the health server.
const GoroutineName = "lookup-prober"

// DefaultConcurrency caps in-flight lookups per round when Config leaves it 0.
const DefaultConcurrency = 8

// Resolver is the lookup surface the prober drives. *lookup.Resolver
// implements it.
type Resolver interface {
	LookupTopic(ctx context.Context, topic string) (string, error)
	GetBundleRange(ctx context.Context, topic string) (string, error)
}

// Config configures a Prober.
type Config struct {
	Topics      []string
	Interval    time.Duration
	Bundles     bool
	Concurrency int
}

// TopicStatus is the outcome of resolving one topic in a round.
type TopicStatus struct {
	Topic  string `json:"topic"`
	Broker string `json:"broker,omitempty"`
	Bundle string `json:"bundle,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether every lookup for the topic succeeded.
func (s TopicStatus) OK() bool { return s.Error == "" }

// Snapshot is the result of the latest completed round.
type Snapshot struct {
	Round       uint64        `json:"round"`
	RoundID     string        `json:"roundId"`
	CompletedAt time.Time     `json:"completedAt"`
	Duration    time.Duration `json:"duration"`
	OK          bool          `json:"ok"`
	Topics      []TopicStatus `json:"topics"`
}

// Option configures a Prober.
type Option func(*Prober)

// WithMetrics records rounds and ownership changes in m.
func WithMetrics(m *metrics.ProbeMetrics) Option {
	return func(p *Prober) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// WithHealth registers the run loop with h for liveness reporting.
func WithHealth(h *server.HealthServer) Option {
	return func(p *Prober) { p.health = h }
}

// Prober runs lookup rounds. Run drives it on an interval; Round runs one
// round directly.
type Prober struct {
	resolver Resolver
	cfg      Config
	metrics  *metrics.ProbeMetrics
	logger   *logging.Logger
	health   *server.HealthServer
	now      func() time.Time

	mu          sync.RWMutex
	owners      map[string]string
	last        Snapshot
	rounds      uint64
	lastSuccess time.Time
}

// New creates a Prober. A zero Interval selects 30s.
func New(resolver Resolver, cfg Config, opts ...Option) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	p := &Prober{
		resolver: resolver,
		cfg:      cfg,
		owners:   make(map[string]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.DefaultLogger()
	}
	p.logger = p.logger.Named("probe")
	if p.metrics != nil {
		p.metrics.TopicsWatched.Set(float64(len(cfg.Topics)))
	}
	return p
}

// Run probes immediately and then every Interval until ctx is done. It
// returns nil on cancellation.
func (p *Prober) Run(ctx context.Context) error {
	if len(p.cfg.Topics) == 0 {
		return errors.New("probe: no topics configured")
	}
	if p.health != nil {
		p.health.RegisterGoroutine(GoroutineName)
		defer p.health.UnregisterGoroutine(GoroutineName)
	}

	p.logger.Infof("prober started", map[string]any{
		"topics":   len(p.cfg.Topics),
		"interval": p.cfg.Interval.String(),
		"bundles":  p.cfg.Bundles,
	})

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.Round(ctx)
		if p.health != nil {
			p.health.UpdateGoroutine(GoroutineName)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("prober stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Round resolves every configured topic once, concurrently, and returns the
// resulting snapshot. Individual failures are recorded, not returned.
func (p *Prober) Round(ctx context.Context) Snapshot {
	roundID := uuid.NewString()
	log := p.logger.With(map[string]any{"round": roundID})
	started := p.now()

	statuses := make([]TopicStatus, len(p.cfg.Topics))
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, topic := range p.cfg.Topics {
		i, topic := i, topic
		g.Go(func() error {
			statuses[i] = p.probeTopic(ctx, log, topic)
			return nil
		})
	}
	_ = g.Wait()

	ok := true
	failed := 0
	for _, s := range statuses {
		if !s.OK() {
			ok = false
			failed++
		}
	}

	done := p.now()
	p.mu.Lock()
	p.rounds++
	p.last = Snapshot{
		Round:       p.rounds,
		RoundID:     roundID,
		CompletedAt: done,
		Duration:    done.Sub(started),
		OK:          ok,
		Topics:      statuses,
	}
	if ok {
		p.lastSuccess = done
	}
	snap := p.last
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordRound(ok, done)
	}

	fields := map[string]any{
		"topics":     len(statuses),
		"failed":     failed,
		"durationMs": snap.Duration.Milliseconds(),
	}
	if ok {
		log.Debugf("probe round completed", fields)
	} else {
		log.Warnf("probe round degraded", fields)
	}
	return snap
}

func (p *Prober) probeTopic(ctx context.Context, log *logging.Logger, topic string) TopicStatus {
	status := TopicStatus{Topic: topic}

	broker, err := p.resolver.LookupTopic(ctx, topic)
	if err != nil {
		status.Error = err.Error()
		log.Warnf("topic lookup failed", map[string]any{"topic": topic, "error": err.Error()})
		return status
	}
	status.Broker = broker
	p.observeOwner(log, topic, broker)

	if p.cfg.Bundles {
		bundle, err := p.resolver.GetBundleRange(ctx, topic)
		if err != nil {
			status.Error = err.Error()
			log.Warnf("bundle lookup failed", map[string]any{"topic": topic, "error": err.Error()})
			return status
		}
		status.Bundle = bundle
	}
	return status
}

func (p *Prober) observeOwner(log *logging.Logger, topic, broker string) {
	p.mu.Lock()
	prev, seen := p.owners[topic]
	p.owners[topic] = broker
	p.mu.Unlock()

	if !seen || prev == broker {
		return
	}
	if p.metrics != nil {
		p.metrics.RecordOwnerChange()
	}
	log.Infof("topic ownership changed", map[string]any{
		"topic": topic,
		"from":  prev,
		"to":    broker,
	})
}

// Snapshot returns the latest completed round. Round is 0 before the first
// round completes.
func (p *Prober) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.last
	s.Topics = append([]TopicStatus(nil), p.last.Topics...)
	return s
}

// Owner returns the last broker observed for topic.
func (p *Prober) Owner(topic string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	broker, ok := p.owners[topic]
	return broker, ok
}

// Package server hosts the HTTP health endpoints of long-running dray-lookup
// processes: /healthz for liveness and /readyz for readiness.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dray-io/dray-lookup/internal/logging"
)

// ReadinessChecker is implemented by components that gate readiness, such as
// the prober or the admin endpoint itself.
type ReadinessChecker interface {
	// Name is the key the check is reported under.
	Name() string

	// CheckReady returns nil when the component is ready.
	CheckReady(ctx context.Context) error
}

const (
	// DefaultReadinessTimeout bounds each readiness check.
	DefaultReadinessTimeout = 5 * time.Second

	// DefaultStaleAfter is how long a loop may go without a heartbeat before
	// liveness reports it as stuck.
	DefaultStaleAfter = 30 * time.Second
)

// Health status values.
const (
	StatusOK           = "ok"
	StatusDegraded     = "degraded"
	StatusNotReady     = "not_ready"
	StatusShuttingDown = "shutting_down"
)

// HealthStatus is the JSON body of both endpoints.
type HealthStatus struct {
	Status     string                 `json:"status"`
	Goroutines map[string]bool        `json:"goroutines,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

type loopStatus struct {
	running  bool
	lastBeat time.Time
}

// HealthServer serves /healthz and /readyz, plus pprof and any handlers
// registered before Start.
type HealthServer struct {
	mu               sync.RWMutex
	addr             string
	boundAddr        string
	server           *http.Server
	logger           *logging.Logger
	shutDown         atomic.Bool
	loops            map[string]*loopStatus
	checks           []ReadinessChecker
	readinessTimeout time.Duration
	staleAfter       time.Duration
	extraHandlers    map[string]http.Handler
	now              func() time.Time
}

// NewHealthServer creates a HealthServer for addr. It does not listen until
// Start.
func NewHealthServer(addr string, logger *logging.Logger) *HealthServer {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &HealthServer{
		addr:             addr,
		logger:           logger.Named("health"),
		loops:            make(map[string]*loopStatus),
		readinessTimeout: DefaultReadinessTimeout,
		staleAfter:       DefaultStaleAfter,
		extraHandlers:    make(map[string]http.Handler),
		now:              time.Now,
	}
}

// RegisterHandler mounts handler at pattern. Call before Start.
func (h *HealthServer) RegisterHandler(pattern string, handler http.Handler) {
	if pattern == "" || handler == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.extraHandlers[pattern] = handler
}

// RegisterReadinessCheck adds checker to every /readyz evaluation.
func (h *HealthServer) RegisterReadinessCheck(checker ReadinessChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, checker)
}

// SetReadinessTimeout sets the per-check timeout.
func (h *HealthServer) SetReadinessTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessTimeout = d
}

// SetStaleAfter sets how long a loop may go without a heartbeat. Loops that
// beat less often than DefaultStaleAfter (a long probe interval, say) need a
// larger value.
func (h *HealthServer) SetStaleAfter(d time.Duration) {
	if d <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.staleAfter = d
}

// RegisterGoroutine starts tracking a long-running loop.
func (h *HealthServer) RegisterGoroutine(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loops[name] = &loopStatus{running: true, lastBeat: h.now()}
}

// UpdateGoroutine records a heartbeat for name.
func (h *HealthServer) UpdateGoroutine(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ls, ok := h.loops[name]; ok {
		ls.lastBeat = h.now()
	}
}

// UnregisterGoroutine marks name as exited. Liveness fails from then on.
func (h *HealthServer) UnregisterGoroutine(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ls, ok := h.loops[name]; ok {
		ls.running = false
	}
}

// SetShuttingDown makes both endpoints answer 503.
func (h *HealthServer) SetShuttingDown() {
	h.shutDown.Store(true)
}

// IsShuttingDown reports whether SetShuttingDown was called.
func (h *HealthServer) IsShuttingDown() bool {
	return h.shutDown.Load()
}

// Handler returns the mux Start serves.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/readyz", h.handleReadyz)

	h.mu.RLock()
	for pattern, handler := range h.extraHandlers {
		mux.Handle(pattern, handler)
	}
	h.mu.RUnlock()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start listens on the configured address and serves in the background.
func (h *HealthServer) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:     h.Handler(),
		ReadTimeout: 5 * time.Second,
		// Readiness checks may take up to the readiness timeout.
		WriteTimeout: 10 * time.Second,
	}

	h.mu.Lock()
	h.server = srv
	h.boundAddr = ln.Addr().String()
	h.mu.Unlock()

	h.logger.Infof("health server listening", map[string]any{"addr": ln.Addr().String()})

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Errorf("health server error", map[string]any{"error": err.Error()})
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (h *HealthServer) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.boundAddr != "" {
		return h.boundAddr
	}
	return h.addr
}

// Close shuts the server down. It is safe to call before Start.
func (h *HealthServer) Close() error {
	h.mu.RLock()
	srv := h.server
	h.mu.RUnlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// CheckHealth evaluates liveness.
func (h *HealthServer) CheckHealth() HealthStatus {
	status := HealthStatus{
		Status:     StatusOK,
		Goroutines: make(map[string]bool),
		Checks:     make(map[string]CheckResult),
	}
	if h.shuttingDown(&status) {
		return status
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	healthy := true
	for name, ls := range h.loops {
		alive := ls.running && h.now().Sub(ls.lastBeat) < h.staleAfter
		status.Goroutines[name] = alive
		healthy = healthy && alive
	}

	switch {
	case !healthy:
		status.Status = StatusDegraded
		status.Checks["goroutines"] = CheckResult{Healthy: false, Message: "one or more loops stopped or stalled"}
	case len(h.loops) > 0:
		status.Checks["goroutines"] = CheckResult{Healthy: true, Message: "all loops running"}
	}
	return status
}

// CheckReadiness runs every registered check with the readiness timeout.
func (h *HealthServer) CheckReadiness(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status: StatusOK,
		Checks: make(map[string]CheckResult),
	}
	if h.shuttingDown(&status) {
		return status
	}

	h.mu.RLock()
	checks := append([]ReadinessChecker(nil), h.checks...)
	timeout := h.readinessTimeout
	h.mu.RUnlock()

	for _, checker := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := checker.CheckReady(checkCtx)
		cancel()

		if err != nil {
			status.Status = StatusNotReady
			status.Checks[checker.Name()] = CheckResult{Healthy: false, Message: err.Error()}
			continue
		}
		status.Checks[checker.Name()] = CheckResult{Healthy: true, Message: "ready"}
	}
	return status
}

func (h *HealthServer) shuttingDown(status *HealthStatus) bool {
	if h.shutDown.Load() {
		status.Status = StatusShuttingDown
		status.Checks["shutdown"] = CheckResult{Healthy: false, Message: "process is shutting down"}
		return true
	}
	status.Checks["shutdown"] = CheckResult{Healthy: true, Message: "process is running"}
	return false
}

func (h *HealthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	writeStatus(w, r, h.CheckHealth())
}

func (h *HealthServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	writeStatus(w, r, h.CheckReadiness(r.Context()))
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeStatus(w http.ResponseWriter, r *http.Request, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(status)
	}
}

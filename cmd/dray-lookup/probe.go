package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dray-io/dray-lookup/internal/config"
	"github.com/dray-io/dray-lookup/internal/logging"
	"github.com/dray-io/dray-lookup/internal/metrics"
	"github.com/dray-io/dray-lookup/internal/probe"
	"github.com/dray-io/dray-lookup/internal/server"
)

func runProbe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	metricsAddr := fs.String("metrics-addr", "", "Override metrics endpoint address (e.g., :9090)")
	healthAddr := fs.String("health-addr", "", "Override health endpoint address (e.g., :9091)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: dray-lookup probe [options]

Resolve the configured topics every probe.interval, log ownership changes
and expose Prometheus metrics and health endpoints until interrupted.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *metricsAddr != "" {
		cfg.Observability.MetricsAddr = *metricsAddr
	}
	if *healthAddr != "" {
		cfg.Observability.HealthAddr = *healthAddr
	}
	if len(cfg.Probe.Topics) == 0 {
		fmt.Fprintln(stderr, "error: probe.topics is empty")
		return 1
	}

	logger := logging.Configure(cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := probeUntilDone(ctx, cfg, logger); err != nil {
		logger.Errorf("prober failed", map[string]any{"error": err.Error()})
		return 1
	}
	return 0
}

// probeUntilDone wires the prober to its metrics and health servers and runs
// it until ctx is cancelled.
func probeUntilDone(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	tr, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}
	if reloader := tr.CertReloader(); reloader != nil {
		reloader.StartWatcher(30 * time.Second)
		defer reloader.Stop()
	}

	resolver := newResolverWithTransport(cfg, tr, logger, metrics.NewLookupMetrics())

	health := server.NewHealthServer(cfg.Observability.HealthAddr, logger)
	health.SetStaleAfter(3 * cfg.Probe.Interval)

	prober := probe.New(resolver, probe.Config{
		Topics:      cfg.Probe.Topics,
		Interval:    cfg.Probe.Interval,
		Bundles:     cfg.Probe.Bundles,
		Concurrency: cfg.Probe.Concurrency,
	},
		probe.WithLogger(logger),
		probe.WithMetrics(metrics.NewProbeMetrics()),
		probe.WithHealth(health),
	)

	health.RegisterReadinessCheck(prober.Checker())
	health.RegisterReadinessCheck(server.NewEndpointChecker(resolver, cfg.Probe.Topics[0]))
	health.RegisterHandler("/snapshot", snapshotHandler(prober))

	if err := health.Start(); err != nil {
		return fmt.Errorf("start health server: %w", err)
	}
	defer health.Close()

	metricsServer := metrics.NewServer(cfg.Observability.MetricsAddr).WithLogger(logger)
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	defer metricsServer.Close()

	err = prober.Run(ctx)
	health.SetShuttingDown()
	logger.Info("prober shutdown complete")
	return err
}

func snapshotHandler(p *probe.Prober) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.Snapshot())
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dray-io/dray-lookup/internal/admin"
	"github.com/dray-io/dray-lookup/internal/adminerr"
	"github.com/dray-io/dray-lookup/internal/config"
	"github.com/dray-io/dray-lookup/internal/logging"
	"github.com/dray-io/dray-lookup/internal/lookup"
	"github.com/dray-io/dray-lookup/internal/metrics"
	"github.com/dray-io/dray-lookup/internal/topicname"
)

func runTopic(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("topic", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	useTLS := fs.Bool("tls", false, "Print the TLS broker URL (overrides admin.useTls)")
	jsonOutput := fs.Bool("json", false, "Output the full lookup record in JSON format")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: dray-lookup topic [options] <topic>

Print the URL of the broker that currently owns a topic.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(stderr, `
Examples:
  dray-lookup topic my-topic
  dray-lookup topic --tls persistent://acme/orders/created
  dray-lookup topic --json persistent://prop/us-west/ns/legacy-topic`)
	}

	topic, ok := parseTopicArgs(fs, args, stderr)
	if !ok {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *useTLS {
		cfg.Admin.UseTLS = true
	}

	resolver, err := newResolver(cfg, cliLogger(cfg, stderr), nil)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	if *jsonOutput {
		data, err := resolver.LookupTopicData(ctx, topic)
		if err != nil {
			return reportLookupError(stderr, err)
		}
		out, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintln(stdout, string(out))
		return 0
	}

	url, err := resolver.LookupTopic(ctx, topic)
	if err != nil {
		return reportLookupError(stderr, err)
	}
	fmt.Fprintln(stdout, url)
	return 0
}

func runBundle(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: dray-lookup bundle [options] <topic>

Print the namespace bundle range a topic hashes into.

Options:`)
		fs.PrintDefaults()
	}

	topic, ok := parseTopicArgs(fs, args, stderr)
	if !ok {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	resolver, err := newResolver(cfg, cliLogger(cfg, stderr), nil)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	bundle, err := resolver.GetBundleRange(context.Background(), topic)
	if err != nil {
		return reportLookupError(stderr, err)
	}

	if *jsonOutput {
		name := topicname.MustParse(topic)
		out, _ := json.MarshalIndent(map[string]string{
			"topic":     name.String(),
			"namespace": name.Namespace(),
			"bundle":    bundle,
		}, "", "  ")
		fmt.Fprintln(stdout, string(out))
		return 0
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tBUNDLE")
	fmt.Fprintf(w, "%s\t%s\n", topic, bundle)
	w.Flush()
	return 0
}

func parseTopicArgs(fs *flag.FlagSet, args []string, stderr io.Writer) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "error: topic name required")
		fs.Usage()
		return "", false
	}
	return fs.Arg(0), true
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// cliLogger keeps one-shot commands quiet unless debug logging is configured.
func cliLogger(cfg *config.Config, stderr io.Writer) *logging.Logger {
	level := logging.LevelWarn
	if cfg.Observability.LogLevel == "debug" {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: logging.FormatText,
		Output: stderr,
	})
}

// newResolver builds the HTTP transport and resolver described by cfg.
func newResolver(cfg *config.Config, logger *logging.Logger, m *metrics.LookupMetrics) (*lookup.Resolver, error) {
	tr, err := newTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	return newResolverWithTransport(cfg, tr, logger, m), nil
}

func newTransport(cfg *config.Config, logger *logging.Logger) (*admin.HTTPTransport, error) {
	return admin.NewHTTPTransport(admin.HTTPConfig{
		ServiceURL:     cfg.Admin.ServiceURL,
		AuthToken:      cfg.Admin.AuthToken,
		UserAgent:      "dray-lookup/" + version,
		RequestTimeout: cfg.Admin.RequestTimeout,
		TLS: admin.TLSConfig{
			CAFile:             cfg.Admin.TLS.CAFile,
			CertFile:           cfg.Admin.TLS.CertFile,
			KeyFile:            cfg.Admin.TLS.KeyFile,
			InsecureSkipVerify: cfg.Admin.TLS.InsecureSkipVerify,
		},
		Logger: logger,
	})
}

func newResolverWithTransport(cfg *config.Config, tr admin.Transport, logger *logging.Logger, m *metrics.LookupMetrics) *lookup.Resolver {
	opts := []lookup.Option{lookup.WithLogger(logger)}
	if m != nil {
		opts = append(opts, lookup.WithMetrics(m))
	}
	return lookup.New(tr, lookup.Config{
		Root:        cfg.Admin.Root,
		UseTLS:      cfg.Admin.UseTLS,
		ReadTimeout: cfg.Admin.ReadTimeout,
	}, opts...)
}

func reportLookupError(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, adminerr.ErrTimeout):
		fmt.Fprintln(stderr, "error: lookup timed out")
	case adminerr.IsNotFound(err):
		fmt.Fprintf(stderr, "error: topic not found: %v\n", err)
	case adminerr.IsNotAuthorized(err):
		fmt.Fprintf(stderr, "error: not authorized: %v\n", err)
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 1
}

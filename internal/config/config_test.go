package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Admin.ServiceURL != "http://localhost:8080" {
		t.Errorf("expected default service url http://localhost:8080, got %s", cfg.Admin.ServiceURL)
	}

	if cfg.Admin.ReadTimeout != 60*time.Second {
		t.Errorf("expected default read timeout 60s, got %s", cfg.Admin.ReadTimeout)
	}

	if cfg.Admin.UseTLS {
		t.Error("expected TLS lookups to be disabled by default")
	}

	if cfg.Probe.Interval != 30*time.Second {
		t.Errorf("expected default probe interval 30s, got %s", cfg.Probe.Interval)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dray-lookup.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
admin:
  serviceUrl: https://admin.example.com:8443
  useTls: true
  readTimeout: 5s
  tls:
    insecureSkipVerify: true
probe:
  topics:
    - my-topic
    - persistent://acme/orders/created
  interval: 10s
  bundles: true
observability:
  logLevel: debug
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Admin.ServiceURL != "https://admin.example.com:8443" {
		t.Errorf("service url = %s", cfg.Admin.ServiceURL)
	}
	if !cfg.Admin.UseTLS || !cfg.Admin.TLS.InsecureSkipVerify {
		t.Errorf("tls settings not loaded: %+v", cfg.Admin)
	}
	if cfg.Admin.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %s, want 5s", cfg.Admin.ReadTimeout)
	}
	if cfg.Admin.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout should keep its default, got %s", cfg.Admin.RequestTimeout)
	}
	if len(cfg.Probe.Topics) != 2 || cfg.Probe.Topics[1] != "persistent://acme/orders/created" {
		t.Errorf("topics = %v", cfg.Probe.Topics)
	}
	if !cfg.Probe.Bundles || cfg.Probe.Interval != 10*time.Second {
		t.Errorf("probe = %+v", cfg.Probe)
	}
	if cfg.Observability.LogLevel != "debug" || cfg.Observability.LogFormat != "json" {
		t.Errorf("observability = %+v", cfg.Observability)
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
admin:
  serviceUrl: http://from-file:8080
`)
	t.Setenv("DRAY_LOOKUP_SERVICE_URL", "http://from-env:8080")
	t.Setenv("DRAY_LOOKUP_READ_TIMEOUT", "2s")
	t.Setenv("DRAY_LOOKUP_PROBE_TOPICS", "a;b")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Admin.ServiceURL != "http://from-env:8080" {
		t.Errorf("env should override file, got %s", cfg.Admin.ServiceURL)
	}
	if cfg.Admin.ReadTimeout != 2*time.Second {
		t.Errorf("read timeout = %s, want 2s", cfg.Admin.ReadTimeout)
	}
	if len(cfg.Probe.Topics) != 2 || cfg.Probe.Topics[0] != "a" {
		t.Errorf("topics = %v", cfg.Probe.Topics)
	}
}

func TestLoadFromPath_UnknownField(t *testing.T) {
	path := writeConfig(t, `
admin:
  serviceURL: http://typo:8080
`)
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Admin.ServiceURL != Default().Admin.ServiceURL {
		t.Errorf("service url = %s", cfg.Admin.ServiceURL)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromPathNoValidate(t *testing.T) {
	path := writeConfig(t, `
admin:
  serviceUrl: ftp://nowhere
`)
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("LoadFromPath should reject an ftp service url")
	}
	cfg, err := LoadFromPathNoValidate(path)
	if err != nil {
		t.Fatalf("LoadFromPathNoValidate: %v", err)
	}
	if cfg.Admin.ServiceURL != "ftp://nowhere" {
		t.Errorf("service url = %s", cfg.Admin.ServiceURL)
	}
}

func TestLoad_UsesPathEnv(t *testing.T) {
	path := writeConfig(t, `
probe:
  interval: 1m
`)
	t.Setenv(PathEnv, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Probe.Interval != time.Minute {
		t.Errorf("interval = %s, want 1m", cfg.Probe.Interval)
	}
}

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv("DRAY_LOOKUP_USE_TLS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Admin.UseTLS {
		t.Error("expected DRAY_LOOKUP_USE_TLS to enable TLS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no service url", func(c *Config) { c.Admin.ServiceURL = "" }, "admin.serviceUrl is required"},
		{"service url without host", func(c *Config) { c.Admin.ServiceURL = "http://" }, "must be an http or https URL"},
		{"relative root", func(c *Config) { c.Admin.Root = "lookup/v2" }, "admin.root"},
		{"zero read timeout", func(c *Config) { c.Admin.ReadTimeout = 0 }, "admin.readTimeout"},
		{"cert without key", func(c *Config) { c.Admin.TLS.CertFile = "client.pem" }, "must be set together"},
		{"zero interval", func(c *Config) { c.Probe.Interval = 0 }, "probe.interval"},
		{"zero concurrency", func(c *Config) { c.Probe.Concurrency = 0 }, "probe.concurrency"},
		{"malformed topic", func(c *Config) { c.Probe.Topics = []string{"a/b"} }, "probe.topics"},
		{"bad log level", func(c *Config) { c.Observability.LogLevel = "verbose" }, "observability.logLevel"},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }, "observability.logFormat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

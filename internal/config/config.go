// Package config provides configuration loading and validation for dray-lookup.
// Supports YAML files with environment variable overrides.
package config

import (
	"time"
)

// Config holds all configuration for the lookup client and prober.
type Config struct {
	Admin         AdminConfig         `yaml:"admin"`
	Probe         ProbeConfig         `yaml:"probe"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type AdminConfig struct {
	ServiceURL string `yaml:"serviceUrl" env:"DRAY_LOOKUP_SERVICE_URL"`
	AuthToken  string `yaml:"authToken" env:"DRAY_LOOKUP_AUTH_TOKEN"`
	Root       string `yaml:"root" env:"DRAY_LOOKUP_ROOT"`
	UseTLS     bool   `yaml:"useTls" env:"DRAY_LOOKUP_USE_TLS"`

	// ReadTimeout bounds blocking lookups.
	ReadTimeout time.Duration `yaml:"readTimeout" env:"DRAY_LOOKUP_READ_TIMEOUT"`
	// RequestTimeout bounds a single HTTP round trip, including abandoned ones.
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"DRAY_LOOKUP_REQUEST_TIMEOUT"`

	TLS TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	CAFile             string `yaml:"caFile" env:"DRAY_LOOKUP_TLS_CA_FILE"`
	CertFile           string `yaml:"certFile" env:"DRAY_LOOKUP_TLS_CERT_FILE"`
	KeyFile            string `yaml:"keyFile" env:"DRAY_LOOKUP_TLS_KEY_FILE"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify" env:"DRAY_LOOKUP_TLS_INSECURE_SKIP_VERIFY"`
}

type ProbeConfig struct {
	// Topics are resolved every Interval. Env values are separated by ';'.
	Topics   []string      `yaml:"topics" env:"DRAY_LOOKUP_PROBE_TOPICS"`
	Interval time.Duration `yaml:"interval" env:"DRAY_LOOKUP_PROBE_INTERVAL"`
	Bundles  bool          `yaml:"bundles" env:"DRAY_LOOKUP_PROBE_BUNDLES"`

	// Concurrency caps in-flight lookups per round.
	Concurrency int `yaml:"concurrency" env:"DRAY_LOOKUP_PROBE_CONCURRENCY"`
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metricsAddr" env:"DRAY_LOOKUP_METRICS_ADDR"`
	HealthAddr  string `yaml:"healthAddr" env:"DRAY_LOOKUP_HEALTH_ADDR"`
	LogLevel    string `yaml:"logLevel" env:"DRAY_LOOKUP_LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat" env:"DRAY_LOOKUP_LOG_FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Admin: AdminConfig{
			ServiceURL:     "http://localhost:8080",
			Root:           "/lookup/v2",
			ReadTimeout:    60 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Probe: ProbeConfig{
			Interval:    30 * time.Second,
			Concurrency: 8,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9090",
			HealthAddr:  ":9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

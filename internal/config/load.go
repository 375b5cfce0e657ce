package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/dray-io/dray-lookup/internal/topicname"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "DRAY_LOOKUP_CONFIG"

// Load reads the file named by DRAY_LOOKUP_CONFIG, or starts from Default when
// it is unset, then applies environment overrides and validates.
func Load() (*Config, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return LoadFromPath(path)
	}
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads path over Default, applies environment overrides and
// validates the result.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := LoadFromPathNoValidate(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPathNoValidate is LoadFromPath without the final Validate.
func LoadFromPathNoValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := decodeYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos do not silently fall back to
// defaults. An empty document leaves cfg untouched.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// Validate checks the config for values that cannot work. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Admin.ServiceURL == "" {
		errs = append(errs, errors.New("admin.serviceUrl is required"))
	} else if u, err := url.Parse(c.Admin.ServiceURL); err != nil {
		errs = append(errs, fmt.Errorf("admin.serviceUrl: %w", err))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("admin.serviceUrl %q must be an http or https URL", c.Admin.ServiceURL))
	}
	if c.Admin.Root != "" && !strings.HasPrefix(c.Admin.Root, "/") {
		errs = append(errs, fmt.Errorf("admin.root %q must start with /", c.Admin.Root))
	}
	if c.Admin.ReadTimeout <= 0 {
		errs = append(errs, errors.New("admin.readTimeout must be positive"))
	}
	if c.Admin.RequestTimeout <= 0 {
		errs = append(errs, errors.New("admin.requestTimeout must be positive"))
	}
	if (c.Admin.TLS.CertFile == "") != (c.Admin.TLS.KeyFile == "") {
		errs = append(errs, errors.New("admin.tls.certFile and admin.tls.keyFile must be set together"))
	}

	if c.Probe.Interval <= 0 {
		errs = append(errs, errors.New("probe.interval must be positive"))
	}
	if c.Probe.Concurrency <= 0 {
		errs = append(errs, errors.New("probe.concurrency must be positive"))
	}
	for _, topic := range c.Probe.Topics {
		if _, err := topicname.Parse(topic); err != nil {
			errs = append(errs, fmt.Errorf("probe.topics: %w", err))
		}
	}

	if !contains(validLogLevels, c.Observability.LogLevel) {
		errs = append(errs, fmt.Errorf("observability.logLevel %q must be one of %s",
			c.Observability.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if !contains(validLogFormats, c.Observability.LogFormat) {
		errs = append(errs, fmt.Errorf("observability.logFormat %q must be one of %s",
			c.Observability.LogFormat, strings.Join(validLogFormats, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

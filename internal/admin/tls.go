package admin

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dray-io/dray-lookup/internal/logging"
)

// TLSConfig holds client TLS settings for the admin endpoint.
type TLSConfig struct {
	// CAFile is a PEM bundle of trusted roots. Empty uses the system pool.
	CAFile string

	// CertFile and KeyFile enable mutual TLS when both are set.
	CertFile string
	KeyFile  string

	InsecureSkipVerify bool
}

// ClientCertReloader serves the client certificate for mTLS and reloads it
// when the files on disk change.
type ClientCertReloader struct {
	certFile string
	keyFile  string
	cert     atomic.Pointer[tls.Certificate]
	logger   *logging.Logger

	mu      sync.Mutex
	lastMod time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewClientCertReloader loads the key pair once and returns the reloader.
func NewClientCertReloader(certFile, keyFile string, logger *logging.Logger) (*ClientCertReloader, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	r := &ClientCertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	r.lastMod = r.latestModTime()
	return r, nil
}

func (r *ClientCertReloader) load() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("admin: load client certificate: %w", err)
	}
	r.cert.Store(&cert)
	r.logger.Infof("client certificate loaded", map[string]any{
		"certFile": r.certFile,
		"keyFile":  r.keyFile,
	})
	return nil
}

// GetClientCertificate implements the tls.Config callback of the same name.
func (r *ClientCertReloader) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	cert := r.cert.Load()
	if cert == nil {
		return nil, errors.New("admin: no client certificate loaded")
	}
	return cert, nil
}

func (r *ClientCertReloader) latestModTime() time.Time {
	var latest time.Time
	for _, f := range []string{r.certFile, r.keyFile} {
		if info, err := os.Stat(f); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}

// ReloadIfChanged reloads the key pair when either file is newer than the
// last load. A failed reload keeps the previous certificate.
func (r *ClientCertReloader) ReloadIfChanged() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := r.latestModTime()
	if !latest.After(r.lastMod) {
		return false, nil
	}
	if err := r.load(); err != nil {
		return false, err
	}
	r.lastMod = latest
	return true, nil
}

// StartWatcher reloads the key pair when the cert or key file changes. File
// events on their directories trigger a check; a poll every interval catches
// anything the event watcher misses, or stands in for it when fsnotify is
// unavailable. Calling it more than once has no effect.
func (r *ClientCertReloader) StartWatcher(interval time.Duration) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	w, err := r.watchDirs()
	if err != nil {
		r.logger.Warnf("client certificate file watch unavailable, polling only", map[string]any{
			"error":    err.Error(),
			"interval": interval.String(),
		})
	} else {
		events, watchErrs = w.Events, w.Errors
	}

	go func() {
		defer close(r.doneCh)
		if w != nil {
			defer func() { _ = w.Close() }()
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.check("poll")
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				// Symlink swaps report the link, not the files; ReloadIfChanged
				// gates on mtime.
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
					r.check("event")
				}
			case err, ok := <-watchErrs:
				if !ok {
					watchErrs = nil
					continue
				}
				r.logger.Debugf("client certificate watch error", map[string]any{"error": err.Error()})
			}
		}
	}()
}

// watchDirs watches the directories holding the cert and key files.
func (r *ClientCertReloader) watchDirs() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, 2)
	for _, f := range []string{r.certFile, r.keyFile} {
		dir := filepath.Dir(f)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("admin: watch %s: %w", dir, err)
		}
	}
	return w, nil
}

func (r *ClientCertReloader) check(trigger string) {
	changed, err := r.ReloadIfChanged()
	if err != nil {
		r.logger.Warnf("client certificate reload failed", map[string]any{
			"trigger": trigger,
			"error":   err.Error(),
		})
		return
	}
	if changed {
		r.logger.Infof("client certificate reloaded", map[string]any{"trigger": trigger})
	}
}

// Stop ends the watcher started by StartWatcher. It is safe to call when no
// watcher was started, and more than once.
func (r *ClientCertReloader) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if r.started.Load() {
		<-r.doneCh
	}
}

// BuildTLSConfig turns cfg into a *tls.Config. The returned reloader is nil
// unless mutual TLS is configured.
func BuildTLSConfig(cfg TLSConfig, logger *logging.Logger) (*tls.Config, *ClientCertReloader, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, nil, fmt.Errorf("admin: read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, nil, fmt.Errorf("admin: no certificates found in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, nil, errors.New("admin: certFile and keyFile must be set together")
	}
	if cfg.CertFile == "" {
		return tlsCfg, nil, nil
	}

	reloader, err := NewClientCertReloader(cfg.CertFile, cfg.KeyFile, logger)
	if err != nil {
		return nil, nil, err
	}
	tlsCfg.GetClientCertificate = reloader.GetClientCertificate
	return tlsCfg, reloader, nil
}

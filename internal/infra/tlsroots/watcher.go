package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ClientCert holds a client certificate and reloads it when the cert
// or key file changes.
type ClientCert struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.RWMutex
	cert     *tls.Certificate
	notAfter time.Time

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	timerMu  sync.Mutex
	timer    *time.Timer
}

// ClientCertOption configures a ClientCert.
type ClientCertOption func(*ClientCert)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientCertOption {
	return func(c *ClientCert) {
		c.logger = logger
	}
}

// WithDebounce sets how long to wait after the last change before
// reloading. Rotations usually rewrite both files.
func WithDebounce(d time.Duration) ClientCertOption {
	return func(c *ClientCert) {
		c.debounce = d
	}
}

// LoadClientCert loads the key pair. Call Watch to follow rotations.
func LoadClientCert(certFile, keyFile string, opts ...ClientCertOption) (*ClientCert, error) {
	c := &ClientCert{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: load client certificate: %w", err)
	}
	return c, nil
}

// Watch starts following changes to the cert and key files in the
// background.
func (c *ClientCert) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}

	// Directories, so that rename-into-place rotations are seen.
	dirs := map[string]struct{}{
		filepath.Dir(c.certFile): {},
		filepath.Dir(c.keyFile):  {},
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	c.watcher = w
	go c.loop()
	return nil
}

func (c *ClientCert) loop() {
	certBase := filepath.Base(c.certFile)
	keyBase := filepath.Base(c.keyFile)

	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			if base != certBase && base != keyBase {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			c.logger.Debug("client certificate file changed", "file", event.Name, "op", event.Op.String())
			c.scheduleReload()

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("client certificate watcher error", "error", err)

		case <-c.done:
			return
		}
	}
}

// scheduleReload reloads once the files have been quiet for the
// debounce interval.
func (c *ClientCert) scheduleReload() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		select {
		case <-c.done:
			return
		default:
		}
		if err := c.reload(); err != nil {
			// Keep the previous certificate until the pair is consistent.
			c.logger.Warn("client certificate reload failed", "error", err, "cert_file", c.certFile)
		}
	})
}

// Stop stops watching. It is idempotent.
func (c *ClientCert) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)

		c.timerMu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timerMu.Unlock()

		if c.watcher != nil {
			c.watcher.Close()
		}
	})
}

// GetClientCertificate returns the current certificate.
// This implements tls.Config.GetClientCertificate.
func (c *ClientCert) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert, nil
}

// NotAfter returns the expiry of the current certificate.
func (c *ClientCert) NotAfter() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notAfter
}

func (c *ClientCert) reload() error {
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}
	cert.Leaf = leaf

	c.mu.Lock()
	c.cert = &cert
	c.notAfter = leaf.NotAfter
	c.mu.Unlock()

	c.logger.Debug("client certificate loaded", "cert_file", c.certFile, "not_after", leaf.NotAfter)
	return nil
}

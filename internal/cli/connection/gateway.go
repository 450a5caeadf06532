// Package connection provides the request gateway for chartered-cli.
package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/infra/buildinfo"
	"github.com/yndnr/chartered-cli/internal/infra/tlsroots"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
	"github.com/yndnr/chartered-cli/internal/telemetry/metric"
)

// noTokenSegment stands in for the token in unauthenticated URLs.
const noTokenSegment = "-"

// Endpoint kinds used as metric labels.
const (
	kindAuthenticated   = "authenticated"
	kindUnauthenticated = "unauthenticated"
)

// SessionStore is the part of the auth store the gateway needs: a
// read of the current session and a logout conditional on its token.
type SessionStore interface {
	Snapshot() (*domain.Session, uint64)
	ClearIfToken(token string, reason domain.ChangeReason) (bool, error)
}

// Config configures a Gateway.
type Config struct {
	// BaseURL is the registry web address, e.g. http://127.0.0.1:8888.
	BaseURL string

	// Timeout bounds each call. Default: 30s.
	Timeout time.Duration

	// CAFile adds PEM roots for HTTPS servers with a private CA. A
	// directory loads every certificate file in it.
	CAFile string

	// ClientCert and ClientKey present a client certificate to servers
	// behind mutual TLS. Both or neither. Rotated files are reloaded.
	ClientCert string
	ClientKey  string

	// RateLimit caps outbound requests per second. 0 disables.
	RateLimit float64

	// Burst is the limiter burst size. Default: 1.
	Burst int

	// UserAgent overrides the default chartered-cli/<version>.
	UserAgent string
}

// Call describes one backend call.
type Call struct {
	// Method defaults to GET.
	Method string

	// Path is relative to /web/v1/ and may carry a query string.
	Path string

	// Body is JSON-encoded when non-nil.
	Body any

	// Authenticated embeds the current token in the URL.
	Authenticated bool
}

// Response is a decoded, error-free backend response.
type Response struct {
	StatusCode int
	RequestID  string
	Body       json.RawMessage
}

// Doer performs backend calls. *Gateway implements it.
type Doer interface {
	Do(ctx context.Context, call Call) (*Response, error)
}

// Gateway performs every backend call on behalf of the CLI.
type Gateway struct {
	baseURL   string
	store     SessionStore
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	metrics   *metric.Registry
	logger    logger.Logger

	clientCert *tlsroots.ClientCert
}

// Option configures optional Gateway dependencies.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client (tests use httptest clients).
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithMetrics sets the metrics registry. Default: metric.Global().
func WithMetrics(m *metric.Registry) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the logger. Default: logger.Default().
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates a gateway reading the token from store.
func NewGateway(store SessionStore, cfg Config, opts ...Option) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("gateway: session store is required")
	}

	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	g := &Gateway{
		baseURL:   baseURL,
		store:     store,
		userAgent: cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.userAgent == "" {
		g.userAgent = buildinfo.UserAgent()
	}
	if g.metrics == nil {
		g.metrics = metric.Global()
	}
	if g.logger == nil {
		g.logger = logger.Default()
	}
	if g.client == nil {
		g.client, g.clientCert, err = newHTTPClient(cfg, g.logger.Slog())
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return g, nil
}

// Close stops following client certificate rotations. The gateway must
// not be used afterwards.
func (g *Gateway) Close() error {
	if g.clientCert != nil {
		g.clientCert.Stop()
	}
	return nil
}

// BaseURL returns the normalized base URL.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// UnauthenticatedURL returns {base}/a/-/web/v1/{path}.
func (g *Gateway) UnauthenticatedURL(path string) string {
	return g.buildURL(noTokenSegment, path)
}

// AuthenticatedURL returns {base}/a/{token}/web/v1/{path}, with "-" in
// place of the token when no session is held.
func (g *Gateway) AuthenticatedURL(path string) string {
	s, _ := g.store.Snapshot()
	if s == nil {
		return g.buildURL(noTokenSegment, path)
	}
	return g.buildURL(s.Token, path)
}

func (g *Gateway) buildURL(segment, path string) string {
	if segment != noTokenSegment {
		segment = url.PathEscape(segment)
	}
	return g.baseURL + "/a/" + segment + "/web/v1/" + strings.TrimLeft(path, "/")
}

// Do performs a call and decodes the response envelope.
//
// Errors:
//   - domain.ErrNotAuthenticated: authenticated call without a session;
//     nothing is sent
//   - domain.ErrTransport: the server could not be reached
//   - domain.ErrSessionExpired: the server answered 401 to an
//     authenticated call; the session has been cleared
//   - domain.ErrBackend: the body carried an error envelope
//   - domain.ErrBadResponse: the body could not be decoded
func (g *Gateway) Do(ctx context.Context, call Call) (*Response, error) {
	kind := kindUnauthenticated
	segment := noTokenSegment

	if call.Authenticated {
		kind = kindAuthenticated
		s, _ := g.store.Snapshot()
		if s == nil {
			g.metrics.RecordRequest(kind, "not_authenticated")
			return nil, domain.ErrNotAuthenticated
		}
		segment = s.Token
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	requestID := newRequestID()
	log := g.logger.With("request_id", requestID, "method", method, "path", call.Path, "kind", kind)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.metrics.RecordRequest(kind, "transport_error")
			return nil, domain.ErrTransport.WithCause(err)
		}
	}

	body, err := encodeBody(call.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, g.buildURL(segment, call.Path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	addHeaders(req, g.userAgent, requestID, body != nil)

	start := time.Now()
	resp, err := g.client.Do(req)
	g.metrics.ObserveRequestDuration(kind, time.Since(start).Seconds())
	if err != nil {
		log.Debug("request failed", "error", err)
		g.metrics.RecordRequest(kind, "transport_error")
		return nil, domain.ErrTransport.WithCause(transportCause(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Debug("read response failed", "error", err)
		g.metrics.RecordRequest(kind, "transport_error")
		return nil, domain.ErrTransport.WithCause(transportCause(err))
	}

	log.Debug("response received", "status", resp.StatusCode, "bytes", len(data))

	if call.Authenticated && resp.StatusCode == http.StatusUnauthorized {
		g.forceLogout(segment, log)
		g.metrics.RecordRequest(kind, "unauthorized")
		serverMsg, _ := parseEnvelope(data)
		return nil, domain.ErrSessionExpired.WithDetails(serverMsg)
	}

	msg, err := parseEnvelope(data)
	if err != nil {
		g.metrics.RecordRequest(kind, "bad_response")
		return nil, domain.ErrBadResponse.WithDetails(fmt.Sprintf("status %d", resp.StatusCode)).WithCause(err)
	}
	if msg != "" {
		g.metrics.RecordRequest(kind, "backend_error")
		return nil, domain.ErrBackend.WithMessage(msg)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		g.metrics.RecordRequest(kind, "backend_error")
		return nil, domain.ErrBackend.WithMessage(fmt.Sprintf("request failed with status %d", resp.StatusCode))
	}

	g.metrics.RecordRequest(kind, "ok")
	return &Response{
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Body:       json.RawMessage(data),
	}, nil
}

// forceLogout clears the session the failed call was made with, even
// if it was extended meanwhile. Concurrent 401s clear it once; a session
// installed by a later login survives.
func (g *Gateway) forceLogout(token string, log logger.Logger) {
	applied, err := g.store.ClearIfToken(token, domain.ReasonForcedLogout)
	if err != nil {
		log.Warn("persist forced logout", "error", err)
	}
	if applied {
		g.metrics.IncForcedLogout()
		log.Info("session ended by server")
	}
}

// Request performs a call and decodes the payload into T.
func Request[T any](ctx context.Context, d Doer, call Call) (*T, error) {
	resp, err := d.Do(ctx, call)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, domain.ErrBadResponse.WithCause(err)
	}
	return &out, nil
}

// Package connection provides the request gateway for chartered-cli.
package connection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/chartered-cli/internal/infra/tlsroots"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

var (
	errEmptyBody   = errors.New("empty response body")
	errInvalidJSON = errors.New("response body is not valid JSON")
)

// normalizeBaseURL adds a scheme when missing and drops trailing slashes.
func normalizeBaseURL(server string) (string, error) {
	baseURL := strings.TrimSpace(server)
	if baseURL == "" {
		return "", fmt.Errorf("server url is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}
	return baseURL, nil
}

// newHTTPClient builds the client used by the gateway. A CA file adds
// custom roots on top of the system pool; a client key pair enables
// mutual TLS and is watched for rotation.
func newHTTPClient(cfg Config, log *slog.Logger) (*http.Client, *tlsroots.ClientCert, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if (cfg.ClientCert == "") != (cfg.ClientKey == "") {
		return nil, nil, fmt.Errorf("client certificate and key must be set together")
	}

	var clientCert *tlsroots.ClientCert
	if cfg.CAFile != "" || cfg.ClientCert != "" {
		pool, err := tlsroots.NewPool()
		if err != nil {
			return nil, nil, err
		}
		if cfg.CAFile != "" {
			if err := pool.Add(cfg.CAFile); err != nil {
				return nil, nil, err
			}
		}
		if cfg.ClientCert != "" {
			clientCert, err = tlsroots.LoadClientCert(cfg.ClientCert, cfg.ClientKey, tlsroots.WithLogger(log))
			if err != nil {
				return nil, nil, err
			}
			if err := clientCert.Watch(); err != nil {
				// Rotation is best effort; the loaded pair still works.
				log.Warn("client certificate rotation disabled", "error", err)
			}
		}
		transport.TLSClientConfig = pool.ClientConfig(clientCert)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, clientCert, nil
}

// newRequestID returns a fresh request ID.
func newRequestID() string {
	return ulid.Make().String()
}

// addHeaders adds the common headers. The token never goes in a header;
// it is part of the authenticated URL path.
func addHeaders(req *http.Request, userAgent, requestID string, hasBody bool) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

// encodeBody marshals a request body. A nil body sends nothing.
func encodeBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return bytes.NewReader(raw), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// parseEnvelope validates a response body and extracts the error
// envelope message, if any. Bodies that are not JSON objects carry no
// envelope.
func parseEnvelope(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", errEmptyBody
	}
	if !json.Valid(trimmed) {
		return "", errInvalidJSON
	}
	if trimmed[0] != '{' {
		return "", nil
	}

	var env struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", fmt.Errorf("decode error envelope: %w", err)
	}
	if env.Error == nil {
		return "", nil
	}
	return *env.Error, nil
}

// transportCause strips the request URL (and with it the token) from a
// client error.
func transportCause(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}

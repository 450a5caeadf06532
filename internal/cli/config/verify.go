package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/yndnr/chartered-cli/pkg/crypto/adaptive"
)

// Verify validates the configuration.
func Verify(cfg *CLIConfig) error {
	sections := []struct {
		name string
		fn   func() error
	}{
		{"server", func() error { return verifyServer(&cfg.Server) }},
		{"gateway", func() error { return verifyGateway(&cfg.Gateway) }},
		{"extension", func() error { return verifyExtension(&cfg.Extension) }},
		{"storage", func() error { return verifyStorage(&cfg.Storage) }},
		{"log", func() error { return verifyLog(&cfg.Log) }},
		{"metrics", func() error { return verifyMetrics(&cfg.Metrics) }},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			return fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	if err := validation.Validate(strings.ToLower(cfg.Output),
		validation.Required,
		validation.In("table", "json", "yaml").Error("must be table, json or yaml"),
	); err != nil {
		return fmt.Errorf("invalid output config: %w", err)
	}
	return nil
}

func verifyServer(s *ServerSection) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.URL, validation.Required, validation.By(isServerURL)),
		validation.Field(&s.ClientCert, validation.By(pairedWith(s.ClientKey, "client_key"))),
		validation.Field(&s.ClientKey, validation.By(pairedWith(s.ClientCert, "client_cert"))),
	)
}

// pairedWith rejects a value set without its counterpart.
func pairedWith(other, name string) validation.RuleFunc {
	return func(value interface{}) error {
		v, _ := value.(string)
		if v != "" && other == "" {
			return fmt.Errorf("requires %s", name)
		}
		return nil
	}
}

func verifyGateway(g *GatewaySection) error {
	return validation.ValidateStruct(g,
		validation.Field(&g.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&g.RateLimit, validation.Min(0.0)),
		validation.Field(&g.Burst, validation.Min(0)),
	)
}

func verifyExtension(e *ExtensionSection) error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Interval, validation.Required, validation.Min(time.Second)),
	)
}

func verifyStorage(s *StorageSection) error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Engine, validation.Required,
			validation.In("file", "badger", "memory").Error("must be file, badger or memory")),
		validation.Field(&s.EncryptionPassphrase, validation.Length(adaptive.MinPassphraseLength, 0)),
	)
}

func verifyLog(l *LogSection) error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func verifyMetrics(m *MetricsSection) error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Address, validation.By(isHostPort)),
	)
}

// isServerURL accepts an absolute URL or a bare host[:port], which the
// gateway will prefix with http://.
func isServerURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}

func isHostPort(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("must be host:port")
	}
	return nil
}

// Package logger provides structured logging for chartered-cli.
package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"passphrase",
	"bearer",
}

// tokenPathPattern matches the token segment of an authenticated URL:
// {base}/a/{token}/web/v1/...
var tokenPathPattern = regexp.MustCompile(`/a/([^/?#]+)/web/`)

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Key name wins: the whole value goes.
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}

		// URLs keep their shape but lose the token segment.
		if masked := RedactURL(strVal); masked != strVal {
			return slog.String(a.Key, masked)
		}
		return a
	}

	// net/http errors embed the request URL.
	if err, ok := a.Value.Any().(error); ok && a.Value.Kind() == slog.KindAny {
		if msg := err.Error(); strings.Contains(msg, "/a/") {
			return slog.String(a.Key, RedactURL(msg))
		}
		return a
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// RedactURL masks the token segment of an authenticated endpoint URL.
// The "-" placeholder of unauthenticated URLs is left alone.
func RedactURL(value string) string {
	if !strings.Contains(value, "/a/") {
		return value
	}
	return tokenPathPattern.ReplaceAllStringFunc(value, func(m string) string {
		seg := tokenPathPattern.FindStringSubmatch(m)[1]
		if seg == "-" {
			return m
		}
		return "/a/***/web/"
	})
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

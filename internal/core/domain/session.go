// Package domain defines the core domain models for chartered-cli.
package domain

import (
	"log/slog"
	"time"

	"github.com/yndnr/chartered-cli/pkg/token"
)

// Session is the client's cached proof of authentication.
//
// A Session is either absent (nil) or complete: UserID, Token and ExpiresAt
// are always populated together. PictureURL is cosmetic and may be empty.
type Session struct {
	// UserID is the opaque identifier of the authenticated principal.
	UserID string

	// Token is the bearer secret presented on every authenticated call.
	// It must never be logged.
	Token string

	// ExpiresAt is the client-side expiry hint. The server is authoritative.
	ExpiresAt time.Time

	// PictureURL is an optional display attribute.
	PictureURL string
}

// Validate reports whether the session is complete.
func (s *Session) Validate() error {
	if s == nil {
		return ErrSessionIncomplete.WithDetails("nil session")
	}
	if s.UserID == "" {
		return ErrSessionIncomplete.WithDetails("user id is empty")
	}
	if s.Token == "" {
		return ErrSessionIncomplete.WithDetails("token is empty")
	}
	if s.ExpiresAt.IsZero() {
		return ErrSessionIncomplete.WithDetails("expiry is not set")
	}
	return nil
}

// Expired reports whether the session's expiry is at or before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Clone returns a copy of the session. Clone of nil is nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// WithExpiry returns a copy of the session with a new expiry and every
// other field unchanged.
func (s *Session) WithExpiry(expiresAt time.Time) *Session {
	c := s.Clone()
	c.ExpiresAt = expiresAt
	return c
}

// Equal reports whether two sessions carry the same identity and expiry.
// Expiry is compared at millisecond precision, the resolution of the
// persisted record.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.UserID == other.UserID &&
		s.Token == other.Token &&
		s.PictureURL == other.PictureURL &&
		s.ExpiresAt.UnixMilli() == other.ExpiresAt.UnixMilli()
}

// Fingerprint returns a short, non-reversible identifier for the token,
// safe to print and log.
func (s *Session) Fingerprint() string {
	if s == nil || s.Token == "" {
		return ""
	}
	return token.Fingerprint(s.Token)
}

// LogValue implements slog.LogValuer so a Session can be passed to a logger
// without ever exposing its token.
func (s *Session) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("<none>")
	}
	return slog.GroupValue(
		slog.String("user_id", s.UserID),
		slog.Time("expires_at", s.ExpiresAt),
		slog.String("fingerprint", s.Fingerprint()),
	)
}

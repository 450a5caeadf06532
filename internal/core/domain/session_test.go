package domain

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func validSession() *Session {
	return &Session{
		UserID:     "u1",
		Token:      "tok1",
		ExpiresAt:  time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		PictureURL: "https://example.com/a.png",
	}
}

func TestSession_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Session) *Session
		wantErr bool
	}{
		{"complete", func(s *Session) *Session { return s }, false},
		{"no picture is still complete", func(s *Session) *Session { s.PictureURL = ""; return s }, false},
		{"nil", func(*Session) *Session { return nil }, true},
		{"missing user", func(s *Session) *Session { s.UserID = ""; return s }, true},
		{"missing token", func(s *Session) *Session { s.Token = ""; return s }, true},
		{"missing expiry", func(s *Session) *Session { s.ExpiresAt = time.Time{}; return s }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(validSession()).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrSessionIncomplete) {
				t.Errorf("Validate() error = %v, want ErrSessionIncomplete", err)
			}
		})
	}
}

func TestSession_Expired(t *testing.T) {
	s := validSession()

	if s.Expired(s.ExpiresAt.Add(-time.Second)) {
		t.Error("session should not be expired before its expiry")
	}
	if !s.Expired(s.ExpiresAt) {
		t.Error("session should be expired exactly at its expiry")
	}
	if !s.Expired(s.ExpiresAt.Add(time.Second)) {
		t.Error("session should be expired after its expiry")
	}
}

func TestSession_WithExpiry(t *testing.T) {
	s := validSession()
	next := s.ExpiresAt.Add(time.Hour)

	got := s.WithExpiry(next)

	if !got.ExpiresAt.Equal(next) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, next)
	}
	if got.UserID != s.UserID || got.Token != s.Token || got.PictureURL != s.PictureURL {
		t.Error("WithExpiry should leave other fields unchanged")
	}
	if s.ExpiresAt.Equal(next) {
		t.Error("WithExpiry should not modify the receiver")
	}
}

func TestSession_Equal(t *testing.T) {
	a := validSession()
	b := validSession()
	b.ExpiresAt = b.ExpiresAt.Add(300 * time.Microsecond)

	if !a.Equal(b) {
		t.Error("sessions differing below millisecond precision should be equal")
	}

	b.Token = "tok2"
	if a.Equal(b) {
		t.Error("sessions with different tokens should not be equal")
	}

	var nilSession *Session
	if !nilSession.Equal(nil) {
		t.Error("nil should equal nil")
	}
	if a.Equal(nil) {
		t.Error("session should not equal nil")
	}
}

func TestSession_LogValueHidesToken(t *testing.T) {
	s := validSession()
	s.Token = "super-secret-token"

	v := s.LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v, want group", v.Kind())
	}
	for _, attr := range v.Group() {
		if attr.Value.String() == s.Token {
			t.Errorf("attribute %q exposes the token", attr.Key)
		}
	}
	if s.Fingerprint() == "" {
		t.Error("Fingerprint should not be empty for a session with a token")
	}
}

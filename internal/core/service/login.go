package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/yndnr/chartered-cli/internal/cli/connection"
	"github.com/yndnr/chartered-cli/internal/core/domain"
)

// Backend endpoints, relative to /web/v1/.
const (
	pathLoginPassword  = "auth/login/password"
	pathOAuthBegin     = "auth/login/oauth/%s/begin"
	pathOAuthComplete  = "auth/login/oauth/complete"
	pathOAuthProviders = "auth/login/oauth/providers"
	pathExtend         = "auth/extend"
	pathLogout         = "auth/logout"
	pathRegister       = "auth/register/password"
)

// registerFailedMessage is shown when the backend answers without an
// error but does not confirm the registration.
const registerFailedMessage = "Failed to register, please try again later."

// Navigator sends the user to an external URL (the OAuth provider).
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// LoginRedirectError is returned when an OAuth completion fails. The
// caller should send the user back to the login entry point and show
// Message there.
type LoginRedirectError struct {
	Message string
	Err     error
}

func (e *LoginRedirectError) Error() string {
	return e.Message
}

func (e *LoginRedirectError) Unwrap() error {
	return e.Err
}

// Providers lists the login methods the backend offers.
type Providers struct {
	Password  bool     `json:"password" yaml:"password"`
	Providers []string `json:"providers" yaml:"providers"`
}

// Credentials is a username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the pair before anything is sent.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&c.Password, validation.Required, validation.Length(1, 1024)),
	)
}

// loginResponse is the success shape of both password and OAuth login.
type loginResponse struct {
	UserUUID   string  `json:"user_uuid"`
	Key        string  `json:"key"`
	Expires    string  `json:"expires"`
	PictureURL *string `json:"picture_url"`
}

type oauthBeginResponse struct {
	RedirectURL string `json:"redirect_url"`
}

type registerResponse struct {
	Success bool `json:"success"`
}

// LoginFlow performs the authentication handshakes and installs the
// resulting session into the AuthStore.
type LoginFlow struct {
	store *AuthStore
	gw    connection.Doer
	nav   Navigator
	tel   Telemetry
}

// NewLoginFlow creates a login flow. nav may be nil when OAuth begin is
// not used.
func NewLoginFlow(store *AuthStore, gw connection.Doer, nav Navigator, tel Telemetry) *LoginFlow {
	return &LoginFlow{
		store: store,
		gw:    gw,
		nav:   nav,
		tel:   tel.withDefaults(),
	}
}

// Login exchanges a username and password for a session.
// A backend refusal is domain.ErrAuthRejected carrying the server's
// message; the held session is left alone on any failure.
func (f *LoginFlow) Login(ctx context.Context, username, password string) error {
	creds := Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return domain.ErrInvalidCredentialsInput.WithMessage(err.Error()).WithCause(err)
	}

	resp, err := connection.Request[loginResponse](ctx, f.gw, connection.Call{
		Method: http.MethodPost,
		Path:   pathLoginPassword,
		Body:   creds,
	})
	if err != nil {
		f.tel.Metrics.RecordLogin("password", "failure")
		return asAuthRejected(err)
	}

	if err := f.installSession(resp); err != nil {
		f.tel.Metrics.RecordLogin("password", "failure")
		return err
	}
	f.tel.Metrics.RecordLogin("password", "success")
	return nil
}

// BeginOAuth asks the backend for the provider's authorization URL and
// hands it to the navigator. No session is touched.
func (f *LoginFlow) BeginOAuth(ctx context.Context, provider string) error {
	if err := validation.Validate(provider, validation.Required); err != nil {
		return domain.ErrInvalidCredentialsInput.WithMessage("provider: " + err.Error())
	}
	if f.nav == nil {
		return fmt.Errorf("oauth begin: no navigator configured")
	}

	resp, err := connection.Request[oauthBeginResponse](ctx, f.gw, connection.Call{
		Path: fmt.Sprintf(pathOAuthBegin, url.PathEscape(provider)),
	})
	if err != nil {
		f.tel.Metrics.RecordLogin("oauth", "failure")
		return asAuthRejected(err)
	}
	if resp.RedirectURL == "" {
		f.tel.Metrics.RecordLogin("oauth", "failure")
		return domain.ErrBadResponse.WithDetails("missing redirect_url")
	}

	return f.nav.Navigate(ctx, resp.RedirectURL)
}

// CompleteOAuth finishes an OAuth login with the query string the
// provider redirected back with. Failures are *LoginRedirectError.
func (f *LoginFlow) CompleteOAuth(ctx context.Context, query string) error {
	if query != "" && !strings.HasPrefix(query, "?") {
		query = "?" + query
	}

	resp, err := connection.Request[loginResponse](ctx, f.gw, connection.Call{
		Path: pathOAuthComplete + query,
	})
	if err == nil {
		err = f.installSession(resp)
	}
	if err != nil {
		f.tel.Metrics.RecordLogin("oauth", "failure")
		return &LoginRedirectError{Message: domain.UserMessage(asAuthRejected(err)), Err: err}
	}

	f.tel.Metrics.RecordLogin("oauth", "success")
	return nil
}

// Logout ends the session on the backend, best effort, and clears it
// locally whatever the outcome. Logging out while logged out only
// rewrites the empty record.
func (f *LoginFlow) Logout(ctx context.Context) error {
	if s, _ := f.store.Snapshot(); s != nil {
		_, err := f.gw.Do(ctx, connection.Call{Path: pathLogout, Authenticated: true})
		if err != nil {
			f.tel.Logger.Warn("failed to fully log out of session", "error", err)
		}
	}
	return f.store.Replace(nil)
}

// Register creates an account. It never touches the held session.
func (f *LoginFlow) Register(ctx context.Context, username, password string) error {
	creds := Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return domain.ErrInvalidCredentialsInput.WithMessage(err.Error()).WithCause(err)
	}

	resp, err := connection.Request[registerResponse](ctx, f.gw, connection.Call{
		Method: http.MethodPost,
		Path:   pathRegister,
		Body:   creds,
	})
	if err != nil {
		if errors.Is(err, domain.ErrBackend) {
			return domain.ErrBackendValidation.WithMessage(domain.UserMessage(err))
		}
		return err
	}
	if !resp.Success {
		return domain.ErrBackendValidation.WithMessage(registerFailedMessage)
	}
	return nil
}

// Providers returns the login methods the backend offers.
func (f *LoginFlow) Providers(ctx context.Context) (*Providers, error) {
	return connection.Request[Providers](ctx, f.gw, connection.Call{Path: pathOAuthProviders})
}

// installSession is the one constructor from a login response to a
// held session, shared by password and OAuth login.
func (f *LoginFlow) installSession(resp *loginResponse) error {
	expires, err := parseServerTime(resp.Expires)
	if err != nil {
		return domain.ErrAuthRejected.WithMessage("malformed login response").WithCause(err)
	}

	s := &domain.Session{
		UserID:    resp.UserUUID,
		Token:     resp.Key,
		ExpiresAt: expires,
	}
	if resp.PictureURL != nil {
		s.PictureURL = *resp.PictureURL
	}
	if err := s.Validate(); err != nil {
		return domain.ErrAuthRejected.WithMessage("malformed login response").WithCause(err)
	}

	if err := f.store.ReplaceWithReason(s, domain.ReasonLogin); err != nil {
		return err
	}
	f.tel.Logger.Info("logged in", "session", s)
	return nil
}

// asAuthRejected turns a backend error envelope into an auth rejection
// with the same message. Other errors pass through.
func asAuthRejected(err error) error {
	if errors.Is(err, domain.ErrBackend) {
		return domain.ErrAuthRejected.WithMessage(domain.UserMessage(err))
	}
	return err
}

// naiveTimeLayout is a timestamp without a zone, read as UTC.
const naiveTimeLayout = "2006-01-02T15:04:05.999999999"

// parseServerTime parses a backend timestamp: RFC 3339 with optional
// fractional seconds, or the same without a zone.
func parseServerTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err == nil {
		return t, nil
	}
	if t, nerr := time.ParseInLocation(naiveTimeLayout, v, time.UTC); nerr == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
}

// Package domain defines the core domain models for chartered-cli.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a client error with a structured error code.
//
// Message is user-facing: when the backend supplies an error string it
// replaces the default message verbatim.
type DomainError struct {
	Code    string // Error code (e.g., "CH-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// WithMessage returns a copy of the error carrying a different
// user-facing message. An empty message keeps the default.
func (e *DomainError) WithMessage(message string) *DomainError {
	if message == "" {
		message = e.Message
	}
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Details: e.Details,
		Cause:   e.Cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// UserMessage returns the message suitable for direct display.
// For a DomainError that is its Message; otherwise err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionIncomplete indicates a session with missing fields was
	// offered to the store.
	ErrSessionIncomplete = NewDomainError("CH-SESS-4000", "incomplete session")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAuthRejected indicates the backend rejected credentials or an
	// OAuth exchange. The backend message replaces the default.
	ErrAuthRejected = NewDomainError("CH-AUTH-4010", "authentication rejected")

	// ErrSessionExpired indicates the server no longer accepts the token.
	ErrSessionExpired = NewDomainError("CH-AUTH-4011", "session ended")

	// ErrNotAuthenticated indicates an authenticated call was attempted
	// without a usable session.
	ErrNotAuthenticated = NewDomainError("CH-AUTH-4012", "not authenticated")

	// ErrExtensionFailed indicates a session extension attempt failed.
	// It is logged, never surfaced.
	ErrExtensionFailed = NewDomainError("CH-AUTH-5001", "session extension failed")
)

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrBackendValidation indicates the backend refused a form submission
	// such as registration.
	ErrBackendValidation = NewDomainError("CH-REQ-4000", "request rejected")

	// ErrBackend carries the backend's error envelope verbatim.
	ErrBackend = NewDomainError("CH-REQ-4001", "backend error")

	// ErrInvalidCredentialsInput indicates credentials failed local validation.
	ErrInvalidCredentialsInput = NewDomainError("CH-REQ-4002", "invalid credentials input")

	// ErrBadResponse indicates the backend answered with an undecodable body.
	ErrBadResponse = NewDomainError("CH-REQ-5020", "unexpected response from server")
)

// ============================================================================
// Network Errors (NET)
// ============================================================================

var (
	// ErrTransport indicates the server could not be reached.
	ErrTransport = NewDomainError("CH-NET-5030", "could not reach server")
)

package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core's error taxonomy. Services return these
// (usually wrapped with fmt.Errorf and %w) and the HTTP layer maps them
// onto status codes with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotOwner           = errors.New("not the owner")
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProvider           = errors.New("identity provider error")
)

// Stable internal codes for provider failures. The auth provider reports
// its own code strings; these are the ones this core recognizes.
const (
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeExpiredActionCode = "auth/expired-action-code"
	CodeInvalidActionCode = "auth/invalid-action-code"
	CodeTooManyRequests   = "auth/too-many-requests"
)

// ProviderError carries a provider failure through the taxonomy with a
// stable code the presentation layer can switch on. It matches
// ErrProvider under errors.Is; credential-shaped codes additionally
// match ErrInvalidCredentials so callers don't leak account existence.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	if target == ErrProvider {
		return true
	}
	if target == ErrInvalidCredentials {
		return e.Code == CodeUserNotFound || e.Code == CodeWrongPassword
	}
	return false
}

// MapProviderError converts an error coming back from the auth provider
// into the core taxonomy. Unknown codes stay ProviderError and are
// surfaced verbatim; nil passes through.
func MapProviderError(code, message string) error {
	if code == "" {
		return &ProviderError{Code: "auth/unknown", Message: message}
	}
	return &ProviderError{Code: code, Message: message}
}

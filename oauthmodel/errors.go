package oauthmodel

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
)

// ErrorCode is the machine readable "error" member of an OAuth error response.
type ErrorCode string

const (
	ErrorInvalidRequest       ErrorCode = "invalid_request"
	ErrorInvalidGrant         ErrorCode = "invalid_grant"
	ErrorUnsupportedGrantType ErrorCode = "unsupported_grant_type"
	ErrorUnauthorized         ErrorCode = "unauthorized"
	ErrorInvalidToken         ErrorCode = "invalid_token"
	ErrorServerError          ErrorCode = "server_error"
)

// ErrInvalidRedirectUri is returned when a redirect_uri is missing, relative or unparsable.
var ErrInvalidRedirectUri = apperrors.ErrInvalidRedirectURI

// Error is an OAuth protocol error together with the HTTP status it is served with.
// The wrapped cause is only for logs and is never written to the wire.
type Error struct {
	Code        ErrorCode `json:"error"`
	Description string    `json:"error_description,omitempty"`
	Status      int       `json:"-"`
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, status int, description string, cause error) *Error {
	return &Error{Code: code, Description: description, Status: status, cause: cause}
}

func InvalidRequest(description string) *Error {
	return newError(ErrorInvalidRequest, http.StatusBadRequest, description, nil)
}

func InvalidGrant(description string, cause error) *Error {
	return newError(ErrorInvalidGrant, http.StatusBadRequest, description, cause)
}

func UnsupportedGrantType() *Error {
	return newError(ErrorUnsupportedGrantType, http.StatusBadRequest, "Grant type not supported", nil)
}

func Unauthorized(description string) *Error {
	return newError(ErrorUnauthorized, http.StatusUnauthorized, description, nil)
}

func InvalidToken(description string, cause error) *Error {
	return newError(ErrorInvalidToken, http.StatusUnauthorized, description, cause)
}

// ServerError hides cause behind a generic description.
func ServerError(cause error) *Error {
	return newError(ErrorServerError, http.StatusInternalServerError, "Internal server error", cause)
}

// AsError returns the protocol error carried by err, or a server_error wrapping err when err
// is not a protocol error.
func AsError(err error) *Error {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return ServerError(err)
}

package errors

import "errors"

// Common error types for the mock provider and its client
var (
	// Authorization code errors
	ErrCodeNotFound = errors.New("authorization code not found")
	ErrCodeUsed     = errors.New("authorization code already used")
	ErrCodeExpired  = errors.New("authorization code expired")
	ErrCodeExists   = errors.New("authorization code already registered")

	// Token errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenExists   = errors.New("token already stored")

	// Request errors
	ErrInvalidRedirectURI = errors.New("invalid or no redirect uri")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrStateNotFound   = errors.New("state not found")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

package auth

import "errors"

var (
	InvalidAccessTokenErr = errors.New("invalid access token")
	UserNotFoundErr       = errors.New("user not found")
)

// Wire descriptions for the errors the endpoints return.
const (
	descMissingCode         = "Missing code parameter"
	descInvalidCode         = "Invalid or expired authorization code"
	descCodeRegistered      = "Code already registered"
	descMissingRefreshToken = "Missing refresh_token parameter"
	descInvalidRefreshToken = "Invalid refresh token"
	descInvalidRedirectURI  = "Invalid redirect_uri"
	descInvalidAuthHeader   = "Missing or invalid authorization header"
	descInvalidAccessToken  = "Invalid access token"
	descExpiredAccessToken  = "Access token expired"
)

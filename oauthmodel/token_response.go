package oauthmodel

// TokenResponse represents the response from a successful token request (RFC 6749 section 5.1).
type TokenResponse struct {
	// AccessToken is an opaque bearer token, valid at the user-info endpoint until it expires
	// or until its pair is rotated by a refresh.
	AccessToken string `json:"access_token"`

	// RefreshToken is an opaque, single-use token for the refresh_token grant.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in"`

	Scope string `json:"scope"`
}

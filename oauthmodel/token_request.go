package oauthmodel

// TokenRequest holds parameters for the OAuth2 token request.
// The token endpoint accepts it as a JSON body or as an RFC 6749 form body; both use the same names.
type TokenRequest struct {
	// GrantType selects the grant. Anything other than authorization_code or refresh_token
	// is rejected with unsupported_grant_type.
	GrantType GrantType `json:"grant_type"`

	// Code is the authorization code received from the authorization endpoint.
	// Required for authorization_code.
	Code string `json:"code,omitempty"`

	// RefreshToken is required for refresh_token.
	RefreshToken string `json:"refresh_token,omitempty"`

	// The client fields are accepted and ignored: the demo has a single, implicitly trusted client.
	RedirectURI  string `json:"redirect_uri,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

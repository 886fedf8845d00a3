package oauthmodel

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a single-use authorization code for a token pair.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant rotates a token pair: the presented refresh token and its access token
	// stop being honoured and a new pair is issued for the same subject.
	RefreshTokenGrant GrantType = "refresh_token"
)

// ResponseType represents the OAuth 2.0 response type requested at the authorization endpoint.
type ResponseType string

const (
	CodeResponseType ResponseType = "code"
)

const (
	TokenTypeBearer = "Bearer"
	ScopeOpenID     = "openid"
)

// Consent decisions posted by the authorization screen.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Provider routes
	RouteAuthorize             = "/auth/authorize"
	RouteToken                 = "/api/auth/token"
	RouteUserInfo              = "/api/auth/user"
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"

	// Client application routes
	RouteHome         = "/"
	RouteSignIn       = "/signin"
	RouteSignOut      = "/signout"
	RouteCallback     = "/api/auth/callback"
	RouteSession      = "/api/auth/session"
	RouteProducts     = "/api/products"
	RouteAPIPreflight = "/api/"

	// Operations
	RouteMetrics = "/metrics"
)

package server

func (s *Server) initRoutes() {
	// Provider
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.ConsentPage(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthorize, ChainMiddleware(s.AuthorizeDecision(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteToken, ChainMiddleware(s.TokenAction(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteUserInfo, ChainMiddleware(s.UserInfo(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(s.Preflight(), s.APIMiddleware()...))

	// Client application
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.HomePage(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSignIn, ChainMiddleware(s.SignIn(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSignOut, ChainMiddleware(s.SignOut(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteSignOut, ChainMiddleware(s.SignOut(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteProducts, ChainMiddleware(s.ProductsHandler(), s.APIMiddleware(s.RequireSession())...))

	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.metrics.Handler().ServeHTTP, s.RecoverMiddleware))
}

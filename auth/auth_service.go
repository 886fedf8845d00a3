package auth

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-mock-oauth/internal/errors"
	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
	"github.com/jrsteele09/go-mock-oauth/store"
	"github.com/jrsteele09/go-mock-oauth/token"
	"github.com/jrsteele09/go-mock-oauth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Repos holds all repository dependencies for the AuthorizationService
type Repos struct {
	Codes  store.CodeStore  // Single-use authorization codes
	Tokens store.TokenStore // Issued token pairs
	Users  users.UserRepo   // Identities the tokens are bound to
}

// Recorder observes token endpoint outcomes.
type Recorder interface {
	TokenIssued(grantType string)
	TokenRejected(grantType, errorCode string)
}

type nopRecorder struct{}

func (nopRecorder) TokenIssued(string)           {}
func (nopRecorder) TokenRejected(string, string) {}

// AuthorizationService implements the provider side of the authorization-code and refresh grants.
//
// Every method returns either its result or an *oauthmodel.Error. Faults that are not protocol
// errors are logged and surfaced as server_error, never as their underlying cause.
type AuthorizationService struct {
	repos        Repos
	tokenManager *token.Manager
	subjectID    string
	recorder     Recorder
	nowTime      func() time.Time
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithSubject sets the identity every grant is issued for.
func WithSubject(subjectID string) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.subjectID = subjectID
	}
}

func WithRecorder(recorder Recorder) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.recorder = recorder
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(repos Repos, tokenManager *token.Manager, options ...AuthorizationServiceOption) (*AuthorizationService, error) {
	if repos.Codes == nil {
		return nil, errors.New("[NewAuthorizationService] Codes repo is required")
	}
	if repos.Tokens == nil {
		return nil, errors.New("[NewAuthorizationService] Tokens repo is required")
	}
	if repos.Users == nil {
		return nil, errors.New("[NewAuthorizationService] Users repo is required")
	}
	if tokenManager == nil {
		return nil, errors.New("[NewAuthorizationService] tokenManager is required")
	}

	authService := &AuthorizationService{
		repos:        repos,
		tokenManager: tokenManager,
		subjectID:    users.DemoUser().ID,
		recorder:     nopRecorder{},
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(authService)
	}
	return authService, nil
}

// Authorize issues a code for an approved consent and returns the client callback URL
// carrying it. The caller is responsible for checking the decision.
func (as *AuthorizationService) Authorize(ctx context.Context, params *oauthmodel.AuthorizationParameters) (string, error) {
	if _, err := params.ValidateRedirectURI(); err != nil {
		return "", oauthmodel.InvalidRequest(descInvalidRedirectURI)
	}

	code, err := as.tokenManager.NewAuthorizationCode("", params.ClientID, params.RedirectURI)
	if err != nil {
		return "", as.fail("authorize", errors.Wrap(err, "[Authorize] failed to mint code"))
	}
	if err := as.repos.Codes.PutCode(ctx, code); err != nil {
		return "", as.fail("authorize", errors.Wrap(err, "[Authorize] failed to store code"))
	}

	callback, err := params.CallbackURL(code.Value)
	if err != nil {
		return "", oauthmodel.InvalidRequest(descInvalidRedirectURI)
	}
	return callback, nil
}

// RegisterCode inserts a caller chosen, unused code with the normal code lifetime.
func (as *AuthorizationService) RegisterCode(ctx context.Context, value string) error {
	if value == "" {
		return oauthmodel.InvalidRequest(descMissingCode)
	}
	code, err := as.tokenManager.NewAuthorizationCode(value, "", "")
	if err != nil {
		return as.fail("register_code", errors.Wrap(err, "[RegisterCode] failed to mint code"))
	}
	err = as.repos.Codes.PutCode(ctx, code)
	if errors.Is(err, store.ErrCodeExists) {
		return oauthmodel.InvalidRequest(descCodeRegistered)
	}
	if err != nil {
		return as.fail("register_code", errors.Wrap(err, "[RegisterCode] failed to store code"))
	}
	return nil
}

// Token runs the grant named by req.GrantType.
func (as *AuthorizationService) Token(ctx context.Context, req *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	var (
		resp *oauthmodel.TokenResponse
		err  error
	)
	grantLabel := string(req.GrantType)

	switch req.GrantType {
	case oauthmodel.AuthorizationCodeGrant:
		resp, err = as.exchangeCode(ctx, req)
	case oauthmodel.RefreshTokenGrant:
		resp, err = as.refresh(ctx, req)
	default:
		grantLabel = "unsupported"
		err = oauthmodel.UnsupportedGrantType()
	}

	if err != nil {
		oauthErr := as.fail("token", err)
		as.recorder.TokenRejected(grantLabel, string(oauthErr.Code))
		return nil, oauthErr
	}
	as.recorder.TokenIssued(grantLabel)
	return resp, nil
}

func (as *AuthorizationService) exchangeCode(ctx context.Context, req *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if req.Code == "" {
		return nil, oauthmodel.InvalidRequest(descMissingCode)
	}
	if _, err := as.repos.Codes.ConsumeCode(ctx, req.Code, as.nowTime()); err != nil {
		if isRejectedCode(err) {
			return nil, oauthmodel.InvalidGrant(descInvalidCode, err)
		}
		return nil, errors.Wrap(err, "[exchangeCode] failed to consume code")
	}
	return as.issue(ctx, as.subjectID)
}

func (as *AuthorizationService) refresh(ctx context.Context, req *oauthmodel.TokenRequest) (*oauthmodel.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, oauthmodel.InvalidRequest(descMissingRefreshToken)
	}
	old, err := as.repos.Tokens.TakeByRefreshToken(ctx, req.RefreshToken)
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil, oauthmodel.InvalidGrant(descInvalidRefreshToken, err)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[refresh] failed to take token pair")
	}
	return as.issue(ctx, old.SubjectID)
}

func (as *AuthorizationService) issue(ctx context.Context, subjectID string) (*oauthmodel.TokenResponse, error) {
	pair, err := as.tokenManager.NewPair(subjectID)
	if err != nil {
		return nil, errors.Wrap(err, "[issue] failed to mint token pair")
	}
	if err := as.repos.Tokens.PutTokens(ctx, pair); err != nil {
		return nil, errors.Wrap(err, "[issue] failed to store token pair")
	}
	return &oauthmodel.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    oauthmodel.TokenTypeBearer,
		ExpiresIn:    int(as.tokenManager.AccessTokenExpiry().Seconds()),
		Scope:        pair.Scope,
	}, nil
}

// ParseBearerToken extracts the token from an Authorization header value.
func ParseBearerToken(header string) (string, error) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	value = strings.TrimSpace(value)
	if !ok || !strings.EqualFold(scheme, "Bearer") || value == "" {
		return "", oauthmodel.Unauthorized(descInvalidAuthHeader)
	}
	return value, nil
}

// ScopesSupported lists the scopes minted into every token pair.
func (as *AuthorizationService) ScopesSupported() []string {
	return strings.Fields(as.tokenManager.Scope())
}

// UserInfo returns the profile bound to a live, unexpired access token.
func (as *AuthorizationService) UserInfo(ctx context.Context, accessToken string) (*oauthmodel.UserInfo, error) {
	pair, err := as.repos.Tokens.GetByAccessToken(ctx, accessToken)
	if errors.Is(err, store.ErrTokenNotFound) {
		return nil, oauthmodel.InvalidToken(descInvalidAccessToken, InvalidAccessTokenErr)
	}
	if err != nil {
		return nil, as.fail("userinfo", errors.Wrap(err, "[UserInfo] failed to read token"))
	}
	if pair.Expired(as.nowTime()) {
		return nil, oauthmodel.InvalidToken(descExpiredAccessToken, apperrors.ErrTokenExpired)
	}

	user, err := as.repos.Users.GetByID(pair.SubjectID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		// A token that outlived its subject is as good as revoked.
		return nil, oauthmodel.InvalidToken(descInvalidAccessToken, errors.Wrap(UserNotFoundErr, pair.SubjectID))
	}
	if err != nil {
		return nil, as.fail("userinfo", errors.Wrapf(err, "[UserInfo] subject %s", pair.SubjectID))
	}
	return user.UserInfo(), nil
}

// fail converts err to its protocol error, logging anything that becomes a server_error.
func (as *AuthorizationService) fail(operation string, err error) *oauthmodel.Error {
	oauthErr := oauthmodel.AsError(err)
	if oauthErr.Code == oauthmodel.ErrorServerError {
		log.Err(err).Str("operation", operation).Msg("internal error")
	}
	return oauthErr
}

func isRejectedCode(err error) bool {
	return errors.Is(err, store.ErrCodeNotFound) ||
		errors.Is(err, store.ErrCodeUsed) ||
		errors.Is(err, store.ErrCodeExpired)
}

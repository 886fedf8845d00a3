package client

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const SessionCookieName = "mockoauth.session"

const cookieKeyInfo = "mock-oauth session cookie v1"

var ErrInvalidSessionCookie = errors.New("invalid session cookie")

// CookieCodec seals a session ID into a signed, expiring cookie value (an HS256 JWT).
// The signing key is derived from the application secret with HKDF-SHA256.
type CookieCodec struct {
	key     []byte
	maxAge  time.Duration
	nowTime func() time.Time
}

func NewCookieCodec(secret string, maxAge time.Duration, nowTime func() time.Time) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("[NewCookieCodec] secret is required")
	}
	if nowTime == nil {
		nowTime = time.Now
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("[NewCookieCodec] failed to derive key: %w", err)
	}
	return &CookieCodec{key: key, maxAge: maxAge, nowTime: nowTime}, nil
}

func (c *CookieCodec) Encode(sessionID string) (string, error) {
	now := c.nowTime()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[CookieCodec.Encode] failed to sign: %w", err)
	}
	return value, nil
}

// Decode verifies value and returns the session ID it carries.
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.nowTime),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSessionCookie, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidSessionCookie
	}
	return claims.Subject, nil
}

// Cookie wraps an encoded value in the session cookie.
func (c *CookieCodec) Cookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie removes the session cookie from the browser.
func (c *CookieCodec) ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionID reads and verifies the session cookie on r.
func (c *CookieCodec) SessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", ErrInvalidSessionCookie
	}
	return c.Decode(cookie.Value)
}

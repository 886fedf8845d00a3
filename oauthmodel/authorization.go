package oauthmodel

import (
	"net/url"
	"strings"
)

// AuthorizationParameters is what the consent screen posts back once the user has decided.
type AuthorizationParameters struct {
	ClientID     string
	RedirectURI  string
	State        string
	ResponseType ResponseType
	Scope        string
	Decision     string
}

func (p *AuthorizationParameters) Approved() bool {
	return strings.EqualFold(p.Decision, DecisionApprove)
}

// ValidateRedirectURI requires an absolute http(s) URI without a fragment.
func (p *AuthorizationParameters) ValidateRedirectURI() (*url.URL, error) {
	if p.RedirectURI == "" {
		return nil, ErrInvalidRedirectUri
	}
	u, err := url.Parse(p.RedirectURI)
	if err != nil {
		return nil, ErrInvalidRedirectUri
	}
	if !u.IsAbs() || u.Host == "" || u.Fragment != "" {
		return nil, ErrInvalidRedirectUri
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidRedirectUri
	}
	return u, nil
}

// CallbackURL appends code and state to the redirect URI, keeping any query it already carries.
func (p *AuthorizationParameters) CallbackURL(code string) (string, error) {
	u, err := p.ValidateRedirectURI()
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("code", code)
	q.Set("state", p.State)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

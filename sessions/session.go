package sessions

import "time"

// RefreshAccessTokenError marks a session whose last refresh failed. Its tokens are kept for
// inspection but must not be used; the user has to sign in again.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// User is the profile captured at sign-in.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Session is the client application's view of a signed-in user.
type Session struct {
	ID                 string
	User               User
	AccessToken        string
	RefreshToken       string
	AccessTokenExpires time.Time
	Error              string
	CreatedAt          time.Time
}

// RequiresReauthentication reports whether the session carries an error marker.
func (s Session) RequiresReauthentication() bool {
	return s.Error != ""
}

// AccessTokenValid reports whether the access token can be used at now without refreshing.
func (s Session) AccessTokenValid(now time.Time) bool {
	return now.Before(s.AccessTokenExpires)
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	// Update replaces an existing session and fails with ErrSessionNotFound when it is gone.
	Update(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}

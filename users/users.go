package users

import (
	"time"

	"github.com/jrsteele09/go-mock-oauth/oauthmodel"
)

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Picture       string    `json:"picture"`
	EmailVerified bool      `json:"email_verified"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DemoUser is the fixed identity every grant is issued for.
func DemoUser() *User {
	return &User{
		ID:            "mock-user-123",
		Name:          "John Doe",
		Email:         "john.doe@example.com",
		Picture:       "https://api.dicebear.com/7.x/avataaars/svg?seed=John",
		EmailVerified: true,
		UpdatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// UserInfo renders the user as the user-info endpoint body.
func (u *User) UserInfo() *oauthmodel.UserInfo {
	return &oauthmodel.UserInfo{
		Subject:       u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Picture:       u.Picture,
		EmailVerified: u.EmailVerified,
		UpdatedAt:     u.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

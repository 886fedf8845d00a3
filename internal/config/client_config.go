package config

import "time"

const (
	ClientIDEnvVar      = "CLIENT_ID"
	ClientSecretEnvVar  = "CLIENT_SECRET"
	SessionSecretEnvVar = "SESSION_SECRET"
)

type Client struct {
	src source
}

var _ ClientConfig = Client{}

func (c Client) GetClientID() string {
	return c.src.get(ClientIDEnvVar, "mock-client-id")
}

func (c Client) GetClientSecret() string {
	return c.src.get(ClientSecretEnvVar, "mock-client-secret")
}

// GetSessionSecret is the key material the session cookie signing key is derived from.
func (c Client) GetSessionSecret() string {
	return c.src.get(SessionSecretEnvVar, "development-session-secret-change-me")
}

func (Client) GetSessionMaxAge() time.Duration {
	return 30 * 24 * time.Hour
}

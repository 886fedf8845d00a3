package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	StoreConfig
	ClientConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetSQLitePath() string
}

type ClientConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetSessionSecret() string
	GetSessionMaxAge() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Store
	Client
}

// Option overrides a single environment-backed setting, typically from a command line flag.
type Option func(overrides map[string]string)

// WithValue makes envVar resolve to value regardless of the process environment.
// An empty value leaves the environment lookup in place.
func WithValue(envVar, value string) Option {
	return func(overrides map[string]string) {
		if value != "" {
			overrides[envVar] = value
		}
	}
}

func New(options ...Option) Config {
	overrides := make(map[string]string)
	for _, option := range options {
		option(overrides)
	}
	src := source{overrides: overrides}
	return mainConfig{
		EnvVars: EnvVars{src: src},
		Cors:    Cors{src: src},
		Store:   Store{src: src},
		Client:  Client{src: src},
	}
}

package config

import (
	"os"
	"strings"
)

const (
	PortEnvVar     = "PORT"
	AppNameEnvVar  = "APP_NAME"
	EnvEnvVar      = "ENV"
	LogLevelEnvVar = "LOG_LEVEL"
	BaseURLEnvVar  = "BASE_URL"
)

// source resolves a setting from explicit overrides first and the process environment second.
type source struct {
	overrides map[string]string
}

func (s source) get(envVar, defaultValue string) string {
	if value, ok := s.overrides[envVar]; ok {
		return value
	}
	return GetEnv(envVar, defaultValue)
}

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.src.get(PortEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.src.get(AppNameEnvVar, "Mock OAuth")
}

func (e EnvVars) GetEnv() string {
	return e.src.get(EnvEnvVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.src.get(LogLevelEnvVar, "info")
}

// GetBaseURL returns the externally visible URL of this process (e.g., "http://localhost:8080").
// The provider uses it as its issuer and the client derives its redirect URI and provider endpoints from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.src.get(BaseURLEnvVar, "http://localhost:8080"), "/")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

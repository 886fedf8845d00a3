package config

import (
	"sort"
	"strings"
)

const CorsAllowedOriginsEnvVar = "CORS_ALLOWED_ORIGINS"

// Local development origins; the demo client itself is same-origin and needs no CORS.
const defaultAllowedOrigins = "http://localhost:3000,http://localhost:8080"

// Cors resolves cross-origin settings. Origins come from a comma separated list where "*" allows any origin.
type Cors struct {
	src source
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}

func ParseAllowedOrigins(list string) AllowedOrigins {
	origins := AllowedOrigins{}
	for _, origin := range strings.Split(list, ",") {
		if origin = strings.TrimSuffix(strings.TrimSpace(origin), "/"); origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return origins
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for origin := range a {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	return ParseAllowedOrigins(c.src.get(CorsAllowedOriginsEnvVar, defaultAllowedOrigins))
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}

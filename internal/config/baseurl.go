package config

import (
	"fmt"
	"net/url"
	"strings"
)

// EnvAPIBase overrides every other base URL source when set.
const EnvAPIBase = "STOCKDASH_API_BASE"

// FallbackBaseURL is used when neither an override nor an origin is known.
const FallbackBaseURL = "http://localhost:8080/api"

// BaseURLSource names the rule that produced a resolved base URL.
type BaseURLSource string

const (
	BaseURLFromEnv      BaseURLSource = "env"
	BaseURLFromConfig   BaseURLSource = "config"
	BaseURLFromOrigin   BaseURLSource = "origin"
	BaseURLFromFallback BaseURLSource = "fallback"
)

// ResolveBaseURL picks the backend base URL: the STOCKDASH_API_BASE override,
// then api.base_url, then the origin host with the backend port, then
// FallbackBaseURL. getenv may be nil.
func (a APIConfig) ResolveBaseURL(getenv func(string) string) (string, BaseURLSource) {
	if getenv != nil {
		if v := strings.TrimSpace(getenv(EnvAPIBase)); v != "" {
			return v, BaseURLFromEnv
		}
	}
	if v := strings.TrimSpace(a.BaseURL); v != "" {
		return v, BaseURLFromConfig
	}
	if derived, ok := a.deriveFromOrigin(); ok {
		return derived, BaseURLFromOrigin
	}
	return FallbackBaseURL, BaseURLFromFallback
}

func (a APIConfig) deriveFromOrigin() (string, bool) {
	origin := strings.TrimSpace(a.Origin)
	if origin == "" {
		return "", false
	}
	if !strings.Contains(origin, "://") {
		origin = "http://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	port := a.BackendPort
	if port <= 0 {
		port = defaultBackendPort
	}
	prefix := strings.TrimSpace(a.PathPrefix)
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, host, port, strings.TrimSuffix(prefix, "/")), true
}

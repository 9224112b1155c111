package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.API.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (a *APIConfig) validate() error {
	if a.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if a.BackendPort <= 0 || a.BackendPort > 65535 {
		return fmt.Errorf("api.backend_port must be in [1,65535]")
	}
	if a.CircuitThreshold < 0 {
		return fmt.Errorf("api.circuit_threshold must be >= 0")
	}
	if a.CircuitThreshold > 0 && a.CircuitCooldownSeconds <= 0 {
		return fmt.Errorf("api.circuit_cooldown_seconds must be > 0 when the breaker is enabled")
	}
	if a.BaseURL != "" {
		if err := checkHTTPURL(a.BaseURL); err != nil {
			return fmt.Errorf("api.base_url invalid: %w", err)
		}
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if j.Enabled && strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("journal.path cannot be empty when journal is enabled")
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host: %s", raw)
	}
	return nil
}

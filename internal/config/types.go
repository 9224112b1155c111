package config

import "strings"

// Config is the root configuration of the dashboard data layer.
type Config struct {
	App      AppConfig      `toml:"app"`
	API      APIConfig      `toml:"api"`
	Journal  JournalConfig  `toml:"journal"`
	Strategy StrategyConfig `toml:"strategy"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	LogPath     string `toml:"log_path"`
	HTTPLogPath string `toml:"http_log_path"`
	HTTPDump    bool   `toml:"http_dump_payload"`
	HTTPAddr    string `toml:"http_addr"`
}

// APIConfig describes how the backend is reached. BaseURL is the explicit
// override; Origin is the address the dashboard itself is served from and is
// only used to derive a base URL when no override exists.
type APIConfig struct {
	BaseURL                string `toml:"base_url"`
	Origin                 string `toml:"origin"`
	BackendPort            int    `toml:"backend_port"`
	PathPrefix             string `toml:"path_prefix"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	InsecureSkipVerify     bool   `toml:"insecure_skip_verify"`
	CircuitThreshold       int    `toml:"circuit_threshold"`
	CircuitCooldownSeconds int    `toml:"circuit_cooldown_seconds"`
}

// JournalConfig controls the optional on-disk action journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type StrategyConfig struct {
	SchemaPath  string `toml:"schema_path"`
	DefaultType string `toml:"default_type"`
}

// keySet tracks the key paths explicitly present in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes when and how one field receives its default.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

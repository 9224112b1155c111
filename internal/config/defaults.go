package config

import (
	"strings"
)

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogFormat    = "text"
	defaultAppHTTPAddr     = "127.0.0.1:5174"
	defaultBackendPort     = 8080
	defaultPathPrefix      = "/api"
	defaultTimeoutSeconds  = 15
	defaultCircuitCooldown = 30
	defaultJournalPath     = "data/journal.db"
	defaultStrategyType    = "ma_crossover"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.API.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (a *APIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("api.backend_port", &a.BackendPort, defaultBackendPort),
		stringFieldDefault("api.path_prefix", &a.PathPrefix, defaultPathPrefix),
		intFieldDefault("api.timeout_seconds", &a.TimeoutSeconds, defaultTimeoutSeconds),
		intFieldDefault("api.circuit_cooldown_seconds", &a.CircuitCooldownSeconds, defaultCircuitCooldown),
	)
	a.BaseURL = strings.TrimSpace(a.BaseURL)
	a.Origin = strings.TrimSpace(a.Origin)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	if j == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "journal.path",
			need:  func() bool { return j.Enabled && strings.TrimSpace(j.Path) == "" },
			apply: func() { j.Path = defaultJournalPath },
		},
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("strategy.default_type", &s.DefaultType, defaultStrategyType),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

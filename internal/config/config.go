package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	g := &cfg.Gateway
	if g.Port == 0 {
		g.Port = 8000
	}
	if g.Bind == "" {
		g.Bind = "loopback"
	}
	if g.MaxBodyBytes == 0 {
		g.MaxBodyBytes = 64 << 10
	}
	if g.MaxMessageChars == 0 {
		g.MaxMessageChars = 2000
	}
	if g.RateLimit.WindowSec == 0 {
		g.RateLimit.WindowSec = 60
	}
	if g.RateLimit.MaxRequests == 0 {
		g.RateLimit.MaxRequests = 60
	}

	s := &cfg.Session
	if s.Store == "" {
		s.Store = "sqlite"
	}
	if s.TTLSeconds == 0 {
		s.TTLSeconds = 30 * 24 * 3600
	}
	if s.Budget == 0 {
		s.Budget = 3
	}
	if s.ContextTurns == 0 {
		s.ContextTurns = 10
	}
	if s.DriftSwitchMinHits == 0 {
		s.DriftSwitchMinHits = 1
	}
	if s.ClassifierThreshold == 0 {
		s.ClassifierThreshold = 0.70
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = "mrbooky:session:"
	}

	if cfg.Tools.TimeoutSec == 0 {
		cfg.Tools.TimeoutSec = 25
	}
	if cfg.Tools.DefaultArea == "" {
		cfg.Tools.DefaultArea = "Πάτρα"
	}
	if cfg.Booking.Agent == "" {
		cfg.Booking.Agent = "mrbooky"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "none"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleLevel == "" {
		cfg.Logging.ConsoleLevel = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

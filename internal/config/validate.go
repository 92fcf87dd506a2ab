package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			add(path, "must be one of %v, got %q", valid, value)
		}
	}

	// Gateway
	g := cfg.Gateway
	if g.Port < 0 || g.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", g.Port)
	}
	oneOf("gateway.bind", g.Bind, []string{"auto", "lan", "loopback", "custom"})
	if g.Bind == "custom" && g.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind: custom")
	}
	if g.MaxBodyBytes < 0 {
		add("gateway.maxBodyBytes", "must not be negative")
	}
	if g.MaxMessageChars < 0 {
		add("gateway.maxMessageChars", "must not be negative")
	}
	if g.RateLimit.MaxRequests < 0 || g.RateLimit.WindowSec < 0 {
		add("gateway.rateLimit", "values must not be negative")
	}

	// Session
	s := cfg.Session
	oneOf("session.store", s.Store, []string{"memory", "sqlite", "redis"})
	oneOf("session.scope", s.Scope, []string{"per-sender", "global"})
	if s.Store == "redis" && s.RedisURL == "" {
		add("session.redisUrl", "required when store: redis")
	}
	if s.Budget < 0 {
		add("session.budget", "must be positive, got %d", s.Budget)
	}
	if s.TTLSeconds < 0 {
		add("session.ttlSeconds", "must not be negative")
	}
	if s.ContextTurns < 0 {
		add("session.contextTurns", "must not be negative")
	}
	if s.DriftSwitchMinHits < 0 {
		add("session.driftSwitchMinHits", "must not be negative")
	}
	if s.ClassifierThreshold < 0 || s.ClassifierThreshold > 1 {
		add("session.classifierThreshold", "must be between 0 and 1, got %g", s.ClassifierThreshold)
	}

	// Tools and booking endpoints
	if cfg.Tools.TimeoutSec < 0 {
		add("tools.timeoutSec", "must not be negative")
	}
	for path, raw := range map[string]string{
		"tools.fareUrl":         cfg.Tools.FareURL,
		"tools.pharmacyUrl":     cfg.Tools.PharmacyURL,
		"tools.hospitalUrl":     cfg.Tools.HospitalURL,
		"tools.infoUrl":         cfg.Tools.InfoURL,
		"booking.createUrl":     cfg.Booking.CreateURL,
		"booking.linkUrl":       cfg.Booking.LinkURL,
		"booking.notifyWebhook": cfg.Booking.NotifyWebhook,
		"llm.endpoint":          cfg.LLM.Endpoint,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(path, "must be an http(s) URL, got %q", raw)
		}
	}

	// LLM
	oneOf("llm.provider", cfg.LLM.Provider, []string{"none", "ollama", "openai"})
	if cfg.LLM.Provider == "ollama" || cfg.LLM.Provider == "openai" {
		if cfg.LLM.Model == "" {
			add("llm.model", "required when llm.provider is %s", cfg.LLM.Provider)
		}
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		add("llm.apiKey", "required when llm.provider is openai")
	}

	// Logging
	levels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	oneOf("logging.level", cfg.Logging.Level, levels)
	oneOf("logging.consoleLevel", cfg.Logging.ConsoleLevel, levels)
	oneOf("logging.consoleStyle", cfg.Logging.ConsoleStyle, []string{"pretty", "compact", "json"})

	// IRC (only if configured)
	if irc := cfg.Channels.IRC; irc != nil {
		if irc.Server == "" {
			add("channels.irc.server", "server is required")
		}
		if irc.Nick == "" {
			add("channels.irc.nick", "nick is required")
		}
		if irc.Port < 0 || irc.Port > 65535 {
			add("channels.irc.port", "port must be 0-65535, got %d", irc.Port)
		}
		if irc.SASL && irc.Password == "" {
			add("channels.irc.sasl", "SASL requires a password to be set")
		}
		if irc.DispatchChannel == "" && len(irc.Channels) == 0 {
			add("channels.irc.dispatchChannel", "set dispatchChannel or at least one channel")
		}
	}

	slices.SortFunc(issues, func(a, b ValidationIssue) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return issues
}

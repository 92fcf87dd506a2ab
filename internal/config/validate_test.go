package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuePaths(issues []ValidationIssue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Path)
	}
	return out
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateSingleIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"port", func(c *Config) { c.Gateway.Port = 99999 }, "gateway.port"},
		{"bind", func(c *Config) { c.Gateway.Bind = "everywhere" }, "gateway.bind"},
		{"custom bind host", func(c *Config) { c.Gateway.Bind = "custom" }, "gateway.customBindHost"},
		{"body size", func(c *Config) { c.Gateway.MaxBodyBytes = -1 }, "gateway.maxBodyBytes"},
		{"rate limit", func(c *Config) { c.Gateway.RateLimit.MaxRequests = -1 }, "gateway.rateLimit"},
		{"store", func(c *Config) { c.Session.Store = "mongo" }, "session.store"},
		{"redis url", func(c *Config) { c.Session.Store = "redis" }, "session.redisUrl"},
		{"scope", func(c *Config) { c.Session.Scope = "room" }, "session.scope"},
		{"budget", func(c *Config) { c.Session.Budget = -2 }, "session.budget"},
		{"threshold", func(c *Config) { c.Session.ClassifierThreshold = 1.5 }, "session.classifierThreshold"},
		{"fare url", func(c *Config) { c.Tools.FareURL = "ftp://fare" }, "tools.fareUrl"},
		{"webhook url", func(c *Config) { c.Booking.NotifyWebhook = "not a url" }, "booking.notifyWebhook"},
		{"llm provider", func(c *Config) { c.LLM.Provider = "claude" }, "llm.provider"},
		{"ollama model", func(c *Config) { c.LLM.Provider = "ollama" }, "llm.model"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"console style", func(c *Config) { c.Logging.ConsoleStyle = "fancy" }, "logging.consoleStyle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			require.Len(t, issues, 1, "%v", issues)
			assert.Equal(t, tt.path, issues[0].Path)
		})
	}
}

func TestValidateOpenAIRequiresKeyAndModel(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "openai"
	assert.Equal(t, []string{"llm.apiKey", "llm.model"}, issuePaths(Validate(&cfg)))

	cfg.LLM.APIKey = "sk"
	cfg.LLM.Model = "gpt-4.1-mini"
	assert.Empty(t, Validate(&cfg))
}

func TestValidateIRC(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.IRC = &IRCConfig{SASL: true, Port: 70000}
	paths := issuePaths(Validate(&cfg))
	assert.Equal(t, []string{
		"channels.irc.dispatchChannel",
		"channels.irc.nick",
		"channels.irc.port",
		"channels.irc.sasl",
		"channels.irc.server",
	}, paths)

	cfg.Channels.IRC = &IRCConfig{Server: "irc.example", Nick: "bot", DispatchChannel: "#taxi"}
	assert.Empty(t, Validate(&cfg))
}

func TestValidationIssueString(t *testing.T) {
	assert.Equal(t, "session.store: bad", ValidationIssue{Path: "session.store", Message: "bad"}.String())
}

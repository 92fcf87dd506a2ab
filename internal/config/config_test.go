package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 8000, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, int64(64<<10), cfg.Gateway.MaxBodyBytes)
	assert.Equal(t, 2000, cfg.Gateway.MaxMessageChars)
	assert.Equal(t, 60, cfg.Gateway.RateLimit.MaxRequests)
	assert.Equal(t, 60, cfg.Gateway.RateLimit.WindowSec)

	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, 2592000, cfg.Session.TTLSeconds)
	assert.Equal(t, 3, cfg.Session.Budget)
	assert.Equal(t, 10, cfg.Session.ContextTurns)
	assert.Equal(t, 1, cfg.Session.DriftSwitchMinHits)
	assert.True(t, cfg.Session.ResetOnNoMatchEnabled())
	assert.InDelta(t, 0.70, cfg.Session.ClassifierThreshold, 1e-9)
	assert.Equal(t, "mrbooky:session:", cfg.Session.KeyPrefix)

	assert.Equal(t, 25, cfg.Tools.TimeoutSec)
	assert.Equal(t, "Πάτρα", cfg.Tools.DefaultArea)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("TEST_LLM_KEY", "sk-from-env")

	yaml := `
gateway:
  port: 9999
  bind: lan
  apiKeys: ["k1", "k2"]
  maxMessageChars: 500
  rateLimit:
    windowSec: 10
    maxRequests: 5
session:
  store: redis
  redisUrl: redis://localhost:6379/0
  budget: 5
  resetOnNoMatch: false
tools:
  fareUrl: https://fare.example
  pharmacyUrl: https://pharmacy.example
llm:
  provider: openai
  apiKey: ${TEST_LLM_KEY}
  model: gpt-4.1-mini
  fallbacks: [gpt-4o-mini]
logging:
  level: debug
  consoleStyle: json
channels:
  irc:
    server: irc.libera.chat
    port: 6697
    nick: mrbooky
    channels: ["#dispatch"]
    useTLS: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "lan", cfg.Gateway.Bind)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Gateway.APIKeys)
	assert.Equal(t, 500, cfg.Gateway.MaxMessageChars)
	assert.Equal(t, int64(64<<10), cfg.Gateway.MaxBodyBytes)
	assert.Equal(t, 5, cfg.Gateway.RateLimit.MaxRequests)

	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 5, cfg.Session.Budget)
	assert.False(t, cfg.Session.ResetOnNoMatchEnabled())
	assert.Equal(t, 10, cfg.Session.ContextTurns)

	assert.Equal(t, "https://fare.example", cfg.Tools.FareURL)
	assert.Equal(t, 25, cfg.Tools.TimeoutSec)

	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.LLM.Fallbacks)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.NotNil(t, cfg.Channels.IRC)
	assert.Equal(t, "irc.libera.chat", cfg.Channels.IRC.Server)
	assert.Equal(t, []string{"#dispatch"}, cfg.Channels.IRC.Channels)
	assert.True(t, cfg.Channels.IRC.UseTLS)

	assert.Empty(t, Validate(&cfg))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MRBOOKY_GATEWAY_PORT", "12345")
	t.Setenv("MRBOOKY_LOG_LEVEL", "TRACE")
	t.Setenv("MRBOOKY_API_KEYS", " a, ,b ")
	t.Setenv("MRBOOKY_SESSION_STORE", "Memory")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 12345, cfg.Gateway.Port)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, []string{"a", "b"}, cfg.Gateway.APIKeys)
	assert.Equal(t, "memory", cfg.Session.Store)
}

func TestExpandEnvVarsLeavesUnsetAlone(t *testing.T) {
	t.Setenv("SET_ONE", "x")
	assert.Equal(t, "x-${UNSET_ONE_FOR_TEST}", expandEnvVars("${SET_ONE}-${UNSET_ONE_FOR_TEST}"))
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	SetValueAtPath(raw, []string{"session", "budget"}, 4)
	require.NoError(t, SaveRaw(path, raw))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Session.Budget)

	reloaded, err := LoadRaw(path)
	require.NoError(t, err)
	val, ok := GetValueAtPath(reloaded, []string{"session", "budget"})
	assert.True(t, ok)
	assert.Equal(t, 4, val)
}

package config

// Config is the root configuration for mrbooky.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Session  SessionConfig  `yaml:"session,omitempty"`
	Tools    ToolsConfig    `yaml:"tools,omitempty"`
	Booking  BookingConfig  `yaml:"booking,omitempty"`
	Brand    BrandConfig    `yaml:"brand,omitempty"`
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Channels ChannelsConfig `yaml:"channels,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// GatewayConfig controls the chat HTTP/WebSocket server.
type GatewayConfig struct {
	Port            int             `yaml:"port,omitempty"`
	Bind            string          `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost  string          `yaml:"customBindHost,omitempty"`
	AllowedOrigins  []string        `yaml:"allowedOrigins,omitempty"`
	APIKeys         []string        `yaml:"apiKeys,omitempty"` // empty disables auth
	MaxBodyBytes    int64           `yaml:"maxBodyBytes,omitempty"`
	MaxMessageChars int             `yaml:"maxMessageChars,omitempty"`
	RateLimit       RateLimitConfig `yaml:"rateLimit,omitempty"`
}

// RateLimitConfig is a per-client request allowance.
type RateLimitConfig struct {
	WindowSec   int `yaml:"windowSec,omitempty"`
	MaxRequests int `yaml:"maxRequests,omitempty"` // 0 disables limiting
}

// SessionConfig defines dialogue session storage and policy.
type SessionConfig struct {
	Store               string  `yaml:"store,omitempty"` // "memory" | "sqlite" | "redis"
	TTLSeconds          int     `yaml:"ttlSeconds,omitempty"`
	Budget              int     `yaml:"budget,omitempty"`
	ContextTurns        int     `yaml:"contextTurns,omitempty"`
	DriftSwitchMinHits  int     `yaml:"driftSwitchMinHits,omitempty"`
	ResetOnNoMatch      *bool   `yaml:"resetOnNoMatch,omitempty"`
	ClassifierThreshold float64 `yaml:"classifierThreshold,omitempty"`
	RedisURL            string  `yaml:"redisUrl,omitempty"`
	KeyPrefix           string  `yaml:"keyPrefix,omitempty"`
	DBPath              string  `yaml:"dbPath,omitempty"` // defaults to <base>/data/mrbooky.db
	Scope               string  `yaml:"scope,omitempty"`  // channel sessions: "per-sender" | "global"
}

// ResetOnNoMatchEnabled reports the effective reset-on-no-match policy.
func (s SessionConfig) ResetOnNoMatchEnabled() bool {
	return s.ResetOnNoMatch == nil || *s.ResetOnNoMatch
}

// ToolsConfig points at the answer backends.
type ToolsConfig struct {
	TimeoutSec  int    `yaml:"timeoutSec,omitempty"`
	FareURL     string `yaml:"fareUrl,omitempty"`
	PharmacyURL string `yaml:"pharmacyUrl,omitempty"`
	HospitalURL string `yaml:"hospitalUrl,omitempty"`
	InfoURL     string `yaml:"infoUrl,omitempty"`
	DefaultArea string `yaml:"defaultArea,omitempty"`
}

// BookingConfig configures reservation hand-off to the dispatch system.
type BookingConfig struct {
	CreateURL     string `yaml:"createUrl,omitempty"`
	LinkURL       string `yaml:"linkUrl,omitempty"`
	URLKey        string `yaml:"urlKey,omitempty"`
	Agent         string `yaml:"agent,omitempty"`
	APIKey        string `yaml:"apiKey,omitempty"`
	NotifyWebhook string `yaml:"notifyWebhook,omitempty"`
}

// BrandConfig overrides the contact details shown to users.
type BrandConfig struct {
	Name       string `yaml:"name,omitempty"`
	Phone      string `yaml:"phone,omitempty"`
	SiteURL    string `yaml:"siteUrl,omitempty"`
	BookingURL string `yaml:"bookingUrl,omitempty"`
	AppURL     string `yaml:"appUrl,omitempty"`
	Email      string `yaml:"email,omitempty"`
}

// LLMConfig selects the model used for free-form answers.
type LLMConfig struct {
	Provider  string   `yaml:"provider,omitempty"` // "none" | "ollama" | "openai"
	Endpoint  string   `yaml:"endpoint,omitempty"`
	APIKey    string   `yaml:"apiKey,omitempty"`
	Model     string   `yaml:"model,omitempty"`
	Fallbacks []string `yaml:"fallbacks,omitempty"` // extra models tried in order
}

// ChannelsConfig defines channel-specific configurations.
type ChannelsConfig struct {
	IRC *IRCConfig `yaml:"irc,omitempty"`
}

// IRCConfig defines the back-office IRC connection.
type IRCConfig struct {
	Server          string   `yaml:"server"`
	Port            int      `yaml:"port,omitempty"`
	Nick            string   `yaml:"nick"`
	Password        string   `yaml:"password,omitempty"`
	Channels        []string `yaml:"channels"`
	DispatchChannel string   `yaml:"dispatchChannel,omitempty"` // where booking notices go; defaults to the first channel
	UseTLS          bool     `yaml:"useTLS,omitempty"`
	SASL            bool     `yaml:"sasl,omitempty"`
	Chat            bool     `yaml:"chat,omitempty"` // let dispatchers talk to the bot
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleLevel string `yaml:"consoleLevel,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// ProviderError is returned when an LLM provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status; 0 for transport failures
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages LLM provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("llama3", "ollama") means "llama3" resolves to the "ollama" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider for model %q", model)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig registers the provider named in cfg. With provider
// "none" the registry stays empty and callers skip the LLM path.
func NewRegistryFromConfig(cfg config.LLMConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ollama":
		if cfg.Model != "" {
			reg.Register("ollama", NewOllamaAPIClient(cfg.Endpoint, cfg.Model))
			reg.SetFallback("ollama")
			for _, alias := range []string{"llama", "llama3", "mistral", "qwen"} {
				reg.Alias(alias, "ollama")
			}
		}
	case "openai":
		if cfg.Model != "" && cfg.APIKey != "" {
			reg.Register("openai", NewOpenAIClient(cfg.Endpoint, cfg.APIKey, cfg.Model))
			reg.SetFallback("openai")
			for _, alias := range []string{"gpt", "gpt-4o", "gpt-4o-mini"} {
				reg.Alias(alias, "openai")
			}
		}
	}
	return reg
}

// ClientFromConfig returns a failover client over reg for the configured
// model and fallbacks, or nil when reg has no providers.
func ClientFromConfig(reg *Registry, cfg config.LLMConfig, log *logging.Logger) Client {
	if len(reg.List()) == 0 {
		return nil
	}
	primary := cfg.Model
	if primary == "" {
		primary = cfg.Provider
	}
	return NewFailoverClient(reg, primary, cfg.Fallbacks, log)
}

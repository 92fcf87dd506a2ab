package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/soyeahso/mrbooky/internal/logging"
)

// FailoverClient resolves a primary model through the registry and falls back
// through the list on retryable errors (auth, rate limit, 5xx, transport).
// It satisfies Client so callers need not know failover is in play.
type FailoverClient struct {
	registry  *Registry
	primary   string
	fallbacks []string
	log       *logging.Logger
}

// NewFailoverClient creates a client that tries primary first.
func NewFailoverClient(registry *Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	return &FailoverClient{
		registry:  registry,
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("llm.failover"),
	}
}

// Name reports the primary model reference.
func (f *FailoverClient) Name() string { return "failover:" + f.primary }

func (f *FailoverClient) models() []string {
	out := make([]string, 0, 1+len(f.fallbacks))
	out = append(out, f.primary)
	return append(out, f.fallbacks...)
}

// Complete tries each model in turn, stopping at the first success or the
// first non-retryable error.
func (f *FailoverClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for _, model := range f.models() {
		client, err := f.registry.Resolve(model)
		if err != nil {
			f.log.Debug().Str("model", model).Err(err).Msg("no provider for model, skipping")
			lastErr = err
			continue
		}

		req.Model = model
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		f.log.Warn().Str("model", model).Err(err).Msg("retryable error, trying next provider")
	}
	return nil, lastErr
}

// Stream is Complete's streaming counterpart. Failover only applies to
// errors raised before the first event.
func (f *FailoverClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	var lastErr error
	for _, model := range f.models() {
		client, err := f.registry.Resolve(model)
		if err != nil {
			lastErr = err
			continue
		}

		req.Model = model
		ch, err := client.Stream(ctx, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		f.log.Warn().Str("model", model).Err(err).Msg("retryable stream error, trying next provider")
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 0, 401, 403, 408, 429, 500, 502, 503, 504, 529:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout")
}

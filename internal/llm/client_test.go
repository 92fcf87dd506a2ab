package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

func collect(t *testing.T, ch <-chan StreamEvent) (string, *CompletionResponse) {
	t.Helper()
	var text string
	var final *CompletionResponse
	for evt := range ch {
		switch evt.Type {
		case "delta":
			text += evt.Content
		case "done":
			final = evt.Response
		case "error":
			t.Fatalf("stream error: %s", evt.Error)
		}
	}
	return text, final
}

// --- Registry ---

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("ollama", &MockClient{ProviderName: "ollama"})
	reg.Register("openai", &MockClient{ProviderName: "openai"})
	reg.Alias("llama3", "ollama")

	c, err := reg.Resolve("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = reg.Resolve("llama3")
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Name())

	_, err = reg.Resolve("unknown")
	assert.Error(t, err)

	reg.SetFallback("ollama")
	c, err = reg.Resolve("unknown")
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.Name())

	assert.Equal(t, []string{"ollama", "openai"}, reg.List())
}

func TestRegistryFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LLMConfig
		want []string
	}{
		{"none", config.LLMConfig{Provider: "none"}, []string{}},
		{"ollama", config.LLMConfig{Provider: "ollama", Model: "llama3"}, []string{"ollama"}},
		{"ollama without model", config.LLMConfig{Provider: "ollama"}, []string{}},
		{"openai", config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}, []string{"openai"}},
		{"openai without key", config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistryFromConfig(tt.cfg, silentLog())
			assert.Equal(t, tt.want, reg.List())
		})
	}
}

func TestClientFromConfig(t *testing.T) {
	empty := NewRegistry(silentLog())
	assert.Nil(t, ClientFromConfig(empty, config.LLMConfig{}, silentLog()))

	reg := NewRegistryFromConfig(config.LLMConfig{Provider: "ollama", Model: "llama3"}, silentLog())
	c := ClientFromConfig(reg, config.LLMConfig{Provider: "ollama", Model: "llama3"}, silentLog())
	require.NotNil(t, c)
	assert.Equal(t, "failover:llama3", c.Name())
}

// --- Errors ---

func TestProviderErrorFormat(t *testing.T) {
	assert.Equal(t, "openai: 429 slow down", (&ProviderError{Provider: "openai", Code: 429, Message: "slow down"}).Error())
	assert.Equal(t, "ollama: connection error", (&ProviderError{Provider: "ollama", Message: "connection error"}).Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&ProviderError{Code: 429}, true},
		{&ProviderError{Code: 503}, true},
		{&ProviderError{Code: 0, Message: "connection refused"}, true},
		{&ProviderError{Code: 400}, false},
		{fmt.Errorf("wrapped: %w", &ProviderError{Code: 401}), true},
		{errors.New("server overloaded"), true},
		{errors.New("request timeout"), true},
		{errors.New("bad prompt"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryable(tt.err), "%v", tt.err)
	}
}

// --- Failover ---

func TestFailoverPrimarySucceeds(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("primary", &MockClient{ProviderName: "primary"})
	reg.Register("backup", &MockClient{
		ProviderName: "backup",
		CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
			t.Fatal("backup must not be called")
			return nil, nil
		},
	})

	fc := NewFailoverClient(reg, "primary", []string{"backup"}, silentLog())
	resp, err := fc.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp.Content)
}

func TestFailoverTriesFallback(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("primary", &MockClient{
		ProviderName: "primary",
		CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
			return nil, &ProviderError{Provider: "primary", Code: 503, Message: "down"}
		},
	})
	var gotModel string
	reg.Register("backup", &MockClient{
		ProviderName: "backup",
		CompleteFunc: func(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
			gotModel = req.Model
			return &CompletionResponse{Content: "from backup"}, nil
		},
	})

	fc := NewFailoverClient(reg, "primary", []string{"missing", "backup"}, silentLog())
	resp, err := fc.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from backup", resp.Content)
	assert.Equal(t, "backup", gotModel)
}

func TestFailoverNonRetryableStops(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("primary", &MockClient{
		ProviderName: "primary",
		CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
			return nil, &ProviderError{Provider: "primary", Code: 400, Message: "bad request"}
		},
	})
	called := false
	reg.Register("backup", &MockClient{
		ProviderName: "backup",
		CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
			called = true
			return &CompletionResponse{}, nil
		},
	})

	fc := NewFailoverClient(reg, "primary", []string{"backup"}, silentLog())
	_, err := fc.Complete(context.Background(), CompletionRequest{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 400, pe.Code)
	assert.False(t, called)
}

func TestFailoverStream(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("primary", &MockClient{
		ProviderName: "primary",
		StreamFunc: func(context.Context, CompletionRequest) (<-chan StreamEvent, error) {
			return nil, &ProviderError{Provider: "primary", Code: 429}
		},
	})
	reg.Register("backup", &MockClient{ProviderName: "backup"})

	fc := NewFailoverClient(reg, "primary", []string{"backup"}, silentLog())
	ch, err := fc.Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	text, final := collect(t, ch)
	assert.Equal(t, "mock ", text)
	require.NotNil(t, final)
	assert.Equal(t, "mock stream response", final.Content)
}

// --- Ollama ---

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, RoleSystem, body.Messages[0].Role)
		assert.Equal(t, "Πού είναι το Ρίο;", body.Messages[1].Content)
		require.NotNil(t, body.Options)
		assert.Equal(t, 600, body.Options.NumPredict)

		_, _ = io.WriteString(w, `{"model":"llama3","message":{"role":"assistant","content":"Δίπλα στη γέφυρα."},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":5}`)
	}))
	defer srv.Close()

	c := NewOllamaAPIClient(srv.URL+"/", "llama3")
	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:      "Είσαι βοηθός.",
		Messages:    []Message{{Role: RoleUser, Content: "Πού είναι το Ρίο;"}},
		MaxTokens:   600,
		Temperature: Temperature(0.7),
	})
	require.NoError(t, err)
	assert.Equal(t, "Δίπλα στη γέφυρα.", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 5}, resp.Usage)
}

func TestOllamaStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"Καλη"},"done":false}`+"\n")
		_, _ = io.WriteString(w, "\n")
		_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"μέρα"},"done":true,"done_reason":"stop","eval_count":2}`+"\n")
	}))
	defer srv.Close()

	ch, err := NewOllamaAPIClient(srv.URL, "llama3").Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	text, final := collect(t, ch)
	assert.Equal(t, "Καλημέρα", text)
	require.NotNil(t, final)
	assert.Equal(t, "Καλημέρα", final.Content)
	assert.Equal(t, 2, final.Usage.OutputTokens)
}

func TestOllamaHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaAPIClient(srv.URL, "nope").Complete(context.Background(), CompletionRequest{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 404, pe.Code)
	assert.Contains(t, pe.Message, "model not found")
}

// --- OpenAI ---

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Equal(t, 100, body.MaxTokens)

		_, _ = io.WriteString(w, `{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"Γεια!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":2}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "sk-test", "gpt-4o-mini")
	resp, err := c.Complete(context.Background(), CompletionRequest{
		Model:     "openai",
		Messages:  []Message{{Role: RoleUser, Content: "Γεια"}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Γεια!", resp.Content)
	assert.Equal(t, Usage{InputTokens: 7, OutputTokens: 2}, resp.Usage)
}

func TestOpenAIEndpointNormalization(t *testing.T) {
	assert.Equal(t, defaultOpenAIURL, NewOpenAIClient("", "k", "m").baseURL)
	assert.Equal(t, "http://llm:8080/v1", NewOpenAIClient("http://llm:8080/", "k", "m").baseURL)
	assert.Equal(t, "http://llm:8080/v1", NewOpenAIClient("http://llm:8080/v1", "k", "m").baseURL)
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "k", "m").Complete(context.Background(), CompletionRequest{})
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "k", "m").Complete(context.Background(), CompletionRequest{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 429, pe.Code)
	assert.Equal(t, "Too Many Requests", pe.Message)
	assert.True(t, isRetryable(err))
}

func TestOpenAIStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keep-alive\n\n")
		_, _ = io.WriteString(w, `data: {"model":"gpt-4o-mini","choices":[{"delta":{"content":"Καλό "}}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"ταξίδι"},"finish_reason":"stop"}]}`+"\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ch, err := NewOpenAIClient(srv.URL, "k", "gpt-4o-mini").Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	text, final := collect(t, ch)
	assert.Equal(t, "Καλό ταξίδι", text)
	require.NotNil(t, final)
	assert.Equal(t, "stop", final.StopReason)
	assert.Equal(t, "gpt-4o-mini", final.Model)
}

func TestTransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOllamaAPIClient(url, "llama3").Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.True(t, isRetryable(err))
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIClient creates a client. endpoint may be empty (api.openai.com),
// a bare host ("http://llm:8080") or already end in "/v1".
func NewOpenAIClient(endpoint, apiKey, model string) *OpenAIClient {
	base := strings.TrimSuffix(endpoint, "/")
	switch {
	case base == "":
		base = defaultOpenAIURL
	case !strings.HasSuffix(base, "/v1"):
		base += "/v1"
	}
	return &OpenAIClient{
		baseURL: base,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) newRequest(ctx context.Context, req CompletionRequest, stream bool) (*http.Request, error) {
	model := c.model
	if req.Model != "" && req.Model != c.Name() {
		model = req.Model
	}
	body := openAIChatRequest{
		Model:       model,
		Messages:    chatMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

// Complete sends a non-streaming chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, c.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, providerErrorFrom(c.Name(), resp)
	}

	var result openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: c.Name(), Message: "response has no choices"}
	}
	choice := result.Choices[0]
	return &CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		Model:      result.Model,
		Usage:      Usage{InputTokens: result.Usage.PromptTokens, OutputTokens: result.Usage.CompletionTokens},
		Duration:   time.Since(start),
	}, nil
}

// Stream sends a streaming chat completion and relays the SSE deltas.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, c.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, providerErrorFrom(c.Name(), resp)
	}

	ch := make(chan StreamEvent, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		start := time.Now()
		var full strings.Builder
		final := CompletionResponse{Model: c.model}

		sse := newServerSentEventScanner(resp.Body)
		for sse.Scan() {
			data := sse.Data()
			if data == "[DONE]" {
				break
			}
			var chunk openAIStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Model != "" {
				final.Model = chunk.Model
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					full.WriteString(choice.Delta.Content)
					ch <- StreamEvent{Type: "delta", Content: choice.Delta.Content}
				}
				if choice.FinishReason != "" {
					final.StopReason = choice.FinishReason
				}
			}
		}
		final.Content = full.String()
		final.Duration = time.Since(start)
		ch <- StreamEvent{Type: "done", Response: &final}
	}()
	return ch, nil
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

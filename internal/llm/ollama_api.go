package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaAPIClient talks to the Ollama /api/chat endpoint.
type OllamaAPIClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAPIClient creates a new Ollama API client.
// baseURL should be like "http://localhost:11434".
func NewOllamaAPIClient(baseURL, model string) *OllamaAPIClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaAPIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (o *OllamaAPIClient) Name() string { return "ollama" }

func (o *OllamaAPIClient) modelFor(req CompletionRequest) string {
	if req.Model != "" && req.Model != o.Name() {
		return req.Model
	}
	return o.model
}

func (o *OllamaAPIClient) newRequest(ctx context.Context, req CompletionRequest, stream bool) (*http.Request, error) {
	body := ollamaChatRequest{
		Model:    o.modelFor(req),
		Messages: chatMessages(req),
		Stream:   stream,
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = &ollamaOptions{Temperature: req.Temperature}
		if req.MaxTokens > 0 {
			body.Options.NumPredict = req.MaxTokens
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// Complete sends a non-streaming chat request.
func (o *OllamaAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	httpReq, err := o.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerErrorFrom(o.Name(), resp)
	}

	var result ollamaChatChunk
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &CompletionResponse{
		Content:    result.Message.Content,
		StopReason: result.DoneReason,
		Model:      result.Model,
		Usage:      Usage{InputTokens: result.PromptEvalCount, OutputTokens: result.EvalCount},
		Duration:   time.Since(start),
	}, nil
}

// Stream sends a streaming chat request. Ollama streams newline-delimited JSON.
func (o *OllamaAPIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	httpReq, err := o.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, o.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, providerErrorFrom(o.Name(), resp)
	}

	ch := make(chan StreamEvent, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		start := time.Now()
		var full strings.Builder
		final := CompletionResponse{Model: o.modelFor(req)}

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if chunk.Error != "" {
				ch <- StreamEvent{Type: "error", Error: chunk.Error}
				return
			}
			if chunk.Message.Content != "" {
				full.WriteString(chunk.Message.Content)
				ch <- StreamEvent{Type: "delta", Content: chunk.Message.Content}
			}
			if chunk.Done {
				final.StopReason = chunk.DoneReason
				final.Usage = Usage{InputTokens: chunk.PromptEvalCount, OutputTokens: chunk.EvalCount}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- StreamEvent{Type: "error", Error: err.Error()}
			return
		}
		final.Content = full.String()
		final.Duration = time.Since(start)
		ch <- StreamEvent{Type: "done", Response: &final}
	}()
	return ch, nil
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaChatChunk struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error"`
}

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/soyeahso/mrbooky/internal/version"
)

// restClient talks JSON to one backend base URL.
type restClient struct {
	baseURL string
	client  *http.Client
}

func newRESTClient(baseURL string, hc *http.Client) *restClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &restClient{baseURL: strings.TrimSuffix(baseURL, "/"), client: hc}
}

func (c *restClient) configured() bool { return c != nil && c.baseURL != "" }

func (c *restClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *restClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *restClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// fulfillmentText digs the first text out of a webhook style reply:
// fulfillment_response.messages[0].text.text[0], or fulfillmentText.
func fulfillmentText(raw map[string]any) string {
	if s, ok := raw["fulfillmentText"].(string); ok && s != "" {
		return s
	}
	fr, _ := raw["fulfillment_response"].(map[string]any)
	msgs, _ := fr["messages"].([]any)
	if len(msgs) == 0 {
		return ""
	}
	first, _ := msgs[0].(map[string]any)
	text, _ := first["text"].(map[string]any)
	lines, _ := text["text"].([]any)
	if len(lines) == 0 {
		return ""
	}
	s, _ := lines[0].(string)
	return s
}

// firstString returns the first non-empty string field among keys.
func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

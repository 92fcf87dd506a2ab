package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/gateway"
	"github.com/soyeahso/mrbooky/internal/version"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send messages to a running gateway",
	}

	cmd.AddCommand(newMessageSendCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var (
		url       string
		apiKey    string
		sessionID string
		userID    string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message to the gateway and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}
			if url == "" {
				url = gatewayURL(cfg.Gateway)
			}
			if apiKey == "" && len(cfg.Gateway.APIKeys) > 0 {
				apiKey = cfg.Gateway.APIKeys[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			resp, err := sendMessage(ctx, http.DefaultClient, url, apiKey, gateway.ChatRequest{
				Message:   strings.Join(args, " "),
				SessionID: sessionID,
				UserID:    userID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Reply)
			if resp.MapURL != "" {
				fmt.Fprintln(out, "🗺", resp.MapURL)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[session=%s]\n", resp.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "gateway base URL (default from config)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "gateway API key (default: first configured key)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().StringVar(&userID, "user", "", "user id, used when no session id is given")

	return cmd
}

// gatewayURL is the local address a running gateway listens on.
func gatewayURL(g config.GatewayConfig) string {
	host := "127.0.0.1"
	if g.Bind == "custom" && g.CustomBindHost != "" && g.CustomBindHost != "0.0.0.0" {
		host = g.CustomBindHost
	}
	return fmt.Sprintf("http://%s:%d", host, g.Port)
}

// sendMessage posts one chat message to the gateway at baseURL.
func sendMessage(ctx context.Context, hc *http.Client, baseURL, apiKey string, req gateway.ChatRequest) (*gateway.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if apiKey != "" {
		httpReq.Header.Set("X-API-Key", apiKey)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("contacting gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, e.Error)
	}

	var out gateway.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding gateway reply: %w", err)
	}
	return &out, nil
}

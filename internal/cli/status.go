package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/gateway"
	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary and gateway health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mrbooky %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}
			printStatus(cmd.Context(), out, cfg)
			return nil
		},
	}

	return cmd
}

func printStatus(ctx context.Context, out io.Writer, cfg config.Config) {
	g := cfg.Gateway
	auth := "open"
	if len(g.APIKeys) > 0 {
		auth = fmt.Sprintf("%d api key(s)", len(g.APIKeys))
	}
	fmt.Fprintf(out, "Gateway: port=%d bind=%s auth=%s rate=%d/%ds\n",
		g.Port, g.Bind, auth, g.RateLimit.MaxRequests, g.RateLimit.WindowSec)

	s := cfg.Session
	fmt.Fprintf(out, "Session: store=%s ttl=%s budget=%d resetOnNoMatch=%v\n",
		s.Store, time.Duration(s.TTLSeconds)*time.Second, s.Budget, s.ResetOnNoMatchEnabled())

	backends := []string{}
	for name, url := range map[string]string{
		"fare": cfg.Tools.FareURL, "pharmacy": cfg.Tools.PharmacyURL,
		"hospital": cfg.Tools.HospitalURL, "info": cfg.Tools.InfoURL,
	} {
		if url != "" {
			backends = append(backends, name)
		}
	}
	sort.Strings(backends)
	if len(backends) == 0 {
		backends = append(backends, "(none, local estimates only)")
	}
	fmt.Fprintf(out, "Tools:   %s\n", strings.Join(backends, ", "))

	registry := llm.NewRegistryFromConfig(cfg.LLM, log)
	if providers := registry.List(); len(providers) > 0 {
		fmt.Fprintf(out, "LLM:     %s model=%s\n", strings.Join(providers, ", "), cfg.LLM.Model)
	} else {
		fmt.Fprintln(out, "LLM:     (disabled)")
	}

	fmt.Fprintf(out, "Booking: api=%v webhook=%v\n", cfg.Booking.CreateURL != "", cfg.Booking.NotifyWebhook != "")

	if irc := cfg.Channels.IRC; irc != nil {
		fmt.Fprintf(out, "IRC:     server=%s nick=%s channels=%s dispatch=%s chat=%v\n",
			irc.Server, irc.Nick, strings.Join(irc.Channels, ","), irc.DispatchChannel, irc.Chat)
	} else {
		fmt.Fprintln(out, "IRC:     (not configured)")
	}

	if health, err := checkGateway(ctx, gatewayURL(g)); err != nil {
		fmt.Fprintf(out, "Running: no (%v)\n", err)
	} else {
		fmt.Fprintf(out, "Running: %s\n", health.Status)
	}

	if issues := config.Validate(&cfg); len(issues) > 0 {
		fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
	}
}

// checkGateway checks the public health endpoint of a running gateway.
func checkGateway(ctx context.Context, baseURL string) (*gateway.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health returned %d", resp.StatusCode)
	}
	var h gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

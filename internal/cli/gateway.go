package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/gateway"
	"github.com/soyeahso/mrbooky/internal/store"
)

// purgeInterval is how often expired SQLite sessions are deleted.
const purgeInterval = time.Hour

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the chat gateway server",
	}

	cmd.AddCommand(newGatewayRunCmd())
	return cmd
}

func newGatewayRunCmd() *cobra.Command {
	var (
		port   int
		bind   string
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			alog, logFile, err := newAppLogger(cfg.Logging)
			if err != nil {
				return err
			}
			if logFile != nil {
				defer logFile.Close()
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, alog, appOptions{channels: true, ephemeral: memory})
			if err != nil {
				return err
			}
			defer a.Close()

			srv := gateway.New(cfg.Gateway, a.runner, alog,
				gateway.WithHooks(a.hooks),
				gateway.WithChannels(a.channels),
			)

			if st, ok := a.sessions.(*store.SQLiteSessionStore); ok {
				go purgeLoop(ctx, a, st)
			}

			if a.channels.Count() > 0 {
				a.channels.StartAll(ctx)
				defer a.channels.StopAll(context.Background())
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep sessions in memory and skip the database")

	return cmd
}

// purgeLoop deletes expired sessions until ctx is cancelled. Reads already
// ignore expired rows; this only keeps the table small.
func purgeLoop(ctx context.Context, a *app, st *store.SQLiteSessionStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.PurgeExpired(ctx)
			if err != nil {
				a.log.Warn().Err(err).Msg("purging expired sessions failed")
				continue
			}
			if n > 0 {
				a.log.Info().Int64("purged", n).Msg("expired sessions purged")
			}
		}
	}
}

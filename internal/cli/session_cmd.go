package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/store"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and clear stored chat sessions",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionClearCmd())
	cmd.AddCommand(newSessionPurgeCmd())
	return cmd
}

// openApp builds a quiet, channel-less engine over the configured store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		cfg.Logging.Level = "warn"
		cfg.Logging.ConsoleLevel = ""
	}
	cfg.Logging.File = ""
	alog, _, err := newAppLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, alog, appOptions{})
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.runner.Lifecycle().Peek(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("session %q not found", args[0])
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(sess)
		},
	}
}

func newSessionClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.runner.ClearSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", args[0])
			return nil
		},
	}
}

// sqliteSessions returns the SQLite session store, the only backend that
// can enumerate and purge.
func (a *app) sqliteSessions() (*store.SQLiteSessionStore, error) {
	st, ok := a.sessions.(*store.SQLiteSessionStore)
	if !ok {
		return nil, errors.New("listing and purging need the sqlite session store")
	}
	return st, nil
}

func newSessionListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently active sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.sqliteSessions()
			if err != nil {
				return err
			}
			sums, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sums) == 0 {
				fmt.Fprintln(out, "no sessions")
				return nil
			}
			for _, s := range sums {
				fmt.Fprintf(out, "%-32s %-16s %s\n", s.ID, s.Intent.Short(), s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to show")
	return cmd
}

func newSessionPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions older than the configured TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.sqliteSessions()
			if err != nil {
				return err
			}
			n, err := st.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired session(s)\n", n)
			return nil
		},
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/agent"
)

// chatEngine is the part of the runner the REPL drives.
type chatEngine interface {
	Run(ctx context.Context, sessionID, text string) (*agent.RunResult, error)
	ClearSession(ctx context.Context, sessionID string) error
}

func newChatCmd() *cobra.Command {
	var (
		sessionID string
		memory    bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Mr Booky in the terminal",
		Long:  "Start an interactive chat against an in-process engine. Type /reset to clear the session and /quit to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Keep the console readable unless asked otherwise.
			if logLevel == "" {
				cfg.Logging.Level = "warn"
				cfg.Logging.ConsoleLevel = ""
			}
			alog, logFile, err := newAppLogger(cfg.Logging)
			if err != nil {
				return err
			}
			if logFile != nil {
				defer logFile.Close()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, alog, appOptions{ephemeral: memory})
			if err != nil {
				return err
			}
			defer a.Close()

			return runREPL(ctx, a.runner, cmd.InOrStdin(), cmd.OutOrStdout(), sessionID, verbose)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "cli", "session id to chat in")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep the session in memory only")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the intent decision after each reply")

	return cmd
}

// runREPL reads one message per line until EOF, /quit or ctx ends.
func runREPL(ctx context.Context, engine chatEngine, in io.Reader, out io.Writer, sessionID string, verbose bool) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "Mr Booky (session %s). /reset clears, /quit exits.\n", sessionID)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := engine.ClearSession(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, "(session cleared)")
			continue
		}

		res, err := engine.Run(ctx, sessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Reply)
		if res.MapURL != "" {
			fmt.Fprintln(out, "🗺", res.MapURL)
		}
		if verbose {
			fmt.Fprintf(out, "  [%s → %s reason=%s action=%s]\n",
				res.Previous.Short(), res.Intent.Short(), res.Reason, res.Action)
		}
	}
}

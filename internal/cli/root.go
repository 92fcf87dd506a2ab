package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mrbooky",
		Short: "Mr Booky, the Taxi Express Patras chat assistant",
		Long:  "Mr Booky answers fare, pharmacy, hospital and tour questions in Greek and takes taxi bookings over a JSON/WebSocket gateway and the dispatch IRC room.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.mrbooky/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGatewayCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newBookingsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

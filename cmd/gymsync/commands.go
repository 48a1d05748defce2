package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/five82/gymsync/internal/app"
)

// runners are the entry points the commands dispatch to.
type runners struct {
	console func(ctx context.Context, opts app.Options) error
	watch   func(ctx context.Context, opts app.Options, customerID string, out io.Writer) error
}

// newRootCmd builds the gymsync command tree. The root command runs the
// console; watch runs one customer headless.
func newRootCmd(r runners) *cobra.Command {
	var opts app.Options

	rootCmd := &cobra.Command{
		Use:   "gymsync",
		Short: "Live terminal console for the gym management backend",
		Long: `gymsync shows customers, contracts and payments and keeps them current as
the backend publishes changes. Configuration is read from
~/.config/gymsync/config.toml unless --config is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.console(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file path (default ~/.config/gymsync/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "preferences file path (default ~/.config/gymsync/prefs.toml)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.BoolVar(&opts.Strict, "strict", false, "panic on controller misuse instead of returning an error")

	rootCmd.AddCommand(newWatchCmd(r, &opts))
	return rootCmd
}

func newWatchCmd(r runners, opts *app.Options) *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every state change of one customer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if customerID == "" {
				return fmt.Errorf("--customer is required")
			}
			return r.watch(cmd.Context(), *opts, customerID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id to watch")
	return cmd
}

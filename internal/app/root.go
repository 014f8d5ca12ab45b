package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the aqualess command
func NewRootCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "aqualess [flags] [file...]",
		Short: "A less-like pager that keeps reading while you search",
		Long: "aqualess shows each file, piped standard input and command output in its\n" +
			"own window. Text that is still arriving can be searched and scrolled.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Run(ctx, opts, args, os.Stdin)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "configuration file (default ~/.config/aqualess/config.toml)")
	flags.BoolVarP(&opts.Follow, "follow", "f", false, "keep reading files as they grow")
	flags.StringArrayVarP(&opts.Exec, "exec", "e", nil, "run a shell command and page its output (repeatable)")
	flags.StringVarP(&opts.Title, "title", "t", "stdin", "window title for piped input")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	return cmd
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

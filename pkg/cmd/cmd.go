package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/looptrace/internal/settings"
	"github.com/maxgio92/looptrace/pkg/cmd/analyze"
	"github.com/maxgio92/looptrace/pkg/cmd/simulate"
)

const logLevelInfo = "info"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   settings.CmdName,
		Short: fmt.Sprintf("%s is a main loop hang and jank tracer", settings.CmdName),
		Long: fmt.Sprintf(`
%s records the function enter and exit events of an event loop thread in a lock-free ring buffer,
and reconstructs the call stacks of slow dispatches to find the functions responsible for hangs and dropped frames.
`, settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: o.setLogLevel,
	}
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", logLevelInfo, "Log level (trace, debug, info, warn, error, fatal, panic)")

	cmd.AddCommand(simulate.NewCommand(simulate.NewOptions(simulate.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(analyze.NewCommand(analyze.NewOptions(analyze.WithCommonOptions(o.CommonOptions))))

	return cmd
}

func (o *Options) setLogLevel(_ *cobra.Command, _ []string) error {
	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel)

	return nil
}

// Execute runs the root command until it completes or a termination signal arrives.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := NewOptions(
		WithContext(ctx),
		WithLogger(logger),
	)

	if err := NewCommand(opts).Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestNewCommand(t *testing.T) {
	logger := log.New(log.ConsoleWriter{Out: os.Stderr})
	ctx := context.Background()

	tests := []struct {
		name     string
		options  *Options
		validate func(*testing.T, *cobra.Command)
	}{
		{
			name: "default command creation",
			options: NewOptions(
				WithContext(ctx),
				WithLogger(logger),
			),
			validate: func(t *testing.T, cmd *cobra.Command) {
				require.Equal(t, "looptrace", cmd.Name())
				require.Contains(t, cmd.Short, "main loop hang and jank tracer")
				require.True(t, cmd.HasSubCommands())
				require.True(t, cmd.DisableAutoGenTag)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(tt.options)
			require.NotNil(t, cmd)

			if tt.validate != nil {
				tt.validate(t, cmd)
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	opts := NewOptions(WithContext(context.Background()), WithLogger(log.New(log.NewTestWriter(t))))
	cmd := NewCommand(opts)

	flag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	require.Equal(t, "string", flag.Value.Type())
	require.Equal(t, "info", flag.DefValue)
	require.Contains(t, flag.Usage, "Log level")
}

func TestCommandSubcommands(t *testing.T) {
	opts := NewOptions(WithContext(context.Background()), WithLogger(log.New(log.NewTestWriter(t))))
	cmd := NewCommand(opts)

	subcommands := make(map[string]*cobra.Command)
	for _, subCmd := range cmd.Commands() {
		subcommands[subCmd.Name()] = subCmd
	}
	require.Contains(t, subcommands, "simulate")
	require.Contains(t, subcommands, "analyze")
}

func TestCommandHelp(t *testing.T) {
	opts := NewOptions(WithContext(context.Background()), WithLogger(log.New(log.NewTestWriter(t))))
	cmd := NewCommand(opts)

	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	helpOutput := output.String()
	require.Contains(t, helpOutput, "looptrace")
	require.Contains(t, helpOutput, "Available Commands:")
	require.Contains(t, helpOutput, "simulate")
	require.Contains(t, helpOutput, "analyze")
}

func TestCommandInvalidFlag(t *testing.T) {
	opts := NewOptions(WithContext(context.Background()), WithLogger(log.New(log.NewTestWriter(t))))
	cmd := NewCommand(opts)

	var output bytes.Buffer
	cmd.SetErr(&output)
	cmd.SetArgs([]string{"--invalid-flag"})

	require.Error(t, cmd.Execute())
	require.Contains(t, output.String(), "unknown flag")
}

func TestCommandLogLevelFlag(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		wantErr  bool
		validate func(*testing.T, *Options)
	}{
		{
			name:     "debug level",
			logLevel: "debug",
			validate: func(t *testing.T, o *Options) {
				require.Equal(t, log.DebugLevel, o.Logger.GetLevel())
			},
		},
		{
			name:     "warn level",
			logLevel: "warn",
			validate: func(t *testing.T, o *Options) {
				require.Equal(t, log.WarnLevel, o.Logger.GetLevel())
			},
		},
		{
			name:     "invalid level",
			logLevel: "invalid",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions(WithContext(context.Background()), WithLogger(log.New(log.NewTestWriter(t))))
			cmd := NewCommand(opts)

			var output bytes.Buffer
			cmd.SetOut(&output)
			cmd.SetErr(&output)
			// The dump does not exist: analyze fails after the level is applied.
			cmd.SetArgs([]string{"--log-level", tt.logLevel, "analyze", "--input", "/nonexistent/looptrace.events"})

			err := cmd.Execute()
			require.Error(t, err)
			if tt.wantErr {
				require.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NotContains(t, err.Error(), "invalid log level")
			tt.validate(t, opts)
		})
	}
}

func TestCommandExecutionWithoutSubcommand(t *testing.T) {
	opts := NewOptions(WithContext(context.Background()), WithLogger(log.New(log.NewTestWriter(t))))
	cmd := NewCommand(opts)

	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.Contains(t, output.String(), "Available Commands:")
}

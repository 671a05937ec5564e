package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/logging"
)

const AppName = "pgm-analytics"

type rootFlags struct {
	enableOtel  bool
	debugMode   bool
	logFilePath string
	configPath  string
	envFiles    []string
	logFile     io.Closer

	otelShutdown func(context.Context) error
}

func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   AppName,
		Short: "pgm-analytics - usage analytics for PagerMaid bots",
		Long:  "pgm-analytics sends PagerMaid usage events and profile updates to a Mixpanel-compatible ingestion API",
		Example: `  pgm-analytics track 42 start command=start
  pgm-analytics people 42 '$first_name=Maid'
  pgm-analytics replay --bot-id 42 --first-name Maid help ping`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging before anything else
			logFile, err := logging.Setup(logging.Options{
				Debug:    flags.debugMode,
				FilePath: flags.logFilePath,
				Fallback: cmd.ErrOrStderr(),
			})
			if err != nil {
				slog.Warn("Failed to open debug log file, logging to stderr", "error", err)
			}
			flags.logFile = logFile

			if flags.enableOtel {
				shutdown, err := initOTelSDK(cmd.Context())
				if err != nil {
					slog.Warn("Failed to initialize OpenTelemetry SDK", "error", err)
				} else {
					flags.otelShutdown = shutdown
					slog.Debug("OpenTelemetry SDK initialized successfully")
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.otelShutdown != nil {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
				defer cancel()
				if err := flags.otelShutdown(ctx); err != nil {
					slog.Warn("Failed to flush OpenTelemetry spans", "error", err)
				}
			}
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("Failed to close log file", "error", err)
				}
			}
			return nil
		},
		// If no subcommand is specified, show help
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.enableOtel, "otel", "o", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: ~/.pagermaid/analytics.debug.log; only used with --debug)")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to the analytics config file (default: ~/.config/pagermaid/analytics.yaml)")
	cmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-from-file", nil, "Read analytics environment overrides from file; the process environment wins")

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	cmd.AddCommand(newTrackCmd(&flags))
	cmd.AddCommand(newPeopleCmd(&flags))
	cmd.AddCommand(newReplayCmd(&flags))
	cmd.AddCommand(newConfigCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	setContextRecursive(ctx, rootCmd)

	if err := rootCmd.Execute(); err != nil {
		return processErr(ctx, err, stderr, rootCmd)
	}
	return nil
}

func setContextRecursive(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)
	for _, child := range cmd.Commands() {
		setContextRecursive(ctx, child)
	}
}

func processErr(ctx context.Context, err error, stderr io.Writer, rootCmd *cobra.Command) error {
	if ctx.Err() != nil {
		return ctx.Err()
	} else if _, ok := errors.AsType[RuntimeError](err); ok {
		// Runtime errors have already been printed by the command itself
	} else {
		// Command line usage errors - show the error and usage
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr)
		if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
			_ = rootCmd.Usage()
		}
	}

	return err
}

// RuntimeError wraps runtime errors to distinguish them from usage errors
type RuntimeError struct {
	Err error
}

func (e RuntimeError) Error() string {
	return e.Err.Error()
}

func (e RuntimeError) Unwrap() error {
	return e.Err
}

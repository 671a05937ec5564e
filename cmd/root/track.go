package root

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/cli"
	"github.com/pagermaid/analytics/pkg/mixpanel"
)

// errInactive is returned by commands that need an active configuration.
var errInactive = errors.New("analytics is disabled or has no token; see `pgm-analytics config show`")

func newTrackCmd(flags *rootFlags) *cobra.Command {
	var delivery deliveryFlags

	cmd := &cobra.Command{
		Use:   "track <distinct-id> <event> [key=value...]",
		Short: "Send a single event",
		Long:  "Send one event for a distinct id and wait for the ingestion request to finish. Property values that parse as JSON keep their type.",
		Example: `  pgm-analytics track 42 "Function help" command=help bot_id=42
  pgm-analytics track 42 deploy 'tags=["a","b"]' --metrics`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrackCommand(cmd, flags, &delivery, args)
		},
	}

	delivery.register(cmd)

	return cmd
}

func runTrackCommand(cmd *cobra.Command, flags *rootFlags, delivery *deliveryFlags, args []string) error {
	ctx := cmd.Context()
	out := cli.NewPrinter(cmd.OutOrStdout())

	distinctID, eventName := args[0], args[1]
	properties, err := cli.ParseProperties(args[2:])
	if err != nil {
		return err
	}

	settings, err := flags.settings(ctx)
	if err != nil {
		return err
	}
	if !settings.Active() {
		return errInactive
	}

	s, err := newSession(settings)
	if err != nil {
		return err
	}

	if err := s.client.Track(ctx, distinctID, eventName, properties); err != nil {
		s.client.Close()
		if _, ok := errors.AsType[*mixpanel.EncodingError](err); ok {
			out.Printf("Cannot send event: %v\n", err)
			return RuntimeError{Err: err}
		}
		return err
	}

	out.Println("Event dispatched")
	out.PrintField("event", eventName)
	out.PrintField("distinct_id", distinctID)
	out.PrintProperties(properties)

	if err := s.finish(cmd.OutOrStdout(), delivery.printMetrics); err != nil {
		return fmt.Errorf("event %q: %w", eventName, err)
	}
	return nil
}

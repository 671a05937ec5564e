package root

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/cli"
	"github.com/pagermaid/analytics/pkg/mixpanel"
)

type peopleFlags struct {
	deliveryFlags
	force bool
}

func newPeopleCmd(flags *rootFlags) *cobra.Command {
	var opts peopleFlags

	cmd := &cobra.Command{
		Use:     "people <distinct-id> [key=value...]",
		Short:   "Send a profile update",
		Long:    "Upsert profile properties for a distinct id and wait for the ingestion request to finish.",
		Example: `  pgm-analytics people 42 '$first_name=Maid' username=maidbot`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeopleCommand(cmd, flags, &opts, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.force, "force", false, "Send even if a profile update was already sent by this process")

	return cmd
}

func runPeopleCommand(cmd *cobra.Command, flags *rootFlags, opts *peopleFlags, args []string) error {
	ctx := cmd.Context()
	out := cli.NewPrinter(cmd.OutOrStdout())

	distinctID := args[0]
	properties, err := cli.ParseProperties(args[1:])
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

	if err := s.client.PeopleSet(ctx, distinctID, properties, opts.force); err != nil {
		s.client.Close()
		if _, ok := errors.AsType[*mixpanel.EncodingError](err); ok {
			out.Printf("Cannot send profile update: %v\n", err)
			return RuntimeError{Err: err}
		}
		return err
	}

	out.Println("Profile update dispatched")
	out.PrintField("distinct_id", distinctID)
	out.PrintProperties(properties)

	return s.finish(cmd.OutOrStdout(), opts.printMetrics)
}

package root

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/cli"
	"github.com/pagermaid/analytics/pkg/hooks"
	"github.com/pagermaid/analytics/pkg/report"
)

type replayFlags struct {
	deliveryFlags

	botID        int64
	firstName    string
	username     string
	fromID       int64
	senderChatID int64
	outgoing     bool
}

func newReplayCmd(flags *rootFlags) *cobra.Command {
	var opts replayFlags

	cmd := &cobra.Command{
		Use:   "replay <command>...",
		Short: "Replay bot commands through the analytics hooks",
		Long: `Emulate a bot host: run the startup hooks once, then the post-command hooks
for every command given, exactly as a running bot would.`,
		Example: `  pgm-analytics replay --bot-id 42 --first-name Maid help ping
  pgm-analytics replay --bot-id 42 --first-name Maid --sender-chat-id -100 --outgoing sticker`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayCommand(cmd, flags, &opts, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().Int64Var(&opts.botID, "bot-id", 0, "Id of the bot account")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "", "First name of the bot account")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username of the bot account")
	cmd.Flags().Int64Var(&opts.fromID, "sender-id", 0, "Id of the user who sent the commands")
	cmd.Flags().Int64Var(&opts.senderChatID, "sender-chat-id", 0, "Id of the chat the commands were sent on behalf of")
	cmd.Flags().BoolVar(&opts.outgoing, "outgoing", false, "Mark the commands as sent by the bot account itself")
	_ = cmd.MarkFlagRequired("bot-id")
	_ = cmd.MarkFlagRequired("first-name")

	return cmd
}

func runReplayCommand(cmd *cobra.Command, flags *rootFlags, opts *replayFlags, commands []string) error {
	ctx := cmd.Context()
	out := cli.NewPrinter(cmd.OutOrStdout())

	settings, err := flags.settings(ctx)
	if err != nil {
		return err
	}

	s, err := newSession(settings)
	if err != nil {
		return err
	}

	identity := report.Identity{
		ID:        opts.botID,
		FirstName: opts.firstName,
		Username:  opts.username,
	}
	reporter := report.New(settings, s.client, report.IdentityFunc(func(context.Context) (report.Identity, error) {
		return identity, nil
	}), slog.Default())

	registry := hooks.NewRegistry(slog.Default())
	if err := reporter.Register(registry); err != nil {
		s.client.Close()
		return err
	}

	if !reporter.Active() {
		out.Println("Analytics is inactive, hooks will not emit anything")
	}

	message := opts.message(cmd)

	if err := registry.RunStartup(ctx); err != nil {
		out.Printf("Startup hooks failed: %v\n", err)
	}
	for _, command := range commands {
		if err := registry.RunCommandPostprocess(ctx, hooks.Invocation{Command: command, Message: message}); err != nil {
			out.Printf("Hooks for %q failed: %v\n", command, err)
		}
	}

	out.Println("Replay finished")
	out.PrintField("commands", len(commands))
	out.PrintField("sender", report.SenderID(message, opts.botID))
	out.PrintField("profile_set", s.client.ProfileSet())

	return s.finish(cmd.OutOrStdout(), opts.printMetrics)
}

// message builds the triggering message. Ids left unset on the command line
// stay nil.
func (o *replayFlags) message(cmd *cobra.Command) hooks.Message {
	msg := hooks.Message{Outgoing: o.outgoing}
	if cmd.Flags().Changed("sender-id") {
		msg.FromUserID = &o.fromID
	}
	if cmd.Flags().Changed("sender-chat-id") {
		msg.SenderChatID = &o.senderChatID
	}
	return msg
}

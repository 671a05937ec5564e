package root

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/cli"
	"github.com/pagermaid/analytics/pkg/userconfig"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage analytics configuration",
		Long:  "View and manage the analytics configuration stored in ~/.config/pagermaid/analytics.yaml",
		Example: `  # Show the current configuration
  pgm-analytics config show

  # Turn analytics off
  pgm-analytics config disable`,
		GroupID: "advanced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShowCommand(cmd, flags)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current and effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShowCommand(cmd, flags)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Enable analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return updateConfig(cmd, flags, func(c *userconfig.Config) error {
				c.SetEnabled(true)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Disable analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return updateConfig(cmd, flags, func(c *userconfig.Config) error {
				c.SetEnabled(false)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-token <token>",
		Short: "Set the ingestion project token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, flags, func(c *userconfig.Config) error {
				return c.SetToken(args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-host <host>",
		Short: "Set the ingestion API host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, flags, func(c *userconfig.Config) error {
				return c.SetAPIHost(args[0])
			})
		},
	})

	return cmd
}

func runConfigShowCommand(cmd *cobra.Command, flags *rootFlags) error {
	ctx := cmd.Context()
	out := cli.NewPrinter(cmd.OutOrStdout())

	config, err := flags.loadConfig()
	if err != nil {
		return err
	}

	data, err := yaml.MarshalWithOptions(config, yaml.IndentSequence(true), yaml.UseSingleQuote(false))
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}

	out.Println("# " + flags.configFile())
	out.Printf("%s", data)

	settings, err := flags.settings(ctx)
	if err != nil {
		return err
	}

	out.Println()
	out.Println("Effective settings (environment applied):")
	out.PrintField("active", settings.Active())
	out.PrintField("enabled", settings.Enabled)
	out.PrintField("token", maskToken(settings.Token))
	out.PrintField("api_host", settings.APIHost)
	out.PrintField("timeout", settings.Timeout())
	out.PrintField("max_in_flight", settings.MaxInFlight)
	return nil
}

func updateConfig(cmd *cobra.Command, flags *rootFlags, update func(*userconfig.Config) error) error {
	out := cli.NewPrinter(cmd.OutOrStdout())

	config, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if err := update(config); err != nil {
		return err
	}
	if err := flags.saveConfig(config); err != nil {
		return err
	}

	out.Printf("Configuration saved to %s\n", flags.configFile())
	return nil
}

// maskToken keeps the last four characters of a token.
func maskToken(token string) string {
	switch {
	case token == "":
		return "(none)"
	case len(token) <= 4:
		return "****"
	default:
		return "****" + token[len(token)-4:]
	}
}

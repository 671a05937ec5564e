package root

import (
	"github.com/spf13/cobra"

	"github.com/pagermaid/analytics/pkg/cli"
	"github.com/pagermaid/analytics/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Display the version and commit hash`,
		Args:  cobra.NoArgs,
		Run:   runVersionCommand,
	}
}

func runVersionCommand(cmd *cobra.Command, _ []string) {
	out := cli.NewPrinter(cmd.OutOrStdout())
	out.Printf("%s version %s\n", AppName, version.Version)
	out.Printf("Commit: %s\n", version.Commit)
}

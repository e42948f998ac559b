package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set via ldflags:
//
//	go build -ldflags "-X github.com/Mr-Dark-debug/jsonview/internal/cli.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func versionTemplate() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jsonview %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

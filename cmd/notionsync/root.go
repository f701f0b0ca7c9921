package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for notionsync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notionsync",
		Short: "Export a Notion database to local JSON files and images",
		Long: `notionsync exports the pages of a Notion database into a local directory.

Every row becomes pages/<id>.json with its title, tags and flattened body;
pages/index.json lists every row; images referenced by the pages are
downloaded into images/. Re-running an export skips images already on disk.

Credentials are read from NOTION_API_KEY and NOTION_DB_ID (a .env file in
the current directory is loaded automatically).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/notionsync/internal/config"
)

//go:embed templates/notionsync.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new notionsync configuration file",
		Long: `Initialize creates a new .notionsync configuration file in the current directory.

The generated file includes:
- Default title and tags property names
- Commented examples for per-database overrides
- Documentation for all available options

Examples:
  # Create .notionsync in current directory
  notionsync init

  # Create config file at a specific path
  notionsync init -o myconfig.yaml

  # Force overwrite existing file
  notionsync init -f

  # Add an override entry for a database
  notionsync init -d 0123456789abcdef0123456789abcdef`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().StringP("database", "d", "",
		"Add an override entry for this database id")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	databaseID, err := cmd.Flags().GetString("database")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/notionsync.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if databaseID != "" {
		content = appendDatabaseEntry(content, databaseID)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	if databaseID != "" {
		fmt.Fprintf(out, "Added overrides for database %s\n", databaseID)
	}
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Title and tags property names")
	fmt.Fprintln(out, "  - Block types exported as text")
	fmt.Fprintln(out, "  - Per-database overrides")

	return nil
}

// appendDatabaseEntry adds an override entry under the trailing databases
// section of the template, pre-filled with the default property names.
func appendDatabaseEntry(content []byte, databaseID string) []byte {
	entry := fmt.Sprintf("  %q:\n    titleProperty: %s\n    tagsProperty: %s\n",
		databaseID, config.DefaultTitleProperty, config.DefaultTagsProperty)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}
	return append(content, entry...)
}

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/notionsync/internal/notion"
)

// Set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildInfo is what the version command prints.
type buildInfo struct {
	Version    string
	Commit     string
	Date       string
	APIVersion string
}

// readBuildInfo fills the fields not set by ldflags from the module build
// information recorded by the Go toolchain.
func readBuildInfo() buildInfo {
	info := buildInfo{
		Version:    version,
		Commit:     commit,
		Date:       date,
		APIVersion: notion.DefaultVersion,
	}

	var vcsRevision, vcsTime string
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				vcsRevision = s.Value
			case "vcs.time":
				vcsTime = s.Value
			}
		}
	}

	if info.Version == "" {
		info.Version = "(devel)"
	}
	if info.Commit == "" {
		info.Commit = shortRevision(vcsRevision)
	}
	if info.Date == "" {
		info.Date = vcsTime
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

func shortRevision(rev string) string {
	switch {
	case rev == "":
		return "unknown"
	case len(rev) > 7:
		return rev[:7]
	default:
		return rev
	}
}

// getVersion returns the version used by --version and JSON reports.
func getVersion() string {
	return readBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash and build date of notionsync,
together with the Notion API version it sends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			short, err := cmd.Flags().GetBool("short")
			if err != nil {
				return err
			}
			info := readBuildInfo()
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, info.Version)
				return nil
			}
			fmt.Fprintf(out, "notionsync version %s\n", info.Version)
			fmt.Fprintf(out, "  commit:      %s\n", info.Commit)
			fmt.Fprintf(out, "  built:       %s\n", info.Date)
			fmt.Fprintf(out, "  notion api:  %s\n", info.APIVersion)
			return nil
		},
	}
	cmd.Flags().BoolP("short", "s", false, "Print only the version number")
	return cmd
}

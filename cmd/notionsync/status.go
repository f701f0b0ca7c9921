package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/notionsync/internal/config"
	"github.com/nao1215/notionsync/internal/database"
	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/report"
)

const noFindingsMessage = "No findings"

// NewStatusCmd creates the status command.
// This command shows what previous exports recorded in the catalog.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [database-id]",
		Short: "Show recorded export runs, documents and assets",
		Long: `Status reads the catalog written by 'notionsync export'.

Without flags it prints the report of the latest run of the database.
The database id defaults to $NOTION_DB_ID.

Examples:
  # Report of the latest export
  notionsync status

  # Run history of a database
  notionsync status --list 0123456789abcdef0123456789abcdef

  # Report of a specific run
  notionsync status --run-id 5

  # Documents recorded for the database
  notionsync status --documents

  # Images that failed to download
  notionsync status --failed

  # Every database in the catalog
  notionsync status --list-databases`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List the run history of the database")
	cmd.Flags().BoolP("list-databases", "L", false,
		"List every database recorded in the catalog")
	cmd.Flags().Int64P("run-id", "i", 0,
		"Show the report of a specific run (use --list to see available IDs)")
	cmd.Flags().Bool("documents", false,
		"List the documents recorded for the database")
	cmd.Flags().Bool("failed", false,
		"List the images that failed to download")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the catalog database")
	_ = cmd.Flags().MarkHidden("db-dir") //nolint:errcheck // flag exists

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	listDatabases, err := flags.GetBool("list-databases")
	if err != nil {
		return err
	}
	listHistory, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	runID, err := flags.GetInt64("run-id")
	if err != nil {
		return err
	}
	documents, err := flags.GetBool("documents")
	if err != nil {
		return err
	}
	failed, err := flags.GetBool("failed")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	// Resolve the database id before opening the catalog so argument errors
	// do not leave a lock behind.
	var databaseID string
	if !listDatabases && runID == 0 {
		if len(args) > 0 {
			databaseID = args[0]
		} else {
			cfg := config.NewConfig()
			if err := cfg.LoadEnv(""); err != nil {
				return err
			}
			databaseID = cfg.DatabaseID
		}
		if databaseID == "" {
			return errors.New("database id is required (pass it as an argument or set NOTION_DB_ID)")
		}
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	catalog, err := database.Open(dbDir, opts)
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case listDatabases:
		return listRecordedDatabases(ctx, catalog, out)
	case runID > 0:
		summary, err := catalog.GetRunByID(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to get run %d: %w", runID, err)
		}
		if summary == nil {
			return fmt.Errorf("run with ID %d not found", runID)
		}
		return writeSummary(out, summary, jsonOutput)
	case listHistory:
		return listRunHistory(ctx, catalog, out, databaseID, jsonOutput)
	case documents:
		return listDocuments(ctx, catalog, out, databaseID, jsonOutput)
	case failed:
		return listFailedAssets(ctx, catalog, out, databaseID, jsonOutput)
	}

	summary, err := catalog.GetLatestRun(ctx, databaseID)
	if err != nil {
		return fmt.Errorf("failed to get latest run: %w", err)
	}
	if summary == nil {
		fmt.Fprintf(out, "No export runs found for %s\n", databaseID)
		fmt.Fprintln(out, "\nUse 'notionsync export' to export this database.")
		return nil
	}
	return writeSummary(out, summary, jsonOutput)
}

func writeSummary(out io.Writer, summary *model.RunSummary, jsonOutput bool) error {
	var writer report.Writer = report.NewSimpleWriter(out)
	if jsonOutput {
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	}
	_, err := writer.Write(summary)
	return err
}

// listRecordedDatabases lists every database that has runs in the catalog.
func listRecordedDatabases(ctx context.Context, catalog *database.Catalog, out io.Writer) error {
	ids, err := catalog.ListDatabases(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No exported databases found in the catalog.")
		return nil
	}

	fmt.Fprintf(out, "Exported databases (%d):\n\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  • %s\n", id)
	}
	fmt.Fprintln(out, "\nUse 'notionsync status --list <database-id>' to see the run history.")
	return nil
}

// listRunHistory lists the runs of one database, newest first.
func listRunHistory(ctx context.Context, catalog *database.Catalog, out io.Writer, databaseID string, jsonOutput bool) error {
	runs, err := catalog.GetRunHistory(ctx, databaseID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No export runs found for %s\n", databaseID)
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", databaseID, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %-8s  %s\n", "ID", "Started", "Elapsed", "Result", "Findings")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, run := range runs {
		result := "partial"
		if run.Clean {
			result = "clean"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %-8s  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			elapsedSince(run.StartedAt, run.FinishedAt),
			result,
			formatRiskSummary(run.RiskSummary),
		)
	}
	fmt.Fprintln(out, "\nUse 'notionsync status --run-id <id>' to see the report of a run.")
	return nil
}

// formatRiskSummary formats the finding counts into a short string.
func formatRiskSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary["high"]; v > 0 {
		parts = append(parts, fmt.Sprintf("H:%d", v))
	}
	if v := summary["medium"]; v > 0 {
		parts = append(parts, fmt.Sprintf("M:%d", v))
	}
	if v := summary["low"]; v > 0 {
		parts = append(parts, fmt.Sprintf("L:%d", v))
	}
	if v := summary["info"]; v > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", v))
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// elapsedSince formats a run duration.
func elapsedSince(start, end time.Time) string {
	if end.IsZero() {
		return "unfinished"
	}
	return end.Sub(start).Round(time.Second).String()
}

// documentStatus is the JSON form of a catalog document.
type documentStatus struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags"`
	Items       int       `json:"items"`
	Images      int       `json:"images"`
	Complete    bool      `json:"complete"`
	ContentHash string    `json:"content_hash"`
	Path        string    `json:"path"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// listDocuments lists the documents recorded for a database.
func listDocuments(ctx context.Context, catalog *database.Catalog, out io.Writer, databaseID string, jsonOutput bool) error {
	records, err := catalog.ListDocuments(ctx, databaseID)
	if err != nil {
		return err
	}
	if jsonOutput {
		docs := make([]documentStatus, 0, len(records))
		for _, r := range records {
			docs = append(docs, documentStatus{
				ID:          r.ID,
				Title:       r.Title,
				Tags:        r.Tags,
				Items:       r.Items,
				Images:      r.Images,
				Complete:    r.Complete,
				ContentHash: r.ContentHash,
				Path:        r.JSONPath,
				Error:       r.Error,
				ExportedAt:  r.ExportedAt,
			})
		}
		return writeJSON(out, docs)
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No documents recorded for %s\n", databaseID)
		return nil
	}

	fmt.Fprintf(out, "Documents of %s (%d):\n\n", databaseID, len(records))
	for _, r := range records {
		marker := "[+]"
		if !r.Complete || r.Error != "" {
			marker = "[!]"
		}
		fmt.Fprintf(out, "  %s %s  %s\n", marker, r.ID, r.Title)
		fmt.Fprintf(out, "      items: %d, images: %d, exported: %s\n",
			r.Items, r.Images, r.ExportedAt.Local().Format("2006-01-02 15:04:05"))
		if r.Error != "" {
			fmt.Fprintf(out, "      error: %s\n", r.Error)
		}
	}
	return nil
}

// failedAsset is the JSON form of an asset that could not be downloaded.
type failedAsset struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Source     string `json:"source"`
	Error      string `json:"error"`
}

// listFailedAssets lists the assets whose last download failed.
func listFailedAssets(ctx context.Context, catalog *database.Catalog, out io.Writer, databaseID string, jsonOutput bool) error {
	records, err := catalog.ListDocuments(ctx, databaseID)
	if err != nil {
		return err
	}

	var failed []failedAsset
	for _, doc := range records {
		assets, err := catalog.ListAssets(ctx, doc.ID, model.AssetFailed.String())
		if err != nil {
			return err
		}
		for _, a := range assets {
			failed = append(failed, failedAsset{
				DocumentID: a.DocumentID,
				Filename:   a.Filename,
				Source:     a.Source,
				Error:      a.Error,
			})
		}
	}

	if jsonOutput {
		if failed == nil {
			failed = []failedAsset{}
		}
		return writeJSON(out, failed)
	}
	if len(failed) == 0 {
		fmt.Fprintf(out, "No failed images recorded for %s\n", databaseID)
		return nil
	}

	fmt.Fprintf(out, "Failed images of %s (%d):\n\n", databaseID, len(failed))
	for _, a := range failed {
		fmt.Fprintf(out, "  %s  (page %s)\n", a.Filename, a.DocumentID)
		fmt.Fprintf(out, "      source: %s\n", a.Source)
		fmt.Fprintf(out, "      error:  %s\n", a.Error)
	}
	fmt.Fprintln(out, "\nRerun 'notionsync export' to retry the failed images.")
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/notionsync/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every document, not only the problematic ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	w.writeDocuments(&sb, summary)
	w.writeFindings(&sb, summary)
	w.writeFooter(&sb, summary)

	return io.WriteString(w.output, sb.String())
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      NOTIONSYNC EXPORT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Database:       %s\n", summary.DatabaseID)
	fmt.Fprintf(sb, "Started:        %s\n", summary.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Elapsed:        %s\n", elapsedText(summary))
	rows := fmt.Sprintf("%d", summary.Rows)
	if !summary.RowsComplete {
		rows += " (listing incomplete)"
	}
	fmt.Fprintf(sb, "Rows:           %s\n", rows)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(summary))
	sb.WriteString("\n")
}

// writeTotals writes the document, asset and severity counters.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, summary *model.RunSummary) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Documents:    %d (incomplete: %d, failed: %d)\n",
		summary.Documents, summary.IncompleteDocuments, summary.FailedDocuments)
	fmt.Fprintf(sb, "  Items:        %d\n", summary.ContentItems)
	fmt.Fprintf(sb, "  Images:       %d downloaded, %d skipped, %d failed\n",
		summary.Assets.Downloaded, summary.Assets.Skipped, summary.Assets.Failed)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  HIGH:     %d\n", summary.HighCount)
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", summary.MediumCount)
	fmt.Fprintf(sb, "  LOW:      %d\n", summary.LowCount)
	fmt.Fprintf(sb, "  INFO:     %d\n", summary.InfoCount)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n", totalFindings(summary))
	sb.WriteString("\n")
}

// writeDocuments lists documents. Without verbose only incomplete or failed
// documents are listed.
func (w *SimpleWriter) writeDocuments(sb *strings.Builder, summary *model.RunSummary) {
	docs := make([]model.DocumentSummary, 0, len(summary.DocumentSummaries))
	for _, d := range summary.DocumentSummaries {
		if w.verbose || !d.Complete || d.Error != "" || d.Assets.Failed > 0 {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 && !w.showEmpty {
		return
	}

	if w.verbose {
		writeSection(sb, "DOCUMENTS")
	} else {
		writeSection(sb, "DOCUMENTS NEEDING ATTENTION")
	}

	if len(docs) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, d := range docs {
		marker := "[+]"
		if !d.Complete || d.Error != "" || d.Assets.Failed > 0 {
			marker = "[!]"
		}
		fmt.Fprintf(sb, "  %s %s  %s\n", marker, d.ID, d.Title)
		fmt.Fprintf(sb, "      items: %d, images: %d, failed downloads: %d\n",
			d.Items, d.Images, d.Assets.Failed)
		if d.Error != "" {
			fmt.Fprintf(sb, "      error: %s\n", d.Error)
		}
	}
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Findings) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "FINDINGS")

	if len(summary.Findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, level := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow, model.SeverityInfo} {
		findings := findingsBySeverity(summary, level)
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(sb, "[%s]\n", level.String())
		for _, f := range findings {
			fmt.Fprintf(sb, "  - %s\n", f.Title)
			if f.Value != "" {
				fmt.Fprintf(sb, "    Value:    %s\n", f.Value)
			}
			if f.Location != "" {
				fmt.Fprintf(sb, "    Location: %s\n", f.Location)
			}
			if w.verbose && f.Recommendation != "" {
				fmt.Fprintf(sb, "    Fix:      %s\n", f.Recommendation)
			}
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if summary.Clean() {
		sb.WriteString("Export finished cleanly.\n")
	} else {
		sb.WriteString("Export finished with problems; rerun to retry missing content.\n")
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

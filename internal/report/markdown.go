package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/notionsync/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, alerts and mermaid charts without
// hand-written escaping.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writeDocuments(md, summary)
	w.writeFindings(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Notion Export Report")
	md.PlainText("")

	rows := strconv.Itoa(summary.Rows)
	if !summary.RowsComplete {
		rows += " (listing incomplete)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Database", "`" + summary.DatabaseID + "`"},
			{"Started", summary.StartedAt.Format(timeLayout)},
			{"Elapsed", elapsedText(summary)},
			{"Rows", rows},
			{"Status", w.statusBadge(summary)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusBadge(summary *model.RunSummary) string {
	switch {
	case summary.Error != "":
		return "❌ " + statusText(summary)
	case summary.Clean():
		return "✅ " + statusText(summary)
	default:
		return "⚠️ " + statusText(summary)
	}
}

// writeTotals writes the counters, the asset chart and the alert.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Documents", strconv.Itoa(summary.Documents)},
			{"Incomplete documents", strconv.Itoa(summary.IncompleteDocuments)},
			{"Failed documents", strconv.Itoa(summary.FailedDocuments)},
			{"Content items", strconv.Itoa(summary.ContentItems)},
			{"Images downloaded", strconv.Itoa(summary.Assets.Downloaded)},
			{"Images skipped (existing)", strconv.Itoa(summary.Assets.Skipped)},
			{"Images failed", strconv.Itoa(summary.Assets.Failed)},
		},
	})
	md.PlainText("")

	if summary.Assets.Total() > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of download outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Image Downloads"),
		piechart.WithShowData(true),
	)

	if summary.Assets.Downloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(summary.Assets.Downloaded))
	}
	if summary.Assets.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(summary.Assets.Skipped))
	}
	if summary.Assets.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.Assets.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the worst problem of the run.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.RunSummary) {
	switch {
	case summary.Error != "":
		md.Cautionf("The export aborted: %s", summary.Error)
	case summary.HighCount > 0:
		md.Warningf(
			"%d image(s) embed GPS coordinates. Review them before publishing the export.",
			summary.HighCount,
		)
	case !summary.Clean():
		md.Importantf(
			"The export is partial: %d incomplete and %d failed document(s), %d failed download(s).",
			summary.IncompleteDocuments, summary.FailedDocuments, summary.Assets.Failed,
		)
	case totalFindings(summary) > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("All documents were exported completely.")
	}
	md.PlainText("")
}

// writeDocuments writes one table row per document.
func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Documents")
	md.PlainText("")

	if len(summary.DocumentSummaries) == 0 {
		md.PlainText("No documents were exported.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.DocumentSummaries))
	for _, d := range summary.DocumentSummaries {
		status := "✅"
		switch {
		case d.Error != "":
			status = "❌ " + truncateString(d.Error, 40)
		case !d.Complete || d.Assets.Failed > 0:
			status = "⚠️ partial"
		}
		rows = append(rows, []string{
			"`" + d.ID + "`",
			truncateString(d.Title, 40),
			strconv.Itoa(d.Items),
			strconv.Itoa(d.Images),
			status,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Title", "Items", "Images", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Findings")
	md.PlainText("")

	if len(summary.Findings) == 0 {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityHigh, "🟠 High"},
		{model.SeverityMedium, "🟡 Medium"},
		{model.SeverityLow, "🔵 Low"},
		{model.SeverityInfo, "⚪ Info"},
	}

	for _, sev := range severities {
		findings := findingsBySeverity(summary, sev.level)
		if len(findings) == 0 {
			continue
		}

		md.H3(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			f.Title,
			truncateString(orDash(f.Value), 50),
			truncateString(orDash(f.Location), 40),
			truncateString(orDash(f.Recommendation), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "Value", "Location", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Impact != "" {
			md.Details(f.Title, f.Impact)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [notionsync](https://github.com/nao1215/notionsync)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

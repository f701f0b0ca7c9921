package report

import (
	"io"
	"time"

	"github.com/nao1215/notionsync/internal/model"
)

// timeLayout is used for every timestamp printed in a report.
const timeLayout = "2006-01-02 15:04:05 MST"

// Writer defines the interface for report output.
// Implementations write run summaries in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same API.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.RunSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write summaries, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summary *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how a run ended.
func statusText(summary *model.RunSummary) string {
	switch {
	case summary.Error != "":
		return "Error - " + summary.Error
	case summary.Clean():
		return "Complete"
	default:
		return "Partial (see documents and findings)"
	}
}

// elapsedText formats the run duration rounded to milliseconds.
func elapsedText(summary *model.RunSummary) string {
	return summary.Elapsed().Round(time.Millisecond).String()
}

// totalFindings returns the number of findings of the run.
func totalFindings(summary *model.RunSummary) int {
	return summary.HighCount + summary.MediumCount + summary.LowCount + summary.InfoCount
}

// findingsBySeverity returns the findings of one severity in report order.
func findingsBySeverity(summary *model.RunSummary, level model.Severity) []model.Finding {
	var out []model.Finding
	for _, f := range summary.Findings {
		if f.Severity == level {
			out = append(out, f)
		}
	}
	return out
}

package model

import (
	"sort"
	"time"
)

// RunSummary is a summarized, human-readable view of one export run.
//
// Design decision: We build a separate summary rather than printing documents
// directly so the same counters feed the text, Markdown and JSON reports and
// the export_runs catalog table.
type RunSummary struct {
	// DatabaseID is the exported Notion database.
	DatabaseID string `json:"database_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Rows is the number of database rows listed.
	Rows int `json:"rows"`

	// RowsComplete is false when the row listing itself was truncated.
	RowsComplete bool `json:"rows_complete"`

	// === Document Summary ===

	// Documents is the number of documents processed.
	Documents int `json:"documents"`

	// IncompleteDocuments counts documents whose body was truncated.
	IncompleteDocuments int `json:"incomplete_documents"`

	// FailedDocuments counts documents whose pipeline returned an error.
	FailedDocuments int `json:"failed_documents"`

	// ContentItems is the total number of content items written.
	ContentItems int `json:"content_items"`

	// Assets tallies download outcomes across all documents.
	Assets AssetCounts `json:"assets"`

	// === Severity Summary ===

	// HighCount is the number of high severity findings.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity findings.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity findings.
	LowCount int `json:"low_count"`

	// InfoCount is the number of informational findings.
	InfoCount int `json:"info_count"`

	// === Details ===

	// DocumentSummaries lists every processed document.
	DocumentSummaries []DocumentSummary `json:"document_summaries,omitempty"`

	// Findings contains all findings, highest severity first.
	Findings []Finding `json:"findings,omitempty"`

	// Error contains the message of an error that aborted the run.
	Error string `json:"error,omitempty"`
}

// DocumentSummary is one line of the run summary.
type DocumentSummary struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Items    int         `json:"items"`
	Images   int         `json:"images"`
	Assets   AssetCounts `json:"assets"`
	Complete bool        `json:"complete"`
	Error    string      `json:"error,omitempty"`
}

// NewRunSummary creates an empty summary for a database.
func NewRunSummary(databaseID string) *RunSummary {
	return &RunSummary{
		DatabaseID:   databaseID,
		StartedAt:    time.Now(),
		RowsComplete: true,
	}
}

// AddDocument folds one processed document into the summary.
func (s *RunSummary) AddDocument(doc *Document) {
	s.Documents++
	s.ContentItems += len(doc.Content)

	counts := doc.AssetCounts()
	s.Assets.Add(counts)

	ds := DocumentSummary{
		ID:       doc.ID,
		Title:    doc.Title,
		Items:    len(doc.Content),
		Images:   doc.Images(),
		Assets:   counts,
		Complete: doc.Complete,
	}
	if !doc.Complete {
		s.IncompleteDocuments++
	}
	if doc.Err != nil {
		s.FailedDocuments++
		ds.Error = doc.Err.Error()
	}
	s.DocumentSummaries = append(s.DocumentSummaries, ds)

	for _, f := range doc.Findings {
		s.addFinding(f)
	}
}

// Finish stamps the end time and orders the details for presentation.
func (s *RunSummary) Finish() {
	s.FinishedAt = time.Now()

	sort.SliceStable(s.Findings, func(i, j int) bool {
		return s.Findings[i].Severity > s.Findings[j].Severity
	})
	sort.SliceStable(s.DocumentSummaries, func(i, j int) bool {
		return s.DocumentSummaries[i].ID < s.DocumentSummaries[j].ID
	})
}

// Elapsed returns the run duration, or zero before Finish.
func (s *RunSummary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Clean reports whether the run produced complete output with no failures.
func (s *RunSummary) Clean() bool {
	return s.RowsComplete && s.IncompleteDocuments == 0 && s.FailedDocuments == 0 &&
		s.Assets.Failed == 0 && s.Error == ""
}

// addFinding appends a finding and updates the severity counters.
func (s *RunSummary) addFinding(f Finding) {
	s.Findings = append(s.Findings, f)
	switch f.Severity {
	case SeverityHigh:
		s.HighCount++
	case SeverityMedium:
		s.MediumCount++
	case SeverityLow:
		s.LowCount++
	default:
		s.InfoCount++
	}
}

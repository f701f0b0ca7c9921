package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// RowLister lists database rows. *notion.Fetcher implements it.
type RowLister interface {
	FetchAll(ctx context.Context, coll notion.Collection) notion.FetchResult
}

// RunStore records finished runs. *database.Catalog implements it.
type RunStore interface {
	SaveRun(ctx context.Context, summary *model.RunSummary) (int64, error)
}

// Exporter exports one Notion database: it lists the rows, runs the batch,
// writes pages/index.json and records the run.
type Exporter struct {
	rows     RowLister
	batch    *BatchProcessor
	pagesDir string
	runs     RunStore
	logger   *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithRunStore records every run in store.
func WithRunStore(store RunStore) ExporterOption {
	return func(e *Exporter) {
		e.runs = store
	}
}

// WithExporterLogger sets a custom logger.
func WithExporterLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// NewExporter creates an Exporter writing the index into pagesDir.
func NewExporter(rows RowLister, batch *BatchProcessor, pagesDir string, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		rows:     rows,
		batch:    batch,
		pagesDir: pagesDir,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export exports the rows of databaseID. When pageIDs is not empty only those
// rows are exported, but the index still lists every row.
//
// The summary is always returned. The error is non-nil when no row could be
// listed or the run was cancelled; per-document problems are only recorded
// in the summary.
func (e *Exporter) Export(ctx context.Context, databaseID string, pageIDs []string) (*model.RunSummary, error) {
	summary := model.NewRunSummary(databaseID)

	listed := e.rows.FetchAll(ctx, notion.DatabaseRows(databaseID))
	summary.Rows = len(listed.Items)
	if !listed.Complete {
		summary.RowsComplete = false
		e.logger.Warn("database rows incomplete",
			"database", databaseID,
			"rows", len(listed.Items),
			"error", listed.Err,
		)
	}
	if len(listed.Items) == 0 && listed.Err != nil {
		err := fmt.Errorf("%w: %w", ErrRowsUnavailable, listed.Err)
		summary.Error = err.Error()
		e.finish(ctx, summary)
		return summary, err
	}

	selected := selectRows(listed.Items, pageIDs)
	if missing := len(pageIDs) - len(selected); len(pageIDs) > 0 && missing > 0 {
		e.logger.Warn("some requested pages are not rows of the database",
			"database", databaseID,
			"requested", len(pageIDs),
			"found", len(selected),
		)
	}

	var mu sync.Mutex
	batchErr := e.batch.ProcessBatchWithCallback(ctx, selected, func(doc *model.Document, _ int) {
		mu.Lock()
		summary.AddDocument(doc)
		mu.Unlock()
	})

	ids := make([]string, 0, len(listed.Items))
	for _, row := range listed.Items {
		ids = append(ids, row.ID)
	}
	if path, err := WriteIndex(context.WithoutCancel(ctx), e.pagesDir, ids); err != nil {
		e.logger.Error("could not write index", "error", err)
		if batchErr == nil {
			batchErr = err
		}
	} else {
		e.logger.Debug("index written", "path", path, "entries", len(ids))
	}

	if batchErr != nil {
		summary.Error = batchErr.Error()
	}
	e.finish(ctx, summary)
	return summary, batchErr
}

// finish stamps the summary and records it. The run is recorded even when ctx
// was cancelled, so status shows interrupted runs.
func (e *Exporter) finish(ctx context.Context, summary *model.RunSummary) {
	summary.Finish()
	if e.runs == nil {
		return
	}
	if _, err := e.runs.SaveRun(context.WithoutCancel(ctx), summary); err != nil {
		e.logger.Warn("could not record run", "error", err)
	}
}

// selectRows returns the rows whose id is in pageIDs, in row order.
// Ids match with or without dashes. An empty pageIDs selects every row.
func selectRows(rows []notion.Node, pageIDs []string) []notion.Node {
	if len(pageIDs) == 0 {
		return rows
	}
	want := make(map[string]bool, len(pageIDs))
	for _, id := range pageIDs {
		want[normalizeID(id)] = true
	}
	selected := make([]notion.Node, 0, len(pageIDs))
	for _, row := range rows {
		if want[normalizeID(row.ID)] {
			selected = append(selected, row)
		}
	}
	return selected
}

func normalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

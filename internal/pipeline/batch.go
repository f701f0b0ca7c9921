package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// DefaultConcurrency is the number of documents processed at once when
// WithConcurrency is not given.
const DefaultConcurrency = 3

// BatchProcessor handles concurrent processing of database rows.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because it keeps the Pipeline focused on a
// single document, and every document gets a fresh pipeline and its own
// traversal state.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each document.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent documents.
	concurrency int

	// documentTimeout bounds one document. Zero means no deadline.
	documentTimeout time.Duration

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent documents.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithDocumentTimeout sets the deadline for exporting one document.
func WithDocumentTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if d > 0 {
			b.documentTimeout = d
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each document to create a fresh
// pipeline instance, so pipeline state never leaks between documents.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch exports multiple rows concurrently and returns one document
// per row, in row order. Rows not started because ctx was cancelled are nil.
//
// The error return is non-nil only when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, rows []notion.Node) ([]*model.Document, error) {
	results := make([]*model.Document, len(rows))
	var mu sync.Mutex

	err := bp.ProcessBatchWithCallback(ctx, rows, func(doc *model.Document, index int) {
		mu.Lock()
		results[index] = doc
		mu.Unlock()
	})
	return results, err
}

// ProcessBatchWithCallback exports multiple rows and calls callback for each
// finished document. This is useful for streaming progress.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each row gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// The callback receives the document and the index of the row in the
// original slice. It is called from the goroutine that finished the
// document, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	rows []notion.Node,
	callback func(doc *model.Document, index int),
) error {
	bp.logger.Info("starting batch processing",
		"documents", len(rows),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, row := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("exporting document",
				"document", row.ID,
				"index", i+1,
				"total", len(rows),
			)

			doc := bp.process(ctx, row)
			callback(doc, i)

			// A failed document does not stop the others; the error is
			// recorded in the document.
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"documents", len(rows),
		"elapsed", time.Since(startTime),
	)
	return err
}

// process runs a fresh pipeline for one row under the document deadline.
func (bp *BatchProcessor) process(ctx context.Context, row notion.Node) *model.Document {
	if bp.documentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bp.documentTimeout)
		defer cancel()
	}

	doc := model.NewDocument(row)
	if err := bp.pipelineFactory().Execute(ctx, doc); err != nil {
		bp.logger.Warn("document failed",
			"document", row.ID,
			"error", err,
		)
		return doc
	}

	bp.logger.Info("document exported",
		"document", row.ID,
		"items", len(doc.Content),
		"complete", doc.Complete,
	)
	return doc
}

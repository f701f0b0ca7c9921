package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// DefaultWorkers is the default number of concurrent downloads.
const DefaultWorkers = 4

// Downloader fetches assets into a directory, skipping files that exist.
//
// The HTTP client must not carry API credentials: Notion-hosted images are
// served from pre-signed storage URLs.
type Downloader struct {
	client     *http.Client
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithWorkers sets the number of concurrent downloads.
func WithWorkers(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(maxRetries int, baseDelay time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if maxRetries >= 0 {
			d.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			d.retryDelay = baseDelay
		}
	}
}

// WithDownloaderLogger sets a custom logger.
func WithDownloaderLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader using client for transfers.
func NewDownloader(client *http.Client, opts ...DownloaderOption) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	d := &Downloader{
		client:     client,
		workers:    DefaultWorkers,
		maxRetries: notion.DefaultMaxRetries,
		retryDelay: notion.DefaultRetryBaseDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download materializes assets under destDir and returns one outcome per
// asset, in input order.
//
// A failed asset does not stop the others. The returned error is non-nil
// only when destDir cannot be created; every outcome is then failed.
//
// Assets sharing a filename are processed one after another by the same
// worker, so two transfers never write the same path at once.
func (d *Downloader) Download(ctx context.Context, assets []model.AssetRef, destDir string) ([]model.AssetOutcome, error) {
	outcomes := make([]model.AssetOutcome, len(assets))
	for i, a := range assets {
		outcomes[i] = model.AssetOutcome{Asset: a}
	}
	if len(assets) == 0 {
		return outcomes, nil
	}

	if err := os.MkdirAll(destDir, DirPerm); err != nil {
		ferr := &FilesystemError{Op: "mkdir", Path: destDir, Err: err}
		for i := range outcomes {
			outcomes[i].Status = model.AssetFailed
			outcomes[i].Err = ferr
		}
		return outcomes, ferr
	}

	var (
		order  []string
		groups = make(map[string][]int)
	)
	for i, a := range assets {
		if _, ok := groups[a.Filename]; !ok {
			order = append(order, a.Filename)
		}
		groups[a.Filename] = append(groups[a.Filename], i)
	}

	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, name := range order {
		indices := groups[name]
		g.Go(func() error {
			for _, i := range indices {
				outcomes[i] = d.fetch(ctx, assets[i], destDir)
			}
			return nil
		})
	}
	_ = g.Wait()

	counts := model.CountOutcomes(outcomes)
	d.logger.Debug("assets processed",
		"dir", destDir,
		"downloaded", counts.Downloaded,
		"skipped", counts.Skipped,
		"failed", counts.Failed,
	)
	return outcomes, nil
}

// fetch materializes one asset.
func (d *Downloader) fetch(ctx context.Context, ref model.AssetRef, destDir string) model.AssetOutcome {
	outcome := model.AssetOutcome{Asset: ref}

	failed := func(err error) model.AssetOutcome {
		outcome.Status = model.AssetFailed
		outcome.Err = err
		d.logger.Warn("asset download failed",
			"filename", ref.Filename,
			"url", ref.SourceURL,
			"error", err,
		)
		return outcome
	}

	if !isSafeFilename(ref.Filename) {
		return failed(&FilesystemError{Op: "validate", Path: ref.Filename, Err: ErrUnsafeFilename})
	}
	dest := filepath.Join(destDir, ref.Filename)

	_, err := os.Stat(dest)
	switch {
	case err == nil:
		outcome.Status = model.AssetSkippedExisting
		d.logger.Debug("asset already exists", "filename", ref.Filename)
		return outcome
	case !errors.Is(err, os.ErrNotExist):
		return failed(&FilesystemError{Op: "stat", Path: dest, Err: err})
	}

	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	resp, err := notion.Do(ctx, d.client, ref.SourceURL, d.maxRetries, d.retryDelay, d.logger)
	if err != nil {
		return failed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return failed(fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, ref.Filename))
	}

	n, err := WriteFileAtomic(ctx, dest, resp.Body)
	if err != nil {
		var ferr *FilesystemError
		if !errors.As(err, &ferr) && ctx.Err() == nil {
			err = &notion.TransportError{Op: "GET " + ref.Filename, Err: err}
		}
		return failed(err)
	}

	outcome.Status = model.AssetDownloaded
	outcome.Bytes = n
	d.logger.Debug("asset downloaded", "filename", ref.Filename, "bytes", n)
	return outcome
}

// isSafeFilename reports whether name stays inside the destination directory.
func isSafeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !filepath.IsAbs(name)
}

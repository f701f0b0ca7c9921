package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/notionsync/internal/crawler"
	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// Step names, in default execution order.
const (
	StepProperties = "properties"
	StepFlatten    = "flatten"
	StepDownload   = "download"
	StepInspect    = "inspect"
	StepWrite      = "write"
	StepCatalog    = "catalog"
)

// PropertyReader reads a single page property. *notion.Client implements it.
type PropertyReader interface {
	PageProperty(ctx context.Context, pageID, property string) (*notion.Property, error)
}

// BodyFlattener turns the block tree under a page into content items.
// *crawler.Flattener implements it.
type BodyFlattener interface {
	Flatten(ctx context.Context, rootID string) crawler.FlattenResult
}

// AssetDownloader materializes assets on disk. *asset.Downloader implements it.
type AssetDownloader interface {
	Download(ctx context.Context, assets []model.AssetRef, destDir string) ([]model.AssetOutcome, error)
}

// ImageInspector reads privacy-relevant metadata from image files.
// *asset.Inspector implements it.
type ImageInspector interface {
	Supports(filename string) bool
	InspectFile(path string) (*model.ExifData, error)
}

// DocumentRenderer renders a document as a human-readable file.
type DocumentRenderer interface {
	RenderDocument(w io.Writer, doc *model.Document) error
}

// DocumentStore records exported documents. *database.Catalog implements it.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, databaseID string, doc *model.Document, jsonPath string) (bool, error)
}

// PropertiesStep fills the title and tags of a document.
//
// The title comes from the row itself; the tags need one extra request per
// row because the query response may truncate multi-select values.
type PropertiesStep struct {
	reader        PropertyReader
	titleProperty string
	tagsProperty  string
	logger        *slog.Logger
}

// NewPropertiesStep creates a PropertiesStep.
func NewPropertiesStep(reader PropertyReader, titleProperty, tagsProperty string, logger *slog.Logger) *PropertiesStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertiesStep{
		reader:        reader,
		titleProperty: titleProperty,
		tagsProperty:  tagsProperty,
		logger:        logger,
	}
}

// Name returns the step name.
func (s *PropertiesStep) Name() string {
	return StepProperties
}

// Do executes the properties step. A failed tag lookup is not an error:
// the document keeps an empty tag list and a warning.
func (s *PropertiesStep) Do(ctx context.Context, doc *model.Document) error {
	var title string
	if doc.Row != nil {
		if prop, ok := doc.Row.Properties[s.titleProperty]; ok {
			title = prop.PlainTitle()
		}
	}
	if title == "" {
		s.logger.Debug("row has no title, using fallback",
			"document", doc.ID,
			"property", s.titleProperty,
		)
		title = model.FallbackTitle(doc.ID)
	}
	doc.Title = title

	prop, err := s.reader.PageProperty(ctx, doc.ID, s.tagsProperty)
	if err != nil {
		s.logger.Warn("could not read tags",
			"document", doc.ID,
			"property", s.tagsProperty,
			"error", err,
		)
		doc.AddWarning(fmt.Sprintf("tags unavailable: %v", err))
		return nil
	}
	if prop.Type != "" && prop.Type != "multi_select" {
		s.logger.Warn("tags property is not multi_select",
			"document", doc.ID,
			"property", s.tagsProperty,
			"type", prop.Type,
		)
		doc.AddWarning(fmt.Sprintf("property %q has type %q, not multi_select", s.tagsProperty, prop.Type))
		return nil
	}
	doc.Tags = prop.TagNames()
	return nil
}

// FlattenStep assembles the document body.
type FlattenStep struct {
	flattener BodyFlattener
	logger    *slog.Logger
}

// NewFlattenStep creates a FlattenStep.
func NewFlattenStep(flattener BodyFlattener, logger *slog.Logger) *FlattenStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlattenStep{flattener: flattener, logger: logger}
}

// Name returns the step name.
func (s *FlattenStep) Name() string {
	return StepFlatten
}

// Do executes the flatten step. Traversal problems degrade the document
// instead of failing it; only cancellation is returned as an error.
func (s *FlattenStep) Do(ctx context.Context, doc *model.Document) error {
	result := s.flattener.Flatten(ctx, doc.ID)

	doc.Content = result.Content
	doc.Assets = result.Assets
	doc.Stats = result.Stats
	doc.Complete = doc.Complete && result.Complete

	for _, anomaly := range result.Anomalies {
		doc.AddWarning(anomaly.Error())
	}
	if result.Stats.CyclesSkipped > 0 {
		doc.AddFinding(model.FindingCycle,
			"Block tree revisits a block",
			fmt.Sprintf("%d block(s) skipped", result.Stats.CyclesSkipped),
			doc.ID,
		)
	}
	if result.Stats.FilenameCollisions > 0 {
		doc.AddFinding(model.FindingFilenameCollision,
			"Different images share a file name",
			fmt.Sprintf("%d collision(s)", result.Stats.FilenameCollisions),
			doc.ID,
		)
	}
	if !result.Complete {
		doc.AddFinding(model.FindingIncomplete,
			"Document body is incomplete",
			fmt.Sprintf("failed expansions: %d, depth limited: %d",
				result.Stats.FailedExpansions, result.Stats.DepthLimited),
			doc.ID,
		)
	}

	if result.Err != nil {
		return fmt.Errorf("flatten %s: %w", doc.ID, result.Err)
	}
	return nil
}

// DownloadStep fetches the assets referenced by the document.
type DownloadStep struct {
	downloader AssetDownloader
	dir        string
	logger     *slog.Logger
}

// NewDownloadStep creates a DownloadStep writing into dir.
func NewDownloadStep(downloader AssetDownloader, dir string, logger *slog.Logger) *DownloadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadStep{downloader: downloader, dir: dir, logger: logger}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return StepDownload
}

// Do executes the download step. Individual failures are recorded as
// findings; only an unusable destination directory is an error.
func (s *DownloadStep) Do(ctx context.Context, doc *model.Document) error {
	outcomes, err := s.downloader.Download(ctx, doc.Assets, s.dir)
	doc.Outcomes = outcomes
	if err != nil {
		return fmt.Errorf("download assets: %w", err)
	}

	for _, o := range outcomes {
		if o.Status != model.AssetFailed {
			continue
		}
		doc.AddFinding(model.FindingAssetFailed,
			"Image could not be downloaded",
			o.Asset.Filename,
			doc.ID,
		)
	}
	return nil
}

// InspectStep checks downloaded images for embedded location and device data.
// Images synced from phones often carry GPS coordinates that the page author
// never meant to publish alongside the export.
type InspectStep struct {
	inspector ImageInspector
	dir       string
	logger    *slog.Logger
}

// NewInspectStep creates an InspectStep reading images from dir.
func NewInspectStep(inspector ImageInspector, dir string, logger *slog.Logger) *InspectStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectStep{inspector: inspector, dir: dir, logger: logger}
}

// Name returns the step name.
func (s *InspectStep) Name() string {
	return StepInspect
}

// Do executes the inspect step.
func (s *InspectStep) Do(ctx context.Context, doc *model.Document) error {
	seen := make(map[string]bool)
	for _, o := range doc.Outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := o.Asset.Filename
		if o.Status == model.AssetFailed || seen[name] || !s.inspector.Supports(name) {
			continue
		}
		seen[name] = true

		data, err := s.inspector.InspectFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Debug("could not inspect image", "filename", name, "error", err)
			continue
		}
		if data == nil {
			continue
		}

		if data.HasGPS {
			doc.AddFinding(model.FindingExifGPS, "Image contains GPS coordinates", data.GPS, name)
		}
		if data.SerialNumber != "" {
			doc.AddFinding(model.FindingExifSerial, "Image contains a device serial number", data.SerialNumber, name)
		}
		if data.Make != "" || data.Model != "" {
			doc.AddFinding(model.FindingExifDevice, "Image identifies the capture device",
				joinNonEmpty(data.Make, data.Model), name)
		}
	}
	return nil
}

// WriteStep writes pages/<id>.json and, with a renderer, pages/<id>.md.
type WriteStep struct {
	dir      string
	renderer DocumentRenderer
	logger   *slog.Logger
}

// NewWriteStep creates a WriteStep writing into dir. renderer may be nil.
func NewWriteStep(dir string, renderer DocumentRenderer, logger *slog.Logger) *WriteStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteStep{dir: dir, renderer: renderer, logger: logger}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return StepWrite
}

// Do executes the write step.
func (s *WriteStep) Do(ctx context.Context, doc *model.Document) error {
	path, err := WriteDocument(ctx, s.dir, doc)
	if err != nil {
		return err
	}
	s.logger.Debug("document written", "path", path)

	if s.renderer == nil {
		return nil
	}
	if _, err := WriteMarkdown(ctx, s.dir, doc, s.renderer); err != nil {
		// The JSON file is the export; the Markdown copy is a convenience.
		s.logger.Warn("could not write markdown", "document", doc.ID, "error", err)
		doc.AddWarning(fmt.Sprintf("markdown not written: %v", err))
	}
	return nil
}

// CatalogStep records the document in the export catalog.
type CatalogStep struct {
	store      DocumentStore
	databaseID string
	pagesDir   string
	logger     *slog.Logger
}

// NewCatalogStep creates a CatalogStep.
func NewCatalogStep(store DocumentStore, databaseID, pagesDir string, logger *slog.Logger) *CatalogStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogStep{store: store, databaseID: databaseID, pagesDir: pagesDir, logger: logger}
}

// Name returns the step name.
func (s *CatalogStep) Name() string {
	return StepCatalog
}

// Do executes the catalog step. A catalog failure does not invalidate the
// files already written, so it is logged and kept as a warning.
func (s *CatalogStep) Do(ctx context.Context, doc *model.Document) error {
	changed, err := s.store.UpsertDocument(ctx, s.databaseID, doc, filepath.Join(s.pagesDir, DocumentFilename(doc.ID)))
	if err != nil {
		s.logger.Warn("could not record document", "document", doc.ID, "error", err)
		doc.AddWarning(fmt.Sprintf("catalog not updated: %v", err))
		return nil
	}
	if !changed {
		s.logger.Debug("document unchanged since last export", "document", doc.ID)
	}
	return nil
}

func joinNonEmpty(parts ...string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// DatabaseID is recorded with every catalog entry.
	DatabaseID string

	// PagesDir receives <id>.json (and <id>.md) files.
	PagesDir string

	// ImagesDir receives downloaded assets.
	ImagesDir string

	// TitleProperty is the title property name.
	TitleProperty string

	// TagsProperty is the multi-select tags property name.
	TagsProperty string
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineDatabaseID sets the database id recorded in the catalog.
func WithPipelineDatabaseID(id string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DatabaseID = id
	}
}

// WithPipelineDirs sets the pages and images directories.
func WithPipelineDirs(pagesDir, imagesDir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.PagesDir = pagesDir
		c.ImagesDir = imagesDir
	}
}

// WithPipelineProperties sets the title and tags property names.
func WithPipelineProperties(title, tags string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if title != "" {
			c.TitleProperty = title
		}
		if tags != "" {
			c.TagsProperty = tags
		}
	}
}

// Components are the collaborators of the default pipeline. Inspector,
// Renderer and Store are optional; their steps are left out when nil.
type Components struct {
	Properties PropertyReader
	Flattener  BodyFlattener
	Downloader AssetDownloader
	Inspector  ImageInspector
	Renderer   DocumentRenderer
	Store      DocumentStore
}

// DefaultPipeline creates a pipeline with all default steps configured.
//
// Design decision: We provide a default pipeline because the CLI and the
// tests need the same step order: properties, flatten, download, inspect,
// write, catalog. Writing happens after downloading so the catalog and the
// report see the final asset outcomes.
func DefaultPipeline(c Components, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		PagesDir:      "pages",
		ImagesDir:     "images",
		TitleProperty: "Name",
		TagsProperty:  "Tags",
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewPropertiesStep(c.Properties, cfg.TitleProperty, cfg.TagsProperty, p.logger),
		NewFlattenStep(c.Flattener, p.logger),
		NewDownloadStep(c.Downloader, cfg.ImagesDir, p.logger),
	)
	if c.Inspector != nil {
		p.AddStep(NewInspectStep(c.Inspector, cfg.ImagesDir, p.logger))
	}
	p.AddStep(NewWriteStep(cfg.PagesDir, c.Renderer, p.logger))
	if c.Store != nil {
		p.AddStep(NewCatalogStep(c.Store, cfg.DatabaseID, cfg.PagesDir, p.logger))
	}

	return p
}

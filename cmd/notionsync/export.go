package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/notionsync/internal/asset"
	"github.com/nao1215/notionsync/internal/config"
	"github.com/nao1215/notionsync/internal/crawler"
	"github.com/nao1215/notionsync/internal/database"
	seclog "github.com/nao1215/notionsync/internal/log"
	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
	"github.com/nao1215/notionsync/internal/pipeline"
	"github.com/nao1215/notionsync/internal/report"
)

// errExportIncomplete is returned when the run finished but some content is
// missing, so scripts can tell a partial export from a clean one.
var errExportIncomplete = errors.New("export finished with missing content (see report)")

// Flags that config file settings must not override once set on the command line.
var databaseFlags = []string{"title-property", "tags-property", "text-kind", "max-depth", "unique-names"}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [page-id...]",
		Short: "Export the pages of a Notion database",
		Long: `Export writes every row of a Notion database to the output directory.

For each row it reads the title and tags, walks the nested block tree of
the page, downloads the images it references and writes pages/<id>.json.
pages/index.json always lists every row of the database, even when only
some pages are exported.

When page ids are given, only those rows are exported. Ids may be written
with or without dashes.

Examples:
  # Export the database named by NOTION_DB_ID into the current directory
  notionsync export

  # Export into ./site, also writing Markdown copies of every page
  notionsync export --output-dir site --markdown-pages

  # Re-export two pages only
  notionsync export 1f2e3d4c5b6a79881f2e3d4c5b6a7988 0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9

  # Export headings and list items as text too
  notionsync export --text-kind heading_1,heading_2,bulleted_list_item

  # Route all traffic through a SOCKS5 proxy
  notionsync export --proxy socks5://127.0.0.1:1080

Configuration file (.notionsync) example:
  defaults:
    titleProperty: Name
    tagsProperty: Tags
  databases:
    0123456789abcdef0123456789abcdef:
      textKinds: [heading_2, callout]
      uniqueNames: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runExportCmd,
	}

	// Source flags
	cmd.Flags().StringP("database", "d", "",
		"Notion database id (default: $NOTION_DB_ID)")
	cmd.Flags().String("token", "",
		"Notion integration token (default: $NOTION_API_KEY; prefer the environment)")
	cmd.Flags().String("env-file", "",
		"Load credentials from this .env file (default: ./.env if present)")
	cmd.Flags().String("base-url", "",
		"Notion API base URL")
	_ = cmd.Flags().MarkHidden("base-url") //nolint:errcheck // flag exists

	// Output flags
	cmd.Flags().StringP("output-dir", "D", config.DefaultOutputDir,
		"Export root; pages/ and images/ are created below it")
	cmd.Flags().Bool("markdown-pages", false,
		"Also write pages/<id>.md for every exported page")
	cmd.Flags().Bool("unique-names", false,
		"Append a short hash to image file names to avoid collisions")

	// Content flags
	cmd.Flags().String("title-property", config.DefaultTitleProperty,
		"Database property read as the page title")
	cmd.Flags().String("tags-property", config.DefaultTagsProperty,
		"Multi-select property read as the page tags")
	cmd.Flags().StringSlice("text-kind", nil,
		"Extra block types exported as text (paragraph and quote are always exported)")
	cmd.Flags().Int("max-depth", config.DefaultMaxDepth,
		"Maximum block nesting depth to expand (0 = unlimited)")
	cmd.Flags().Bool("no-exif", false,
		"Skip EXIF privacy inspection of downloaded images")

	// Network flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("document-timeout", config.DefaultDocumentTimeout,
		"Deadline for exporting one page")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retries for throttled or failed requests")
	cmd.Flags().Int("page-size", config.DefaultPageSize,
		"Page size of paginated API requests (1-100)")
	cmd.Flags().String("proxy", "",
		"Proxy URL (socks5://, http:// or https://)")

	// Concurrency flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages exported concurrently")
	cmd.Flags().IntP("workers", "w", config.DefaultDownloadWorkers,
		"Number of concurrent image downloads per page")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .notionsync in current or home directory)")

	// Catalog flags
	cmd.Flags().Bool("no-db", false,
		"Do not record the export in the catalog database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the catalog database")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runExport(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the secret-masking logger, in JSON when --log-json is set.
func newLogger(cmd *cobra.Command, w io.Writer, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs, _ = cmd.Root().PersistentFlags().GetBool("log-json") //nolint:errcheck // false when undefined
	}
	if jsonLogs {
		return seclog.NewSecureJSONLogger(w, verbose)
	}
	return seclog.NewSecureLogger(w, verbose)
}

// buildConfig creates a Config from cobra command flags, the environment
// and the configuration file. Flags win over the environment, and flags set
// explicitly win over the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.DatabaseID, err = flags.GetString("database"); err != nil {
		return nil, err
	}
	if cfg.Token, err = flags.GetString("token"); err != nil {
		return nil, err
	}
	if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.MarkdownExport, err = flags.GetBool("markdown-pages"); err != nil {
		return nil, err
	}
	if cfg.UniqueNames, err = flags.GetBool("unique-names"); err != nil {
		return nil, err
	}
	if cfg.TitleProperty, err = flags.GetString("title-property"); err != nil {
		return nil, err
	}
	if cfg.TagsProperty, err = flags.GetString("tags-property"); err != nil {
		return nil, err
	}
	if cfg.TextKinds, err = flags.GetStringSlice("text-kind"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
		return nil, err
	}
	noExif, err := flags.GetBool("no-exif")
	if err != nil {
		return nil, err
	}
	cfg.InspectExif = !noExif

	if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DocumentTimeout, err = flags.GetDuration("document-timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = flags.GetInt("page-size"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.DownloadWorkers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		return nil, err
	}

	// Load database settings from the config file.
	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently use an empty config.
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.Databases, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.Databases = &config.File{Databases: make(map[string]config.DatabaseConfig)}
	}

	explicit := make(map[string]bool, len(databaseFlags))
	for _, name := range databaseFlags {
		explicit[name] = flags.Changed(name)
	}
	cfg.ForDatabase(explicit)

	cfg.PageIDs = args
	return cfg, nil
}

// runExport wires the exporter from cfg and runs it.
func runExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting export",
		"database", cfg.DatabaseID,
		"pages", len(cfg.PageIDs),
		"outputDir", cfg.OutputDir,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// The base client carries no credentials; it is shared by the API client
	// and the image downloader.
	base, err := notion.NewHTTPClient(cfg.RequestTimeout, cfg.Proxy)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	clientOpts := []notion.ClientOption{
		notion.WithUserAgent(cfg.UserAgent),
		notion.WithMaxRetries(cfg.MaxRetries),
		notion.WithRetryBaseDelay(cfg.RetryBaseDelay),
		notion.WithClientLogger(logger),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, notion.WithBaseURL(cfg.BaseURL))
	}
	if cfg.NotionVersion != "" {
		clientOpts = append(clientOpts, notion.WithVersion(cfg.NotionVersion))
	}
	api := notion.NewClient(base, cfg.Token, clientOpts...)

	fetcher := notion.NewFetcher(api,
		notion.WithPageSize(cfg.PageSize),
		notion.WithFetcherLogger(logger),
	)
	flattener := crawler.NewFlattener(fetcher,
		crawler.NewClassifier(cfg.TextKinds...),
		crawler.NewFilenameResolver(crawler.WithUniqueNames(cfg.UniqueNames)),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithLogger(logger),
	)
	downloader := asset.NewDownloader(base,
		asset.WithWorkers(cfg.DownloadWorkers),
		asset.WithRetry(cfg.MaxRetries, cfg.RetryBaseDelay),
		asset.WithDownloaderLogger(logger),
	)

	components := pipeline.Components{
		Properties: api,
		Flattener:  flattener,
		Downloader: downloader,
	}
	if cfg.InspectExif {
		components.Inspector = asset.NewInspector()
	}
	if cfg.MarkdownExport {
		components.Renderer = report.NewDocumentRenderer()
	}

	exporterOpts := []pipeline.ExporterOption{pipeline.WithExporterLogger(logger)}
	if cfg.SaveToDB {
		catalog, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer catalog.Close()
		logger.Info("catalog opened", "path", catalog.Path())

		components.Store = catalog
		exporterOpts = append(exporterOpts, pipeline.WithRunStore(catalog))
	}

	pagesDir := cfg.PagesDir()
	factory := func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(components,
			[]pipeline.Option{pipeline.WithLogger(logger)},
			pipeline.WithPipelineDatabaseID(cfg.DatabaseID),
			pipeline.WithPipelineDirs(pagesDir, cfg.ImagesDir()),
			pipeline.WithPipelineProperties(cfg.TitleProperty, cfg.TagsProperty),
		)
	}
	batch := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithDocumentTimeout(cfg.DocumentTimeout),
		pipeline.WithBatchLogger(logger),
	)
	exporter := pipeline.NewExporter(fetcher, batch, pagesDir, exporterOpts...)

	summary, exportErr := exporter.Export(ctx, cfg.DatabaseID, cfg.PageIDs)

	if err := outputReport(cfg, summary, out); err != nil {
		logger.Error("report failed", "error", err)
		if exportErr == nil {
			exportErr = err
		}
	}

	if exportErr != nil {
		return exportErr
	}
	if !summary.Clean() {
		return errExportIncomplete
	}
	return nil
}

// outputReport outputs the run summary in the requested format.
func outputReport(cfg *config.Config, summary *model.RunSummary, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list page titles and image locations, so keep them private.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(summary)
	return err
}

package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "notionsync"

	// DefaultPageSize is the largest page size the Notion API accepts.
	DefaultPageSize = 100

	// DefaultRequestTimeout bounds a single HTTP request, including file
	// downloads, which is why it is longer than a typical API call needs.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultDocumentTimeout bounds the export of one database row.
	DefaultDocumentTimeout = 10 * time.Minute

	// DefaultMaxRetries is the number of retries for throttled or failed requests.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first backoff delay; it doubles per retry.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultBatchSize is the number of documents exported concurrently.
	// The Notion API allows an average of three requests per second per
	// integration, so higher values mostly trade throughput for 429 retries.
	DefaultBatchSize = 3

	// DefaultDownloadWorkers is the number of concurrent asset downloads per document.
	DefaultDownloadWorkers = 4

	// DefaultMaxDepth of 0 expands nested blocks without limit.
	DefaultMaxDepth = 0

	// DefaultOutputDir is the export root. pages/ and images/ live below it.
	DefaultOutputDir = "."

	// PagesDirName is the directory holding <id>.json documents and index.json.
	PagesDirName = "pages"

	// ImagesDirName is the directory holding downloaded assets.
	ImagesDirName = "images"

	// DefaultTitleProperty is the database property read as the document title.
	DefaultTitleProperty = "Name"

	// DefaultTagsProperty is the multi-select property read as document tags.
	DefaultTagsProperty = "Tags"

	// DefaultUserAgent identifies notionsync in HTTP requests.
	DefaultUserAgent = "notionsync/1.0 (+https://github.com/nao1215/notionsync)"

	// DefaultDBFile is the catalog file name inside DBDir.
	DefaultDBFile = "notionsync.db"
)

// Config holds all configuration options for an export run.
// It is populated from CLI flags, the environment and the .notionsync file,
// and passed through the application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. Per-database overrides live in Databases and are merged
// by ForDatabase.
type Config struct {
	// Token is the Notion integration token (NOTION_API_KEY).
	Token string

	// DatabaseID is the database to export (NOTION_DB_ID).
	DatabaseID string

	// PageIDs restricts the export to these rows. Empty means every row.
	PageIDs []string

	// BaseURL overrides the Notion API endpoint. Empty means the public API.
	BaseURL string

	// NotionVersion is sent as the Notion-Version header.
	NotionVersion string

	// PageSize is the page size for every paginated request (1..100).
	PageSize int

	// RequestTimeout is the timeout of a single HTTP request.
	RequestTimeout time.Duration

	// DocumentTimeout is the deadline for exporting one row.
	DocumentTimeout time.Duration

	// MaxRetries is the retry count for 429/5xx responses and network errors.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay.
	RetryBaseDelay time.Duration

	// OutputDir is the export root directory.
	OutputDir string

	// BatchSize is the number of documents exported concurrently.
	BatchSize int

	// DownloadWorkers is the number of concurrent downloads per document.
	DownloadWorkers int

	// MaxDepth limits block nesting expansion. 0 means unlimited.
	MaxDepth int

	// UniqueNames appends a short URL hash to asset filenames so distinct
	// URLs with the same last path segment do not share a file.
	UniqueNames bool

	// MarkdownExport additionally writes pages/<id>.md for every document.
	MarkdownExport bool

	// InspectExif enables EXIF privacy inspection of downloaded images.
	InspectExif bool

	// TitleProperty is the title property name.
	TitleProperty string

	// TagsProperty is the multi-select property name.
	TagsProperty string

	// TextKinds are block types exported as text in addition to paragraph and quote.
	TextKinds []string

	// Proxy is an optional proxy URL (socks5://, http://, https://).
	Proxy string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// Databases holds per-database settings loaded from the config file.
	Databases *File

	// JSONReport outputs the run report as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport outputs the run report as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the run report.
	// When empty the report goes to stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite catalog.
	// Defaults to the XDG data directory (~/.local/share/notionsync on Linux).
	DBDir string

	// SaveToDB records documents, assets and runs in the catalog.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (page size, timeouts,
// property names). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		PageSize:        DefaultPageSize,
		RequestTimeout:  DefaultRequestTimeout,
		DocumentTimeout: DefaultDocumentTimeout,
		MaxRetries:      DefaultMaxRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
		OutputDir:       DefaultOutputDir,
		BatchSize:       DefaultBatchSize,
		DownloadWorkers: DefaultDownloadWorkers,
		MaxDepth:        DefaultMaxDepth,
		InspectExif:     true,
		TitleProperty:   DefaultTitleProperty,
		TagsProperty:    DefaultTagsProperty,
		UserAgent:       DefaultUserAgent,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
	}
}

// PagesDir returns the directory documents are written to.
func (c *Config) PagesDir() string {
	return filepath.Join(c.OutputDir, PagesDirName)
}

// ImagesDir returns the directory assets are downloaded to.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.OutputDir, ImagesDirName)
}

// DBPath returns the catalog file path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DBDir, DefaultDBFile)
}

// ForDatabase applies the config file settings for the configured database.
// Flags that the user set explicitly are passed in explicit and are never
// overridden by the file.
func (c *Config) ForDatabase(explicit map[string]bool) {
	if c.Databases == nil {
		return
	}
	db := c.Databases.GetDatabaseConfig(c.DatabaseID)
	if db.TitleProperty != "" && !explicit["title-property"] {
		c.TitleProperty = db.TitleProperty
	}
	if db.TagsProperty != "" && !explicit["tags-property"] {
		c.TagsProperty = db.TagsProperty
	}
	if len(db.TextKinds) > 0 && !explicit["text-kind"] {
		c.TextKinds = db.TextKinds
	}
	if db.MaxDepth != 0 && !explicit["max-depth"] {
		c.MaxDepth = db.MaxDepth
	}
	if db.UniqueNames != nil && !explicit["unique-names"] {
		c.UniqueNames = *db.UniqueNames
	}
}

// XDGDataDir returns the XDG data directory for notionsync.
// On Linux: ~/.local/share/notionsync
// On macOS: ~/Library/Application Support/notionsync
// On Windows: %LOCALAPPDATA%\notionsync
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for notionsync.
// On Linux: ~/.config/notionsync
// On macOS: ~/Library/Application Support/notionsync
// On Windows: %APPDATA%\notionsync
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after flags, environment and config file are merged.
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrNoToken
	}
	if c.DatabaseID == "" {
		return ErrNoDatabase
	}
	if c.PageSize < 1 || c.PageSize > DefaultPageSize {
		return ErrInvalidPageSize
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.DocumentTimeout <= 0 {
		return ErrInvalidDocumentTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.DownloadWorkers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.TitleProperty == "" || c.TagsProperty == "" {
		return ErrEmptyProperty
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

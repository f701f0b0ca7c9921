package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoToken is returned when no integration token is configured.
	ErrNoToken = errors.New("no Notion token: set NOTION_API_KEY or use --token")

	// ErrNoDatabase is returned when no database id is configured.
	ErrNoDatabase = errors.New("no database specified: set NOTION_DB_ID or use --database")

	// ErrInvalidPageSize is returned when the page size is outside 1..100.
	ErrInvalidPageSize = errors.New("invalid page size: must be between 1 and 100")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDocumentTimeout is returned when the per-document deadline is not positive.
	ErrInvalidDocumentTimeout = errors.New("invalid document timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidWorkers is returned when the download worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid download workers: must be positive")

	// ErrInvalidMaxDepth is returned when the depth limit is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative (0 means unlimited)")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrEmptyProperty is returned when the title or tags property name is empty.
	ErrEmptyProperty = errors.New("title and tags property names must not be empty")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

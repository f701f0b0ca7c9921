package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/notionsync/internal/model"
)

// DBFileName is the catalog file name inside the database directory.
const DBFileName = "notionsync.db"

// timeLayout stores timestamps with a fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ErrNotFound is returned by Open when the catalog does not exist and
// creation was not requested.
var ErrNotFound = errors.New("catalog database not found")

// Catalog provides SQLite-based storage for exported documents, their assets
// and the history of export runs.
//
// Design decision: We use a single database file for every exported
// database rather than one per export directory. Runs of different databases
// are told apart by database_id.
type Catalog struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Catalog behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so status queries do not block a
	// running export.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Catalog in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*Catalog, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s (run an export first)", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create the file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. Concurrent document workers share
	// this single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	c := &Catalog{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := c.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return c, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.dbPath
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (c *Catalog) createTables() error {
	schema := `
	-- One row per exported database row, replaced on every export
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		database_id TEXT NOT NULL,
		title TEXT NOT NULL,
		tags TEXT NOT NULL,
		items INTEGER NOT NULL,
		images INTEGER NOT NULL,
		complete INTEGER NOT NULL,
		stats TEXT,
		content_hash TEXT NOT NULL,
		json_path TEXT,
		error TEXT,
		exported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_database ON documents(database_id);

	-- Assets referenced by a document, with the latest download outcome
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(document_id, source)
	);

	CREATE INDEX IF NOT EXISTS idx_assets_document ON assets(document_id);
	CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(status);

	-- Export runs store the complete run summary as JSON
	CREATE TABLE IF NOT EXISTS export_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		database_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		clean INTEGER NOT NULL,
		summary_json TEXT NOT NULL,
		risk_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_database ON export_runs(database_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON export_runs(started_at);
	`

	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// DocumentRecord represents a stored document.
type DocumentRecord struct {
	ID          string
	DatabaseID  string
	Title       string
	Tags        []string
	Items       int
	Images      int
	Complete    bool
	Stats       model.FlattenStats
	ContentHash string
	JSONPath    string
	Error       string
	ExportedAt  time.Time
}

// AssetRecord represents a stored asset outcome.
type AssetRecord struct {
	ID         int64
	DocumentID string
	Filename   string
	Source     string
	Status     model.AssetStatus
	Bytes      int64
	Error      string
	UpdatedAt  time.Time
}

// ContentHash returns the SHA3-256 hex digest of a document's content.
// Two exports with equal hashes produced identical content lists.
func ContentHash(content []model.ContentItem) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to serialize content: %w", err)
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// UpsertDocument stores a document and its asset outcomes.
// Uses UPSERT so re-exporting a row replaces the previous record; asset rows
// of the document are replaced in the same transaction.
// It reports whether the content differs from the previously stored export.
func (c *Catalog) UpsertDocument(ctx context.Context, databaseID string, doc *model.Document, jsonPath string) (bool, error) {
	hash, err := ContentHash(doc.Content)
	if err != nil {
		return false, err
	}
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return false, fmt.Errorf("failed to serialize tags: %w", err)
	}
	statsJSON, err := json.Marshal(doc.Stats)
	if err != nil {
		return false, fmt.Errorf("failed to serialize stats: %w", err)
	}
	var errMsg string
	if doc.Err != nil {
		errMsg = doc.Err.Error()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	err = tx.QueryRowContext(ctx, `SELECT content_hash FROM documents WHERE id = ?`, doc.ID).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to read previous document: %w", err)
	}

	query := `
	INSERT INTO documents (id, database_id, title, tags, items, images, complete, stats, content_hash, json_path, error, exported_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		database_id = excluded.database_id,
		title = excluded.title,
		tags = excluded.tags,
		items = excluded.items,
		images = excluded.images,
		complete = excluded.complete,
		stats = excluded.stats,
		content_hash = excluded.content_hash,
		json_path = excluded.json_path,
		error = excluded.error,
		exported_at = excluded.exported_at
	`
	_, err = tx.ExecContext(ctx, query,
		doc.ID,
		databaseID,
		doc.Title,
		string(tagsJSON),
		len(doc.Content),
		doc.Images(),
		doc.Complete,
		string(statsJSON),
		hash,
		jsonPath,
		errMsg,
		doc.ExportedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE document_id = ?`, doc.ID); err != nil {
		return false, fmt.Errorf("failed to clear assets: %w", err)
	}
	for _, o := range doc.Outcomes {
		var assetErr string
		if o.Err != nil {
			assetErr = o.Err.Error()
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO assets (document_id, filename, source, status, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, source) DO UPDATE SET
			filename = excluded.filename,
			status = excluded.status,
			bytes = excluded.bytes,
			error = excluded.error,
			updated_at = CURRENT_TIMESTAMP
		`,
			doc.ID,
			o.Asset.Filename,
			StripQuery(o.Asset.SourceURL),
			o.Status.String(),
			o.Bytes,
			assetErr,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert asset: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit document: %w", err)
	}
	return previous != hash, nil
}

// GetDocument retrieves a document record by id.
// It returns nil without error when the document is unknown.
func (c *Catalog) GetDocument(ctx context.Context, id string) (*DocumentRecord, error) {
	query := `
	SELECT id, database_id, title, tags, items, images, complete, stats, content_hash, json_path, error, exported_at
	FROM documents
	WHERE id = ?
	`
	rec, err := scanDocument(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return rec, nil
}

// ListDocuments returns the documents of a database ordered by id.
func (c *Catalog) ListDocuments(ctx context.Context, databaseID string) ([]DocumentRecord, error) {
	query := `
	SELECT id, database_id, title, tags, items, images, complete, stats, content_hash, json_path, error, exported_at
	FROM documents
	WHERE database_id = ?
	ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var results []DocumentRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var rec DocumentRecord
	var tagsJSON, timestamp string
	var statsJSON, jsonPath, errMsg sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.DatabaseID,
		&rec.Title,
		&tagsJSON,
		&rec.Items,
		&rec.Images,
		&rec.Complete,
		&statsJSON,
		&rec.ContentHash,
		&jsonPath,
		&errMsg,
		&timestamp,
	)
	if err != nil {
		return nil, err
	}

	rec.JSONPath = jsonPath.String
	rec.Error = errMsg.String
	rec.ExportedAt = parseTimestamp(timestamp)

	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return nil, fmt.Errorf("failed to parse tags: %w", err)
	}
	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &rec.Stats); err != nil {
			return nil, fmt.Errorf("failed to parse stats: %w", err)
		}
	}
	return &rec, nil
}

// ListAssets returns the asset outcomes of a document.
// An empty status returns every asset; otherwise only assets with that status.
func (c *Catalog) ListAssets(ctx context.Context, documentID, status string) ([]AssetRecord, error) {
	query := `
	SELECT id, document_id, filename, source, status, bytes, error, updated_at
	FROM assets
	WHERE document_id = ?
	`
	args := []any{documentID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY id"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var results []AssetRecord
	for rows.Next() {
		var rec AssetRecord
		var status, timestamp string
		var errMsg sql.NullString

		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Filename, &rec.Source, &status, &rec.Bytes, &errMsg, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		parsed, err := model.ParseAssetStatus(status)
		if err != nil {
			return nil, fmt.Errorf("failed to parse asset status: %w", err)
		}
		rec.Status = parsed
		rec.Error = errMsg.String
		rec.UpdatedAt = parseTimestamp(timestamp)
		results = append(results, rec)
	}
	return results, rows.Err()
}

// SaveRun saves a complete run summary as JSON and returns its id.
func (c *Catalog) SaveRun(ctx context.Context, summary *model.RunSummary) (int64, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run summary: %w", err)
	}

	riskSummary := map[string]int{
		"high":   summary.HighCount,
		"medium": summary.MediumCount,
		"low":    summary.LowCount,
		"info":   summary.InfoCount,
	}
	riskJSON, _ := json.Marshal(riskSummary) //nolint:errcheck,errchkjson // riskSummary is a simple map; Marshal won't fail

	var finished any
	if !summary.FinishedAt.IsZero() {
		finished = summary.FinishedAt.UTC().Format(timeLayout)
	}

	query := `
	INSERT INTO export_runs (database_id, started_at, finished_at, clean, summary_json, risk_summary)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := c.db.ExecContext(ctx, query,
		summary.DatabaseID,
		summary.StartedAt.UTC().Format(timeLayout),
		finished,
		summary.Clean(),
		string(summaryJSON),
		string(riskJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return result.LastInsertId()
}

// GetLatestRun retrieves the most recent run of a database.
// It returns nil without error when the database was never exported.
func (c *Catalog) GetLatestRun(ctx context.Context, databaseID string) (*model.RunSummary, error) {
	query := `
	SELECT summary_json FROM export_runs
	WHERE database_id = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`
	return c.getRun(ctx, query, databaseID)
}

// GetRunByID retrieves a run summary by its database ID.
func (c *Catalog) GetRunByID(ctx context.Context, id int64) (*model.RunSummary, error) {
	return c.getRun(ctx, `SELECT summary_json FROM export_runs WHERE id = ?`, id)
}

func (c *Catalog) getRun(ctx context.Context, query string, arg any) (*model.RunSummary, error) {
	var summaryJSON string
	err := c.db.QueryRowContext(ctx, query, arg).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var summary model.RunSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}
	return &summary, nil
}

// ListDatabases returns the ids of every exported database.
func (c *Catalog) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT database_id FROM export_runs ORDER BY database_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan database id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RunMetadata contains summary information about a run.
// This is used for displaying run history without loading the full summary.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// DatabaseID is the exported Notion database.
	DatabaseID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run ended; zero if it never finished.
	FinishedAt time.Time

	// Clean is true when the run produced complete output with no failures.
	Clean bool

	// RiskSummary contains counts of findings by severity level.
	RiskSummary map[string]int
}

// GetRunHistory retrieves run metadata for a database, newest first.
func (c *Catalog) GetRunHistory(ctx context.Context, databaseID string) ([]RunMetadata, error) {
	query := `
	SELECT id, database_id, started_at, finished_at, clean, risk_summary
	FROM export_runs
	WHERE database_id = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := c.db.QueryContext(ctx, query, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var started string
		var finished, riskJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.DatabaseID, &started, &finished, &meta.Clean, &riskJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(started)
		if finished.Valid {
			meta.FinishedAt = parseTimestamp(finished.String)
		}

		meta.RiskSummary = make(map[string]int)
		if riskJSON.Valid && riskJSON.String != "" {
			if err := json.Unmarshal([]byte(riskJSON.String), &meta.RiskSummary); err != nil {
				meta.RiskSummary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}
	return results, rows.Err()
}

// StripQuery removes the query string and fragment from a URL.
// Signed file URLs expire and their query carries credentials, so only the
// stable part is stored.
func StripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	return u.String()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

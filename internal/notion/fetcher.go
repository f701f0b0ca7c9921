package notion

import (
	"context"
	"log/slog"
)

// Page size limits of the list endpoints.
const (
	// MaxPageSize is the largest page the API accepts.
	MaxPageSize = 100

	// DefaultPageSize is the page size FetchAll requests.
	DefaultPageSize = MaxPageSize
)

// CollectionKind selects a list endpoint.
type CollectionKind int

const (
	// KindBlockChildren lists the direct children of a block or page.
	KindBlockChildren CollectionKind = iota

	// KindDatabaseRows queries the rows (pages) of a database.
	KindDatabaseRows
)

// String returns the kind name used in logs.
func (k CollectionKind) String() string {
	switch k {
	case KindDatabaseRows:
		return "database_rows"
	default:
		return "block_children"
	}
}

// Collection identifies a paginated remote collection.
type Collection struct {
	Kind CollectionKind
	ID   string
}

// BlockChildren returns the collection of the direct children of id.
func BlockChildren(id string) Collection {
	return Collection{Kind: KindBlockChildren, ID: id}
}

// DatabaseRows returns the collection of the rows of database id.
func DatabaseRows(id string) Collection {
	return Collection{Kind: KindDatabaseRows, ID: id}
}

// Pager fetches one page of a collection. *Client implements it.
type Pager interface {
	ListPage(ctx context.Context, coll Collection, pageSize int, cursor string) (*Page, error)
}

// FetchResult is the outcome of walking a whole collection.
type FetchResult struct {
	// Items are all nodes of every successfully fetched page, in response order.
	Items []Node

	// Pages is the number of pages that were fetched successfully.
	Pages int

	// Complete is false when the walk stopped before the last page.
	Complete bool

	// Err is the error that ended an incomplete walk.
	Err error
}

// Fetcher turns a paginated collection into one ordered sequence.
type Fetcher struct {
	pager    Pager
	pageSize int
	logger   *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithPageSize sets the requested page size. Values outside 1..MaxPageSize
// are ignored.
func WithPageSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 1 && n <= MaxPageSize {
			f.pageSize = n
		}
	}
}

// WithFetcherLogger sets a custom logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher backed by pager.
func NewFetcher(pager Pager, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		pager:    pager,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll retrieves every item of coll, following cursors until the API
// stops returning one.
//
// A page failure ends the walk. Items of earlier pages are kept and the
// result is marked incomplete; the failed page contributes nothing.
func (f *Fetcher) FetchAll(ctx context.Context, coll Collection) FetchResult {
	var (
		result FetchResult
		cursor string
	)

	for {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		page, err := f.pager.ListPage(ctx, coll, f.pageSize, cursor)
		if err != nil {
			f.logger.Warn("collection fetch ended early",
				"kind", coll.Kind.String(),
				"id", coll.ID,
				"pages", result.Pages,
				"items", len(result.Items),
				"error", err,
			)
			result.Err = err
			return result
		}

		result.Items = append(result.Items, page.Items...)
		result.Pages++

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	result.Complete = true
	f.logger.Debug("collection fetched",
		"kind", coll.Kind.String(),
		"id", coll.ID,
		"pages", result.Pages,
		"items", len(result.Items),
	)
	return result
}

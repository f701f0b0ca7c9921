// Package notion provides access to the Notion REST API.
//
// The package covers the three calls the exporter needs:
//   - querying the rows of a database
//   - listing the direct children of a block (a page is a block)
//   - reading a single page property (used for multi-select tags)
//
// # Pagination
//
// Every list endpoint returns at most 100 items per response together with an
// opaque next_cursor. Fetcher.FetchAll follows the cursor until the API stops
// returning one and hands back a single ordered slice. The cursor itself never
// leaves this package.
//
// A failed page does not discard what was already fetched: FetchAll returns the
// accumulated items with Complete set to false and the error that ended the
// walk. Callers decide whether a short result is acceptable.
//
// # Retries
//
// Client retries transient failures (HTTP 429 and 5xx gateway errors, network
// errors) with exponential backoff, honoring Retry-After. A retry never drops
// pages that were already returned to the caller.
//
// # Usage
//
//	httpClient, err := notion.NewHTTPClient(30*time.Second, "")
//	client := notion.NewClient(httpClient, token)
//	fetcher := notion.NewFetcher(client)
//	result := fetcher.FetchAll(ctx, notion.BlockChildren(pageID))
//	if !result.Complete {
//	    // result.Items holds everything fetched before result.Err
//	}
package notion

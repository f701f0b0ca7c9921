// Package database provides the SQLite export catalog for notionsync.
//
// The Catalog stores:
//   - one record per exported document (title, tags, counters, content hash)
//   - the latest download outcome of every asset of a document
//   - the summary of every export run, for the status command
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// catalog is a single local file, the CGO-free driver keeps cross-compilation
// easy, and WAL mode lets status queries run while an export is writing.
package database

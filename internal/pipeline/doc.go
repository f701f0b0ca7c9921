// Package pipeline assembles exported documents from database rows.
//
// Each row runs through a Pipeline of steps: properties (title and tags),
// flatten (block tree to content list), download (images), inspect (EXIF
// privacy findings), write (pages/<id>.json, optional Markdown) and catalog
// (SQLite record). A BatchProcessor runs rows concurrently with errgroup, and
// the Exporter ties listing, batching, pages/index.json and the run summary
// together.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because it allows easy addition/removal of steps without modifying core
// logic and gives every step the same error handling and logging. Each
// document owns its pipeline, so no traversal state is shared across rows.
package pipeline

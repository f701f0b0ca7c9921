// Package model defines the core data structures used throughout notionsync.
//
// This package contains the following main types:
//   - ContentItem: one entry of a flattened document (text or image reference)
//   - AssetRef: a media file discovered while flattening, keyed by source URL
//   - Document: the exported record of one database row
//   - RunSummary: the counters of one export run, used by reports and the catalog
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, asset, pipeline, report and database packages all
// exchange these types.
//
// The models are designed to be serializable to JSON. Document serializes to the
// layout of pages/<id>.json.
package model

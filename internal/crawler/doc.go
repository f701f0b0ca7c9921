// Package crawler flattens a Notion block tree into an ordered content list.
//
// # Architecture
//
// The package is built around the Flattener type, which walks the children of
// a page depth-first in pre-order. It drives three collaborators:
//
//   - a Lister (notion.Fetcher) that returns the complete child list of a block
//   - the Classifier, which turns a block into text, an image URL, or nothing
//   - the FilenameResolver, which maps an image URL to a local filename
//
// Design decision: The walk uses an explicit stack of frames instead of
// recursion. Page trees are as deep as their authors make them, and an
// explicit stack lets every step check the context for cancellation.
//
// # Pass state
//
// Every call to Flatten owns a fresh pass: the visited set, the asset index
// keyed by source URL, the content list and the statistics. Nothing is shared
// between passes, so one Flattener can serve many documents concurrently.
//
// # Degradation
//
// Flatten never fails as a whole. A child list that cannot be fetched
// contributes the items fetched before the failure, and the result is marked
// incomplete. A block reached twice is skipped and counted as a cycle.
//
// # Usage
//
//	flattener := crawler.NewFlattener(fetcher, crawler.NewClassifier(), crawler.NewFilenameResolver())
//	result := flattener.Flatten(ctx, pageID)
//	if !result.Complete {
//	    // result.Content is partial; result.Stats says why
//	}
package crawler

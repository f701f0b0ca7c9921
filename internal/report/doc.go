// Package report renders export runs and exported documents for people.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown output for sharing, built with nao1215/markdown
//   - JSONWriter: Structured JSON output for tool integration
//
// DocumentRenderer turns one exported document into Markdown; the pipeline
// uses it to write pages/<id>.md next to the JSON export.
//
// Design decision: We separate report writing from the summary data
// structures (which are in the model package) so new output formats can be
// added without modifying the core data structures.
package report

// Package main provides the entry point for the notionsync CLI.
//
// notionsync exports the rows of a Notion database into a local directory:
// one JSON file per page, an index of every row, and the images the pages
// reference.
//
// Usage:
//
//	notionsync export
//	notionsync export <page-id>...
//	notionsync status
//
// See --help for all available options.
package main

// main is the entry point for notionsync.
func main() {
	Execute()
}

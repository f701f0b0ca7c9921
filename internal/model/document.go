package model

import (
	"time"

	"github.com/nao1215/notionsync/internal/notion"
)

// UntitledPrefix prefixes the title of rows without a title property value.
const UntitledPrefix = "Untitled Page - "

// FlattenStats counts what happened during one flatten pass.
// Any non-zero anomaly counter means the content may be incomplete.
type FlattenStats struct {
	// NodesVisited is the number of nodes taken off the traversal stack.
	NodesVisited int `json:"nodes_visited"`

	// Expansions is the number of child lists fetched.
	Expansions int `json:"expansions"`

	// FailedExpansions counts child lists that failed or were truncated.
	FailedExpansions int `json:"failed_expansions"`

	// CyclesSkipped counts nodes seen a second time in the same pass.
	CyclesSkipped int `json:"cycles_skipped"`

	// DepthLimited counts nodes whose children were not expanded because of
	// the configured maximum depth.
	DepthLimited int `json:"depth_limited"`

	// FilenameCollisions counts distinct URLs that resolved to a filename
	// already used by another URL.
	FilenameCollisions int `json:"filename_collisions"`
}

// Document is the exported record of one database row.
//
// The JSON layout is the pages/<id>.json file: id, title, tags and content,
// plus the completeness flag and the flatten statistics.
type Document struct {
	// ID is the Notion page id of the row.
	ID string `json:"id"`

	// Title is read from the row's title property.
	Title string `json:"title"`

	// Tags are read from the row's multi-select property.
	Tags []string `json:"tags"`

	// Content is the flattened body in pre-order.
	Content []ContentItem `json:"content"`

	// Complete is false when any part of the body could not be fetched.
	Complete bool `json:"complete"`

	// Stats are the flatten pass counters.
	Stats FlattenStats `json:"stats"`

	// ExportedAt is when the document was assembled.
	ExportedAt time.Time `json:"exported_at"`

	// Row is the database row the document is built from.
	Row *notion.Node `json:"-"`

	// Assets are the deduplicated media references of the body.
	Assets []AssetRef `json:"-"`

	// Outcomes are the download results, one per asset.
	Outcomes []AssetOutcome `json:"-"`

	// Findings are privacy findings raised while inspecting assets.
	Findings []Finding `json:"-"`

	// Warnings are non-fatal problems (failed tag lookup, write errors, ...).
	Warnings []string `json:"-"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"-"`

	// Err is set when a pipeline step failed.
	Err error `json:"-"`
}

// NewDocument creates a Document for a database row.
// Tags and Content are initialized so they serialize as [] rather than null.
func NewDocument(row notion.Node) *Document {
	return &Document{
		ID:         row.ID,
		Tags:       []string{},
		Content:    []ContentItem{},
		Complete:   true,
		ExportedAt: time.Now(),
		Row:        &row,
	}
}

// FallbackTitle returns the title used when the row has none.
func FallbackTitle(id string) string {
	return UntitledPrefix + id
}

// AddWarning records a non-fatal problem.
func (d *Document) AddWarning(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// AddFinding records a privacy finding, filling severity and guidance from the
// finding catalog.
func (d *Document) AddFinding(findingType, title, value, location string) {
	info := GetFindingInfo(findingType)
	d.Findings = append(d.Findings, Finding{
		Type:           findingType,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Title:          title,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	})
}

// AssetCounts tallies the download outcomes of the document.
func (d *Document) AssetCounts() AssetCounts {
	return CountOutcomes(d.Outcomes)
}

// Images returns the number of image items in the content.
func (d *Document) Images() int {
	n := 0
	for _, item := range d.Content {
		if item.IsImage() {
			n++
		}
	}
	return n
}

// ExifData contains EXIF metadata extracted from a downloaded image.
type ExifData struct {
	// Filename is the local asset name.
	Filename string `json:"filename"`

	// Make is the camera/device manufacturer.
	Make string `json:"make,omitempty"`

	// Model is the camera/device model.
	Model string `json:"model,omitempty"`

	// Software is the software used to process the image.
	Software string `json:"software,omitempty"`

	// DateTime is when the image was taken/created.
	DateTime string `json:"datetime,omitempty"` //nolint:tagliatelle // datetime is conventional

	// SerialNumber is the body or lens serial number, if recorded.
	SerialNumber string `json:"serial_number,omitempty"`

	// HasGPS indicates if GPS coordinates were found.
	HasGPS bool `json:"has_gps"`

	// GPS is the formatted "latitude / longitude" pair when HasGPS is set.
	GPS string `json:"gps,omitempty"`
}

package model

// Severity represents the importance of a finding raised during an export.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational findings.
	// Examples: EXIF camera make and model.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues with limited impact.
	// Examples: filename collisions between different URLs.
	SeverityLow

	// SeverityMedium indicates issues that warrant attention.
	// Examples: incomplete documents, failed downloads, device serial numbers.
	SeverityMedium

	// SeverityHigh indicates serious issues.
	// Examples: GPS coordinates embedded in a published image.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Finding types.
const (
	FindingExifGPS           = "exif_gps"
	FindingExifSerial        = "exif_serial_number"
	FindingExifDevice        = "exif_device"
	FindingIncomplete        = "incomplete_document"
	FindingAssetFailed       = "asset_failed"
	FindingFilenameCollision = "filename_collision"
	FindingCycle             = "cycle_detected"
)

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
var findingInfoMapping = map[string]FindingInfo{
	FindingExifGPS: {
		Severity:       SeverityHigh,
		Impact:         "The image embeds GPS coordinates that reveal where it was taken.",
		Recommendation: "Strip EXIF metadata from the image in Notion and export again.",
	},
	FindingExifSerial: {
		Severity:       SeverityMedium,
		Impact:         "The image embeds a device serial number that links it to a specific camera.",
		Recommendation: "Strip EXIF metadata before publishing the exported images.",
	},
	FindingIncomplete: {
		Severity:       SeverityMedium,
		Impact:         "Part of the page body could not be fetched; the exported content is truncated.",
		Recommendation: "Re-run the export. Check the log for the failing block.",
	},
	FindingAssetFailed: {
		Severity:       SeverityMedium,
		Impact:         "An image referenced by the page was not downloaded.",
		Recommendation: "Re-run the export; existing files are skipped so only missing images are fetched.",
	},
	FindingFilenameCollision: {
		Severity:       SeverityLow,
		Impact:         "Two different images resolve to the same local filename; only one survives on disk.",
		Recommendation: "Enable uniqueNames in the configuration.",
	},
	FindingCycle: {
		Severity:       SeverityLow,
		Impact:         "A block appeared twice in the same page tree and was exported once.",
		Recommendation: "No action needed unless content appears to be missing.",
	},
	FindingExifDevice: {
		Severity:       SeverityInfo,
		Impact:         "The image records the camera or software that produced it.",
		Recommendation: "Strip EXIF metadata if the device should not be disclosed.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess risk.",
	}
}

// Finding is a single issue raised while exporting a document.
type Finding struct {
	// Type is the finding type identifier.
	Type string `json:"type"`

	// Severity is the importance level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Impact explains the implications of this finding.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address this finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the specific value found (coordinates, serial, URL, ...).
	Value string `json:"value,omitempty"`

	// Location is the document id or asset filename the finding belongs to.
	Location string `json:"location,omitempty"`
}

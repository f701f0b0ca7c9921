package model

import "fmt"

// AssetStatus is the result of one download attempt.
type AssetStatus int

const (
	// AssetDownloaded means the file was fetched and written.
	AssetDownloaded AssetStatus = iota

	// AssetSkippedExisting means a file with the same name already existed,
	// so no transfer was made.
	AssetSkippedExisting

	// AssetFailed means the transfer or the write failed. No file was left behind.
	AssetFailed
)

// String returns the status name used in logs, reports and the catalog.
func (s AssetStatus) String() string {
	switch s {
	case AssetDownloaded:
		return "downloaded"
	case AssetSkippedExisting:
		return "skipped-existing"
	case AssetFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s AssetStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AssetStatus) UnmarshalText(text []byte) error {
	status, err := ParseAssetStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseAssetStatus is the inverse of AssetStatus.String.
func ParseAssetStatus(s string) (AssetStatus, error) {
	switch s {
	case "downloaded":
		return AssetDownloaded, nil
	case "skipped-existing":
		return AssetSkippedExisting, nil
	case "failed":
		return AssetFailed, nil
	default:
		return 0, fmt.Errorf("unknown asset status %q", s)
	}
}

// AssetOutcome records what happened to one AssetRef.
type AssetOutcome struct {
	// Asset is the reference that was processed.
	Asset AssetRef `json:"asset"`

	// Status is the result.
	Status AssetStatus `json:"status"`

	// Bytes is the number of bytes written; zero unless downloaded.
	Bytes int64 `json:"bytes,omitempty"`

	// Err is the failure cause when Status is AssetFailed.
	Err error `json:"-"`
}

// AssetCounts tallies outcomes by status.
type AssetCounts struct {
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Total returns the number of outcomes counted.
func (c AssetCounts) Total() int {
	return c.Downloaded + c.Skipped + c.Failed
}

// Add merges other into c.
func (c *AssetCounts) Add(other AssetCounts) {
	c.Downloaded += other.Downloaded
	c.Skipped += other.Skipped
	c.Failed += other.Failed
}

// CountOutcomes tallies outcomes by status.
func CountOutcomes(outcomes []AssetOutcome) AssetCounts {
	var c AssetCounts
	for _, o := range outcomes {
		switch o.Status {
		case AssetDownloaded:
			c.Downloaded++
		case AssetSkippedExisting:
			c.Skipped++
		case AssetFailed:
			c.Failed++
		}
	}
	return c
}

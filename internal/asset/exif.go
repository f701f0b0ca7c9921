package asset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/notionsync/internal/model"
)

// defaultMaxInspectBytes bounds how much of an image is read for EXIF.
const defaultMaxInspectBytes = 16 * 1024 * 1024

// exifFilePattern matches formats that carry EXIF blocks.
var exifFilePattern = regexp.MustCompile(`(?i)\.(jpe?g|tiff?|heic)$`)

// Inspector extracts EXIF metadata from downloaded images.
//
// This inspector checks for:
//   - GPS coordinates (location disclosure)
//   - Camera make/model/serial (device identification)
//   - Software information (editing software, OS)
//   - Timestamps
type Inspector struct {
	// maxBytes limits the size of images to read.
	maxBytes int64
}

// NewInspector creates a new Inspector.
func NewInspector() *Inspector {
	return &Inspector{maxBytes: defaultMaxInspectBytes}
}

// Supports reports whether filename has a format that may carry EXIF.
func (i *Inspector) Supports(filename string) bool {
	return exifFilePattern.MatchString(filename)
}

// InspectFile reads the file at path and returns its EXIF metadata.
// It returns nil without error when the file has no EXIF block.
func (i *Inspector) InspectFile(path string) (*model.ExifData, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, &FilesystemError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, i.maxBytes))
	if err != nil {
		return nil, &FilesystemError{Op: "read", Path: path, Err: err}
	}
	return i.Inspect(data, filepath.Base(path)), nil
}

// Inspect extracts EXIF metadata from image bytes.
// It returns nil when data carries no readable EXIF block.
func (i *Inspector) Inspect(data []byte, filename string) *model.ExifData {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	result := &model.ExifData{Filename: filename}
	var lat, lon string
	for _, entry := range entries {
		value := strings.TrimSpace(entry.Formatted)
		switch entry.TagName {
		case "GPSLatitude":
			lat = value
		case "GPSLongitude":
			lon = value
		case "Make":
			result.Make = value
		case "Model":
			result.Model = value
		case "Software", "ProcessingSoftware":
			if result.Software == "" {
				result.Software = value
			}
		case "DateTimeOriginal", "DateTime":
			if result.DateTime == "" {
				result.DateTime = value
			}
		case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
			if result.SerialNumber == "" {
				result.SerialNumber = value
			}
		}
	}
	if lat != "" || lon != "" {
		result.HasGPS = true
		result.GPS = fmt.Sprintf("%s / %s", lat, lon)
	}
	return result
}

package crawler

import (
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxNameRunes bounds the name portion of a filename, extension excluded.
	DefaultMaxNameRunes = 100

	// defaultImageExt is used when no extension can be inferred from the URL.
	defaultImageExt = ".jpg"

	// maxExtLen bounds what is accepted as an extension, dot included.
	maxExtLen = 9

	// hashSuffixLen is the number of hex digits appended in unique mode.
	hashSuffixLen = 8

	// placeholder replaces characters that are unsafe in filenames.
	placeholder = '_'
)

// FilenameResolver maps an image URL to a local filename.
//
// Resolve is a pure function of its inputs: the same (sourceURL, nodeID) pair
// always yields the same filename.
type FilenameResolver struct {
	unique       bool
	maxNameRunes int
}

// ResolverOption configures a FilenameResolver.
type ResolverOption func(*FilenameResolver)

// WithUniqueNames appends a short hash of the URL to every filename so that
// different URLs never share a name.
func WithUniqueNames(unique bool) ResolverOption {
	return func(r *FilenameResolver) {
		r.unique = unique
	}
}

// WithMaxNameRunes sets the maximum length of the name portion.
func WithMaxNameRunes(n int) ResolverOption {
	return func(r *FilenameResolver) {
		if n > 0 {
			r.maxNameRunes = n
		}
	}
}

// NewFilenameResolver creates a FilenameResolver.
func NewFilenameResolver(opts ...ResolverOption) *FilenameResolver {
	r := &FilenameResolver{maxNameRunes: DefaultMaxNameRunes}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the local filename for sourceURL.
//
// The name is the last segment of the URL path, with query and fragment
// ignored. When that segment has no usable extension the name becomes
// image_<segment>.jpg from the last non-empty segment, and when the path has
// no segment at all it becomes <nodeID>.jpg.
func (r *FilenameResolver) Resolve(sourceURL, nodeID string) string {
	name, ext := r.candidate(sourceURL, nodeID)

	name = truncateRunes(sanitize(name), r.maxNameRunes)
	if r.unique {
		sum := sha3.Sum256([]byte(sourceURL))
		name += "-" + hex.EncodeToString(sum[:])[:hashSuffixLen]
	}
	return name + ext
}

// candidate splits the unsanitized name and extension out of the URL.
func (r *FilenameResolver) candidate(sourceURL, nodeID string) (string, string) {
	var segments []string
	if u, err := url.Parse(sourceURL); err == nil {
		// Split before decoding so an encoded slash stays inside its segment.
		for _, seg := range strings.Split(u.EscapedPath(), "/") {
			if decoded, err := url.PathUnescape(seg); err == nil {
				seg = decoded
			}
			segments = append(segments, seg)
		}
	}

	if len(segments) > 0 {
		last := norm.NFC.String(segments[len(segments)-1])
		if ext := usableExt(last); ext != "" {
			return strings.TrimSuffix(last, ext), ext
		}
	}

	for i := len(segments) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(segments[i]); seg != "" {
			return "image_" + norm.NFC.String(seg), defaultImageExt
		}
	}

	if nodeID == "" {
		return "image", defaultImageExt
	}
	return nodeID, defaultImageExt
}

// usableExt returns the extension of name if it is short, alphanumeric and
// preceded by a non-empty base name.
func usableExt(name string) string {
	ext := path.Ext(name)
	if len(ext) < 2 || len(ext) > maxExtLen || len(ext) == len(name) {
		return ""
	}
	for _, c := range ext[1:] {
		if c > unicode.MaxASCII || !(unicode.IsLetter(c) || unicode.IsDigit(c)) {
			return ""
		}
	}
	return ext
}

// sanitize replaces characters that are unsafe in filenames on common
// filesystems, and leading dots, with the placeholder.
func sanitize(name string) string {
	name = norm.NFC.String(name)

	var sb strings.Builder
	sb.Grow(len(name))
	leading := true
	for _, c := range name {
		switch {
		case leading && c == '.':
			sb.WriteRune(placeholder)
			continue
		case isUnsafe(c):
			sb.WriteRune(placeholder)
		default:
			sb.WriteRune(c)
		}
		leading = false
	}

	if sb.Len() == 0 {
		return string(placeholder)
	}
	return sb.String()
}

// isUnsafe reports whether c must not appear in a filename.
func isUnsafe(c rune) bool {
	switch c {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return unicode.IsControl(c)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

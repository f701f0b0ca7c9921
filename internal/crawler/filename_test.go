package crawler

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFilenameResolver_Resolve(t *testing.T) {
	t.Parallel()

	r := NewFilenameResolver()

	tests := []struct {
		name     string
		url      string
		nodeID   string
		expected string
	}{
		{"basename with extension", "https://x/a.png", "n", "a.png"},
		{"query and fragment are ignored", "https://s3.amazonaws.com/ws/id/photo.JPG?X-Amz-Signature=abc#frag", "n", "photo.JPG"},
		{"percent encoded name is decoded", "https://x/%E5%86%99%E7%9C%9F.png", "n", "写真.png"},
		{"unsafe characters are replaced", "https://x/a%3Ab%2Ac%3F%22d%3C%3E%7C.png", "n", "a_b_c__d___.png"},
		{"encoded slash stays in the name", "https://x/a%2Fb.png", "n", "a_b.png"},
		{"encoded slash without extension", "https://x/dir/a%2Fb", "n", "image_a_b.jpg"},
		{"leading dots are replaced", "https://x/..hidden.png", "n", "__hidden.png"},
		{"no extension uses the segment", "https://x/images/abc123", "n", "image_abc123.jpg"},
		{"trailing slash uses the previous segment", "https://x/images/abc/", "n", "image_abc.jpg"},
		{"no path uses the node id", "https://x", "node-1", "node-1.jpg"},
		{"root path uses the node id", "https://x/", "node-1", "node-1.jpg"},
		{"unparseable url uses the node id", "://bad url", "node-1", "node-1.jpg"},
		{"bare extension is not usable", "https://x/.png", "n", "image_.png.jpg"},
		{"non alphanumeric extension is not usable", "https://x/file.p-g", "n", "image_file.p-g.jpg"},
		{"empty node id falls back to image", "", "", "image.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := r.Resolve(tt.url, tt.nodeID); got != tt.expected {
				t.Errorf("Resolve(%q, %q) = %q, expected %q", tt.url, tt.nodeID, got, tt.expected)
			}
		})
	}
}

func TestFilenameResolver_Deterministic(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://x/a.png",
		"https://x/dir/",
		"https://x",
		"https://s3/ws/id/image.png?sig=1",
	}

	for _, unique := range []bool{false, true} {
		r := NewFilenameResolver(WithUniqueNames(unique))
		for _, u := range urls {
			first := r.Resolve(u, "node")
			second := r.Resolve(u, "node")
			if first != second {
				t.Errorf("unique=%v: Resolve(%q) not deterministic: %q vs %q", unique, u, first, second)
			}
		}
	}
}

func TestFilenameResolver_Truncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("あ", 150)
	got := NewFilenameResolver().Resolve("https://x/"+long+".png", "n")

	if !strings.HasSuffix(got, ".png") {
		t.Errorf("extension lost: %q", got)
	}
	name := strings.TrimSuffix(got, ".png")
	if n := utf8.RuneCountInString(name); n != DefaultMaxNameRunes {
		t.Errorf("name has %d runes, expected %d", n, DefaultMaxNameRunes)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}

	short := NewFilenameResolver(WithMaxNameRunes(3)).Resolve("https://x/abcdef.gif", "n")
	if short != "abc.gif" {
		t.Errorf("got %q, expected abc.gif", short)
	}
}

func TestFilenameResolver_UniqueNames(t *testing.T) {
	t.Parallel()

	r := NewFilenameResolver(WithUniqueNames(true))
	a := r.Resolve("https://s3/one/image.png", "n")
	b := r.Resolve("https://s3/two/image.png", "n")

	if a == b {
		t.Fatalf("expected different names, got %q twice", a)
	}
	for _, name := range []string{a, b} {
		if !strings.HasPrefix(name, "image-") || !strings.HasSuffix(name, ".png") {
			t.Errorf("unexpected shape %q", name)
		}
		if len(name) != len("image-")+hashSuffixLen+len(".png") {
			t.Errorf("unexpected length of %q", name)
		}
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, expected string
	}{
		{"plain", "plain"},
		{"a/b\\c", "a_b_c"},
		{"tab\there", "tab_here"},
		{"...x", "___x"},
		{"x.y", "x.y"},
		{"", "_"},
		// Decomposed e + combining acute normalizes to the single NFC rune.
		{"e\u0301", "\u00e9"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.expected {
			t.Errorf("sanitize(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

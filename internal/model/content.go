package model

// Content item types. Text items may also carry any other rich-text block type
// enabled in the configuration (e.g. "heading_1"), which keeps its type name.
const (
	// KindParagraph is a paragraph block.
	KindParagraph = "paragraph"

	// KindQuote is a quote block.
	KindQuote = "quote"

	// KindImage is an image reference.
	KindImage = "image"
)

// ContentItem is one entry of a flattened document.
//
// Text items set Text; image items set Filename. The JSON layout matches the
// "content" array of pages/<id>.json:
//
//	{"type": "paragraph", "text": "Hello"}
//	{"type": "image", "filename": "a.png"}
type ContentItem struct {
	// Type is KindImage or the text kind of the source block.
	Type string `json:"type"`

	// Text is the concatenated plain text of a text block.
	Text string `json:"text,omitempty"`

	// Filename is the local filename of an image.
	Filename string `json:"filename,omitempty"`
}

// TextItem returns a text content item of the given kind.
func TextItem(kind, text string) ContentItem {
	return ContentItem{Type: kind, Text: text}
}

// ImageItem returns an image content item.
func ImageItem(filename string) ContentItem {
	return ContentItem{Type: KindImage, Filename: filename}
}

// IsImage reports whether the item references an image.
func (c ContentItem) IsImage() bool {
	return c.Type == KindImage
}

// AssetRef is a media file to fetch. There is at most one AssetRef per
// distinct SourceURL in a document.
type AssetRef struct {
	// SourceURL is the remote URL the bytes are fetched from.
	// Notion-hosted URLs are pre-signed and expire after about an hour.
	SourceURL string `json:"source_url"`

	// Filename is the local name under the images directory.
	Filename string `json:"filename"`
}

package notion

import (
	"encoding/json"
	"strings"
)

// Object types returned in the "object" member.
const (
	ObjectBlock = "block"
	ObjectPage  = "page"
	ObjectList  = "list"
)

// Block types the exporter understands. Anything else is treated as an
// opaque container that may still have children.
const (
	TypeParagraph = "paragraph"
	TypeQuote     = "quote"
	TypeImage     = "image"
)

// Node is one element returned by a list endpoint: a block when listing
// children, a page when querying a database.
//
// The type-specific member (for a paragraph block that is the "paragraph"
// object) is kept undecoded in Payload so that unknown block types survive
// decoding without a schema.
type Node struct {
	// ID is the Notion UUID of the block or page.
	ID string `json:"id"`

	// Object is "block" or "page".
	Object string `json:"object"`

	// Type is the block type ("paragraph", "quote", "image", ...).
	// Empty for pages.
	Type string `json:"type,omitempty"`

	// HasChildren reports whether the block has nested blocks to list.
	HasChildren bool `json:"has_children"`

	// Archived is true for blocks or pages moved to the trash.
	Archived bool `json:"archived,omitempty"`

	// Properties holds page properties keyed by property name.
	// Only set for database rows.
	Properties map[string]Property `json:"properties,omitempty"`

	// Payload is the raw JSON of the member named after Type.
	Payload json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the common members and captures the type payload.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = Node(p)

	if n.Type == "" {
		return nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if raw, ok := members[n.Type]; ok {
		n.Payload = raw
	}
	return nil
}

// RichText is one run of a rich_text array.
type RichText struct {
	// Type is "text", "mention" or "equation".
	Type string `json:"type"`

	// Text is set when Type is "text".
	Text *TextContent `json:"text,omitempty"`

	// PlainText is the rendered text of any rich text type.
	PlainText string `json:"plain_text,omitempty"`
}

// TextContent is the content of a "text" rich text run.
type TextContent struct {
	Content string `json:"content"`
}

// RichTextPayload is the payload shape shared by every text-bearing block
// (paragraph, quote, headings, list items, callouts, to-dos, toggles).
type RichTextPayload struct {
	RichText []RichText `json:"rich_text"`
}

// FileObject is the payload of file-bearing blocks such as images.
// Exactly one of File and External is normally set.
type FileObject struct {
	// Type is "file" for Notion-hosted files and "external" for linked ones.
	Type string `json:"type,omitempty"`

	// File is set for Notion-hosted uploads. The URL is pre-signed and expires.
	File *FileURL `json:"file,omitempty"`

	// External is set for images linked from elsewhere.
	External *FileURL `json:"external,omitempty"`
}

// FileURL carries the URL of a file object.
type FileURL struct {
	URL string `json:"url"`
}

// SelectOption is one option of a select or multi_select property.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Property is a page property value. Only the property types the exporter
// reads are decoded.
type Property struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
}

// PlainTitle joins the plain text of every run of a title property.
func (p Property) PlainTitle() string {
	var sb strings.Builder
	for _, rt := range p.Title {
		if rt.PlainText != "" {
			sb.WriteString(rt.PlainText)
			continue
		}
		if rt.Text != nil {
			sb.WriteString(rt.Text.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}

// TagNames returns the names of a multi_select property in order.
func (p Property) TagNames() []string {
	names := make([]string, 0, len(p.MultiSelect))
	for _, opt := range p.MultiSelect {
		names = append(names, opt.Name)
	}
	return names
}

// listResponse is the envelope of every paginated endpoint.
type listResponse struct {
	Object     string  `json:"object"`
	Results    *[]Node `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// apiError is the body Notion returns with non-success status codes.
type apiError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

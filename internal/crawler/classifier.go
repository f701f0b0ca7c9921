package crawler

import (
	"encoding/json"
	"strings"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

// NodeKind is the classification of a block.
type NodeKind int

const (
	// OtherNode produces no content item. Its children are still walked.
	OtherNode NodeKind = iota

	// TextNode produces a text item.
	TextNode

	// ImageNode produces an image item and an asset.
	ImageNode
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case TextNode:
		return "text"
	case ImageNode:
		return "image"
	default:
		return "other"
	}
}

// Classified is the result of classifying one block.
type Classified struct {
	Kind NodeKind

	// TextKind is the content item type of a TextNode ("paragraph", "quote", ...).
	TextKind string

	// Text is the trimmed text of a TextNode.
	Text string

	// URL is the source URL of an ImageNode.
	URL string
}

// DefaultTextKinds are the block types exported as text.
var DefaultTextKinds = []string{model.KindParagraph, model.KindQuote}

// Classifier decides what a block contributes to a document.
// It is stateless after construction and safe for concurrent use.
type Classifier struct {
	textKinds map[string]struct{}
}

// NewClassifier creates a Classifier for DefaultTextKinds plus extra.
// Extra kinds must be block types whose payload carries a rich_text array
// (heading_1, bulleted_list_item, callout, to_do, toggle, ...).
func NewClassifier(extra ...string) *Classifier {
	c := &Classifier{textKinds: make(map[string]struct{}, len(DefaultTextKinds)+len(extra))}
	for _, kind := range DefaultTextKinds {
		c.textKinds[kind] = struct{}{}
	}
	for _, kind := range extra {
		kind = strings.TrimSpace(kind)
		if kind == "" || kind == notion.TypeImage {
			continue
		}
		c.textKinds[kind] = struct{}{}
	}
	return c
}

// TextKinds returns the configured text block types.
func (c *Classifier) TextKinds() []string {
	kinds := make([]string, 0, len(c.textKinds))
	for kind := range c.textKinds {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Classify returns what node contributes. It has no side effects.
func (c *Classifier) Classify(node notion.Node) Classified {
	if node.Type == notion.TypeImage {
		return classifyImage(node.Payload)
	}
	if _, ok := c.textKinds[node.Type]; ok {
		return classifyText(node.Type, node.Payload)
	}
	return Classified{Kind: OtherNode}
}

// classifyText concatenates the content of every "text" run. Mentions and
// equations are skipped. Whitespace-only text produces nothing.
func classifyText(kind string, payload json.RawMessage) Classified {
	if len(payload) == 0 {
		return Classified{Kind: OtherNode}
	}

	var p notion.RichTextPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Classified{Kind: OtherNode}
	}

	var sb strings.Builder
	for _, rt := range p.RichText {
		if rt.Type != "text" || rt.Text == nil {
			continue
		}
		sb.WriteString(rt.Text.Content)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Classified{Kind: OtherNode}
	}
	return Classified{Kind: TextNode, TextKind: kind, Text: text}
}

// classifyImage prefers the Notion-hosted file URL over an external one.
func classifyImage(payload json.RawMessage) Classified {
	if len(payload) == 0 {
		return Classified{Kind: OtherNode}
	}

	var f notion.FileObject
	if err := json.Unmarshal(payload, &f); err != nil {
		return Classified{Kind: OtherNode}
	}

	if f.File != nil && f.File.URL != "" {
		return Classified{Kind: ImageNode, URL: f.File.URL}
	}
	if f.External != nil && f.External.URL != "" {
		return Classified{Kind: ImageNode, URL: f.External.URL}
	}
	return Classified{Kind: OtherNode}
}

package report

import (
	"io"
	"path"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/nao1215/notionsync/internal/model"
)

// DefaultImagePrefix is the image path used in rendered documents: the
// Markdown file lives in pages/ and the images in the sibling images/.
const DefaultImagePrefix = "../images"

// DocumentRenderer renders one exported document as Markdown.
// It is stateless and safe for concurrent use.
type DocumentRenderer struct {
	imagePrefix string
}

// DocumentRendererOption configures a DocumentRenderer.
type DocumentRendererOption func(*DocumentRenderer)

// WithImagePrefix sets the path prepended to image file names.
func WithImagePrefix(prefix string) DocumentRendererOption {
	return func(r *DocumentRenderer) {
		r.imagePrefix = prefix
	}
}

// NewDocumentRenderer creates a DocumentRenderer.
func NewDocumentRenderer(opts ...DocumentRendererOption) *DocumentRenderer {
	r := &DocumentRenderer{imagePrefix: DefaultImagePrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderDocument writes doc as Markdown: the title as a heading, the tags,
// and the content items in order. Consecutive list items are grouped into
// one list.
func (r *DocumentRenderer) RenderDocument(w io.Writer, doc *model.Document) error {
	md := markdown.NewMarkdown(w)

	md.H1(doc.Title)
	md.PlainText("")
	if len(doc.Tags) > 0 {
		tags := make([]string, len(doc.Tags))
		for i, t := range doc.Tags {
			tags[i] = "`" + t + "`"
		}
		md.PlainText("Tags: " + strings.Join(tags, " "))
		md.PlainText("")
	}

	var bullets, numbers []string
	flush := func() {
		if len(bullets) > 0 {
			md.BulletList(bullets...)
			md.PlainText("")
			bullets = nil
		}
		if len(numbers) > 0 {
			md.OrderedList(numbers...)
			md.PlainText("")
			numbers = nil
		}
	}

	for _, item := range doc.Content {
		switch item.Type {
		case "bulleted_list_item":
			if len(numbers) > 0 {
				flush()
			}
			bullets = append(bullets, item.Text)
			continue
		case "numbered_list_item":
			if len(bullets) > 0 {
				flush()
			}
			numbers = append(numbers, item.Text)
			continue
		}
		flush()

		switch item.Type {
		case model.KindImage:
			md.PlainText(markdown.Image(item.Filename, path.Join(r.imagePrefix, item.Filename)))
		case model.KindQuote:
			md.Blockquote(item.Text)
		case "heading_1":
			md.H2(item.Text)
		case "heading_2":
			md.H3(item.Text)
		case "heading_3":
			md.H4(item.Text)
		case "code":
			md.CodeBlocks(markdown.SyntaxHighlightNone, item.Text)
		default:
			md.PlainText(item.Text)
		}
		md.PlainText("")
	}
	flush()

	if !doc.Complete {
		md.Warning("This document is incomplete: part of its body could not be fetched.")
	}

	return md.Build()
}

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/notionsync/internal/asset"
	"github.com/nao1215/notionsync/internal/model"
)

// IndexFilename is the file listing every exported document.
const IndexFilename = "index.json"

// DocumentFilename returns the file name of a document's JSON export.
func DocumentFilename(id string) string {
	return id + ".json"
}

// checkID rejects ids that would escape the pages directory.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrUnsafeID, id)
	}
	return nil
}

// encodeJSON renders v with two-space indentation and without HTML escaping,
// so non-ASCII text and "<" stay readable in the output files.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDocument renders the pages/<id>.json body of a document.
func EncodeDocument(doc *model.Document) ([]byte, error) {
	data, err := encodeJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	return data, nil
}

// WriteDocument atomically writes pages/<id>.json and returns its path.
// A failed write leaves any previous export of the document untouched.
func WriteDocument(ctx context.Context, dir string, doc *model.Document) (string, error) {
	if err := checkID(doc.ID); err != nil {
		return "", err
	}
	data, err := EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, DocumentFilename(doc.ID))
	if err := writeFile(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMarkdown atomically writes pages/<id>.md rendered by r and returns its path.
func WriteMarkdown(ctx context.Context, dir string, doc *model.Document, r DocumentRenderer) (string, error) {
	if err := checkID(doc.ID); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.RenderDocument(&buf, doc); err != nil {
		return "", fmt.Errorf("render document %s: %w", doc.ID, err)
	}
	path := filepath.Join(dir, doc.ID+".md")
	if err := writeFile(ctx, path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteIndex writes pages/index.json: a JSON array of "<id>.json" names,
// one per row, in row order.
func WriteIndex(ctx context.Context, dir string, ids []string) (string, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return "", err
		}
		names = append(names, DocumentFilename(id))
	}
	data, err := encodeJSON(names)
	if err != nil {
		return "", fmt.Errorf("encode index: %w", err)
	}
	path := filepath.Join(dir, IndexFilename)
	if err := writeFile(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(ctx context.Context, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), asset.DirPerm); err != nil {
		return &asset.FilesystemError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	if _, err := asset.WriteFileAtomic(ctx, path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

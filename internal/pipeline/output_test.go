package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/notionsync/internal/model"
)

func TestWriteDocument(t *testing.T) {
	t.Parallel()

	t.Run("layout", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "pages")
		doc := newDoc("abc")
		doc.Title = "Café <draft>"
		doc.Tags = []string{"a"}
		doc.Content = []model.ContentItem{
			model.TextItem(model.KindParagraph, "Hello"),
			model.ImageItem("a.png"),
		}

		path, err := WriteDocument(context.Background(), dir, doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != filepath.Join(dir, "abc.json") {
			t.Errorf("path = %q", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		for _, want := range []string{
			`  "id": "abc",`,
			`"title": "Café <draft>"`,
			`"filename": "a.png"`,
		} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in output:\n%s", want, text)
			}
		}

		var decoded struct {
			ID      string              `json:"id"`
			Title   string              `json:"title"`
			Tags    []string            `json:"tags"`
			Content []model.ContentItem `json:"content"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if diff := cmp.Diff(doc.Content, decoded.Content); diff != "" {
			t.Errorf("content mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty lists are arrays", func(t *testing.T) {
		t.Parallel()

		path, err := WriteDocument(context.Background(), t.TempDir(), newDoc("empty"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"tags": []`) || !strings.Contains(string(data), `"content": []`) {
			t.Errorf("expected empty arrays:\n%s", data)
		}
	})

	t.Run("rejects unsafe ids", func(t *testing.T) {
		t.Parallel()

		for _, id := range []string{"", ".", "..", "a/b", `a\b`, "a\x00b"} {
			if _, err := WriteDocument(context.Background(), t.TempDir(), newDoc(id)); !errors.Is(err, ErrUnsafeID) {
				t.Errorf("id %q: expected ErrUnsafeID, got %v", id, err)
			}
		}
	})
}

func TestWriteIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WriteIndex(context.Background(), dir, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n  \"a.json\",\n  \"b.json\"\n]\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}

	t.Run("empty index", func(t *testing.T) {
		t.Parallel()

		path, err := WriteIndex(context.Background(), t.TempDir(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "[]\n" {
			t.Errorf("index = %q, want []", data)
		}
	})
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := newDoc("p1")
	doc.Title = "T"
	path, err := WriteMarkdown(context.Background(), dir, doc, &fakeRenderer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "p1.md" {
		t.Errorf("path = %q", path)
	}
}

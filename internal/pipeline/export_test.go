package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/notionsync/internal/model"
	"github.com/nao1215/notionsync/internal/notion"
)

type fakeRowLister struct {
	result notion.FetchResult
}

func (f *fakeRowLister) FetchAll(_ context.Context, _ notion.Collection) notion.FetchResult {
	return f.result
}

type fakeRunStore struct {
	mu   sync.Mutex
	runs []*model.RunSummary
}

func (f *fakeRunStore) SaveRun(_ context.Context, summary *model.RunSummary) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, summary)
	return int64(len(f.runs)), nil
}

func newTestExporter(t *testing.T, rows notion.FetchResult, runs *fakeRunStore) (*Exporter, string) {
	t.Helper()

	pages := filepath.Join(t.TempDir(), "pages")
	factory := func() *Pipeline {
		return DefaultPipeline(Components{
			Properties: &fakePropertyReader{},
			Flattener:  &fakeFlattener{},
			Downloader: &fakeDownloader{},
		}, []Option{WithLogger(quietLogger())},
			WithPipelineDirs(pages, filepath.Join(filepath.Dir(pages), "images")),
		)
	}
	batch := NewBatchProcessor(factory, WithBatchLogger(quietLogger()))
	return NewExporter(&fakeRowLister{result: rows}, batch, pages,
		WithRunStore(runs), WithExporterLogger(quietLogger())), pages
}

func readIndex(t *testing.T, pages string) []string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(pages, IndexFilename))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	return names
}

func TestExporterExport(t *testing.T) {
	t.Parallel()

	t.Run("exports every row", func(t *testing.T) {
		t.Parallel()

		runs := &fakeRunStore{}
		e, pages := newTestExporter(t, notion.FetchResult{
			Items:    []notion.Node{titleRow("a", "A"), titleRow("b", "")},
			Complete: true,
		}, runs)

		summary, err := e.Export(context.Background(), "db", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Rows != 2 || summary.Documents != 2 || !summary.Clean() {
			t.Errorf("unexpected summary: %+v", summary)
		}
		for _, id := range []string{"a", "b"} {
			if _, err := os.Stat(filepath.Join(pages, id+".json")); err != nil {
				t.Errorf("document %s not written: %v", id, err)
			}
		}
		if diff := cmp.Diff([]string{"a.json", "b.json"}, readIndex(t, pages)); diff != "" {
			t.Errorf("index mismatch (-want +got):\n%s", diff)
		}
		if len(runs.runs) != 1 || runs.runs[0].FinishedAt.IsZero() {
			t.Errorf("expected one finished run recorded, got %d", len(runs.runs))
		}
	})

	t.Run("subset still indexes every row", func(t *testing.T) {
		t.Parallel()

		e, pages := newTestExporter(t, notion.FetchResult{
			Items: []notion.Node{
				titleRow("11111111-2222-3333-4444-555555555555", "A"),
				titleRow("b", "B"),
			},
			Complete: true,
		}, &fakeRunStore{})

		summary, err := e.Export(context.Background(), "db", []string{"11111111222233334444555555555555"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Documents != 1 {
			t.Errorf("expected 1 document, got %d", summary.Documents)
		}
		if _, err := os.Stat(filepath.Join(pages, "b.json")); !os.IsNotExist(err) {
			t.Errorf("unselected row should not be written, stat err = %v", err)
		}
		want := []string{"11111111-2222-3333-4444-555555555555.json", "b.json"}
		if diff := cmp.Diff(want, readIndex(t, pages)); diff != "" {
			t.Errorf("index mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("truncated listing is not clean", func(t *testing.T) {
		t.Parallel()

		e, _ := newTestExporter(t, notion.FetchResult{
			Items:    []notion.Node{titleRow("a", "A")},
			Complete: false,
			Err:      errors.New("page 2 failed"),
		}, &fakeRunStore{})

		summary, err := e.Export(context.Background(), "db", nil)
		if err != nil {
			t.Fatalf("partial listing should still export: %v", err)
		}
		if summary.RowsComplete || summary.Clean() {
			t.Errorf("expected unclean summary: %+v", summary)
		}
	})

	t.Run("no rows at all", func(t *testing.T) {
		t.Parallel()

		runs := &fakeRunStore{}
		e, _ := newTestExporter(t, notion.FetchResult{Err: errors.New("401")}, runs)

		summary, err := e.Export(context.Background(), "db", nil)
		if !errors.Is(err, ErrRowsUnavailable) {
			t.Errorf("expected ErrRowsUnavailable, got %v", err)
		}
		if summary.Error == "" {
			t.Error("expected error in summary")
		}
		if len(runs.runs) != 1 {
			t.Error("failed run should still be recorded")
		}
	})

	t.Run("empty database writes empty index", func(t *testing.T) {
		t.Parallel()

		e, pages := newTestExporter(t, notion.FetchResult{Complete: true}, &fakeRunStore{})
		if _, err := e.Export(context.Background(), "db", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if names := readIndex(t, pages); len(names) != 0 {
			t.Errorf("expected empty index, got %v", names)
		}
	})
}

func TestSelectRows(t *testing.T) {
	t.Parallel()

	rows := []notion.Node{{ID: "aa-bb"}, {ID: "cc"}, {ID: "DD"}}
	got := selectRows(rows, []string{"dd", "aabb"})
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"aa-bb", "DD"}, ids); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
	if len(selectRows(rows, nil)) != 3 {
		t.Error("nil filter should select every row")
	}
}

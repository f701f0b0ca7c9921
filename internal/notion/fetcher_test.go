package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakePager serves pages from memory.
type fakePager struct {
	pages   [][]Node
	failAt  int // page index that fails, -1 for none
	failErr error
	calls   []string
}

func (p *fakePager) ListPage(_ context.Context, _ Collection, _ int, cursor string) (*Page, error) {
	p.calls = append(p.calls, cursor)

	idx := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "c%d", &idx); err != nil {
			return nil, err
		}
	}
	if idx == p.failAt {
		return nil, p.failErr
	}

	page := &Page{Items: p.pages[idx]}
	if idx+1 < len(p.pages) {
		page.NextCursor = fmt.Sprintf("c%d", idx+1)
	}
	return page, nil
}

func nodes(ids ...string) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, Node{ID: id, Object: ObjectBlock})
	}
	return out
}

func ids(ns []Node) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetcher_FetchAll(t *testing.T) {
	t.Parallel()

	t.Run("single page", func(t *testing.T) {
		t.Parallel()

		pager := &fakePager{pages: [][]Node{nodes("a", "b")}, failAt: -1}
		result := NewFetcher(pager, WithFetcherLogger(quietLogger())).FetchAll(context.Background(), BlockChildren("root"))

		if !result.Complete {
			t.Fatalf("expected complete result, got err %v", result.Err)
		}
		if result.Pages != 1 {
			t.Errorf("Pages = %d, expected 1", result.Pages)
		}
		if diff := cmp.Diff([]string{"a", "b"}, ids(result.Items)); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("pages are concatenated in response order", func(t *testing.T) {
		t.Parallel()

		pager := &fakePager{
			pages:  [][]Node{nodes("a", "b"), nodes("c"), nodes("d", "e", "f")},
			failAt: -1,
		}
		result := NewFetcher(pager, WithFetcherLogger(quietLogger())).FetchAll(context.Background(), BlockChildren("root"))

		if !result.Complete {
			t.Fatalf("expected complete result, got err %v", result.Err)
		}
		if result.Pages != 3 {
			t.Errorf("Pages = %d, expected 3", result.Pages)
		}
		if diff := cmp.Diff([]string{"a", "b", "c", "d", "e", "f"}, ids(result.Items)); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"", "c1", "c2"}, pager.calls); diff != "" {
			t.Errorf("cursor sequence mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty collection is complete", func(t *testing.T) {
		t.Parallel()

		pager := &fakePager{pages: [][]Node{{}}, failAt: -1}
		result := NewFetcher(pager, WithFetcherLogger(quietLogger())).FetchAll(context.Background(), BlockChildren("root"))

		if !result.Complete {
			t.Fatal("expected complete result")
		}
		if len(result.Items) != 0 {
			t.Errorf("expected no items, got %d", len(result.Items))
		}
	})

	t.Run("failed page keeps earlier pages and marks incomplete", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		pager := &fakePager{
			pages:   [][]Node{nodes("a"), nodes("b"), nodes("c")},
			failAt:  1,
			failErr: boom,
		}
		result := NewFetcher(pager, WithFetcherLogger(quietLogger())).FetchAll(context.Background(), BlockChildren("root"))

		if result.Complete {
			t.Fatal("expected incomplete result")
		}
		if !errors.Is(result.Err, boom) {
			t.Errorf("Err = %v, expected %v", result.Err, boom)
		}
		if diff := cmp.Diff([]string{"a"}, ids(result.Items)); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
		if result.Pages != 1 {
			t.Errorf("Pages = %d, expected 1", result.Pages)
		}
	})

	t.Run("failed first page yields nothing", func(t *testing.T) {
		t.Parallel()

		pager := &fakePager{pages: [][]Node{nodes("a")}, failAt: 0, failErr: ErrTransport}
		result := NewFetcher(pager, WithFetcherLogger(quietLogger())).FetchAll(context.Background(), BlockChildren("root"))

		if result.Complete {
			t.Fatal("expected incomplete result")
		}
		if len(result.Items) != 0 {
			t.Errorf("expected no items, got %d", len(result.Items))
		}
	})

	t.Run("cancelled context stops before the first request", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		pager := &fakePager{pages: [][]Node{nodes("a")}, failAt: -1}
		result := NewFetcher(pager, WithFetcherLogger(quietLogger())).FetchAll(ctx, BlockChildren("root"))

		if result.Complete {
			t.Fatal("expected incomplete result")
		}
		if !errors.Is(result.Err, context.Canceled) {
			t.Errorf("Err = %v, expected context.Canceled", result.Err)
		}
		if len(pager.calls) != 0 {
			t.Errorf("expected no requests, got %d", len(pager.calls))
		}
	})
}

func TestWithPageSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"valid size", 25, 25},
		{"zero keeps default", 0, DefaultPageSize},
		{"too large keeps default", 500, DefaultPageSize},
		{"max is accepted", MaxPageSize, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewFetcher(nil, WithPageSize(tt.size))
			if f.pageSize != tt.expected {
				t.Errorf("pageSize = %d, expected %d", f.pageSize, tt.expected)
			}
		})
	}
}

func TestCollectionKind_String(t *testing.T) {
	t.Parallel()

	if got := BlockChildren("x").Kind.String(); got != "block_children" {
		t.Errorf("BlockChildren kind = %q", got)
	}
	if got := DatabaseRows("x").Kind.String(); got != "database_rows" {
		t.Errorf("DatabaseRows kind = %q", got)
	}
}

package vector

import (
	"context"
	"sync"
	"testing"

	"github.com/dgallion1/pdfindex/internal/chunker"
	"github.com/dgallion1/pdfindex/internal/document"
	"github.com/dgallion1/pdfindex/internal/embed"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Concurrency: 2}, embed.NewHash(128))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func chunksFor(t *testing.T, path string, texts ...string) []document.Chunk {
	t.Helper()
	var out []document.Chunk
	for i, text := range texts {
		cs, err := chunker.ChunkPage(document.Page{Number: i, Text: text}, path, chunker.FixedWidth{Width: 1000})
		if err != nil {
			t.Fatalf("chunk: %v", err)
		}
		out = append(out, cs...)
	}
	return out
}

func TestStore_AddAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := chunksFor(t, "/tmp/pdf/nasdaq_composite.pdf",
		"Nasdaq Composite monthly performance December 2018 fell 9.0%",
		"Dow Jones Industrial Average quarterly dividends",
		"Sourdough bread recipes and pastry techniques",
	)
	if err := s.Add(ctx, chunks); err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.Count() != 3 {
		t.Fatalf("expected 3 documents, got %d", s.Count())
	}

	res, err := s.Query(ctx, "What was the Nasdaq Composite monthly performance for December 2018?", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].ID != chunks[0].ID {
		t.Errorf("expected best match %q, got %q", chunks[0].ID, res[0].ID)
	}
	if res[0].Metadata["id"] != res[0].ID {
		t.Errorf("expected id metadata to match id, got %q", res[0].Metadata["id"])
	}
	if res[0].Metadata["path"] != "/tmp/pdf/nasdaq_composite.pdf" || res[0].Metadata["page"] != "0" {
		t.Errorf("expected source metadata, got %v", res[0].Metadata)
	}
	if res[0].Similarity < res[1].Similarity {
		t.Errorf("expected results ordered by similarity, got %f then %f", res[0].Similarity, res[1].Similarity)
	}
}

func TestStore_QueryClampsToCollectionSize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Query(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("query empty: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected no results from empty collection, got %d", len(res))
	}

	if err := s.Add(ctx, chunksFor(t, "a.pdf", "one", "two")); err != nil {
		t.Fatalf("add: %v", err)
	}
	res, err = s.Query(ctx, "one", 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("expected 2 results, got %d", len(res))
	}
}

func TestStore_QueryValidation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Query(context.Background(), "", 5); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := s.Query(context.Background(), "x", 0); err == nil {
		t.Error("expected error for non-positive n")
	}
}

func TestStore_ReAddReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chunks := chunksFor(t, "a.pdf", "first version")
	if err := s.Add(ctx, chunks); err != nil {
		t.Fatalf("add: %v", err)
	}
	chunks[0].Text = "second version"
	if err := s.Add(ctx, chunks); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 document after re-add, got %d", s.Count())
	}
	res, _ := s.Query(ctx, "version", 1)
	if len(res) != 1 || res[0].Text != "second version" {
		t.Errorf("expected replaced text, got %+v", res)
	}
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Add(ctx, chunksFor(t, "a.pdf", "one")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("expected empty collection after reset, got %d", s.Count())
	}
	if err := s.Add(ctx, chunksFor(t, "a.pdf", "one")); err != nil {
		t.Fatalf("add after reset: %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("expected 1 document, got %d", s.Count())
	}
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := New(Config{PersistDir: dir}, embed.NewHash(32))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Add(ctx, chunksFor(t, "a.pdf", "persisted text")); err != nil {
		t.Fatalf("add: %v", err)
	}

	reopened, err := New(Config{PersistDir: dir}, embed.NewHash(32))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Count() != 1 {
		t.Errorf("expected 1 persisted document, got %d", reopened.Count())
	}
}

func TestStore_DeletePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.DeletePath(ctx, "a.pdf"); err != nil {
		t.Fatalf("delete on empty collection: %v", err)
	}
	if err := s.Add(ctx, chunksFor(t, "a.pdf", "one", "two")); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.Add(ctx, chunksFor(t, "b.pdf", "three")); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := s.DeletePath(ctx, "a.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 document left, got %d", s.Count())
	}
	res, _ := s.Query(ctx, "three", 1)
	if len(res) != 1 || res[0].Metadata["path"] != "b.pdf" {
		t.Errorf("expected only b.pdf to remain, got %+v", res)
	}
}

func TestStore_QueryDuringDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Add(ctx, chunksFor(t, "b.pdf", "stable page")); err != nil {
		t.Fatalf("add b: %v", err)
	}
	churn := chunksFor(t, "a.pdf", "one", "two", "three")

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := s.Add(ctx, churn); err != nil {
				t.Errorf("add: %v", err)
				return
			}
			if err := s.DeletePath(ctx, "a.pdf"); err != nil {
				t.Errorf("delete: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if _, err := s.Query(ctx, "page", 10); err != nil {
			t.Errorf("query %d: %v", i, err)
			break
		}
	}
	close(done)
	wg.Wait()
}

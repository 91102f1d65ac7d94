package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/pdfindex/internal/embed"
	"github.com/dgallion1/pdfindex/internal/pipeline"
	"github.com/dgallion1/pdfindex/internal/vector"
)

func TestMatchFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.pdf", "notes.txt", "image.png", "sub/c.pdf"} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := matchFiles(filepath.Join(dir, "*.pdf"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	want := []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}

	got, err = matchFiles(filepath.Join(dir, "**", "*"))
	if err != nil {
		t.Fatalf("match recursive: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 supported files recursively, got %v", got)
	}
}

func TestMatchFiles_NoMatches(t *testing.T) {
	_, err := matchFiles(filepath.Join(t.TempDir(), "*.pdf"))
	if !errors.Is(err, pipeline.ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func setIngestEnv(t *testing.T, persistDir string) {
	t.Helper()
	t.Setenv("TABLE_BACKEND", "memory")
	t.Setenv("EMBED_BACKEND", "hash")
	t.Setenv("HASH_DIM", "32")
	t.Setenv("CHUNK_STRATEGY", "fixed")
	t.Setenv("CHUNK_WIDTH", "128")
	t.Setenv("VECTOR_COLLECTION", "pdf_files")
	t.Setenv("VECTOR_PERSIST_DIR", persistDir)
}

func persistedCount(t *testing.T, dir string) int {
	t.Helper()
	s, err := vector.New(vector.Config{PersistDir: dir}, embed.NewHash(32))
	if err != nil {
		t.Fatalf("reopen vectors: %v", err)
	}
	return s.Count()
}

func TestRun_Reset(t *testing.T) {
	persist := t.TempDir()
	setIngestEnv(t, persist)
	docs := t.TempDir()
	for name, text := range map[string]string{"a.txt": "alpha text", "b.txt": "beta text"} {
		if err := os.WriteFile(filepath.Join(docs, name), []byte(text), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(log, options{glob: filepath.Join(docs, "a.txt"), n: 5}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := run(log, options{glob: filepath.Join(docs, "b.txt"), n: 5}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := persistedCount(t, persist); got != 2 {
		t.Fatalf("expected chunks of both runs kept, got %d", got)
	}

	if err := run(log, options{glob: filepath.Join(docs, "b.txt"), n: 5, reset: true}); err != nil {
		t.Fatalf("reset run: %v", err)
	}
	if got := persistedCount(t, persist); got != 1 {
		t.Errorf("expected only the reset run's chunk, got %d", got)
	}
}

func TestRun_RejectsBadFlags(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(log, options{glob: "*.pdf", onError: "retry"}); err == nil {
		t.Error("expected error for unknown failure policy")
	}
	if err := run(log, options{glob: "*.pdf", query: "x", n: 0}); err == nil {
		t.Error("expected error for non-positive -n with a query")
	}
}

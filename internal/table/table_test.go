package table

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dgallion1/pdfindex/internal/document"
)

func sampleRows() []Row {
	return []Row{
		{Path: "/tmp/pdf/sp500.pdf", PageNumber: 1, Text: "page two"},
		{Path: "/tmp/pdf/nasdaq_composite.pdf", PageNumber: 0, Text: "The Nasdaq Composite fell 9.0%"},
		{Path: "/tmp/pdf/sp500.pdf", PageNumber: 0, Text: ""},
	}
}

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s Store, table string) {
	t.Helper()
	ctx := context.Background()

	if err := s.Overwrite(ctx, table, sampleRows()); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	rows, err := s.Rows(ctx, table)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Path != "/tmp/pdf/nasdaq_composite.pdf" {
		t.Errorf("expected rows sorted by path, got %q first", rows[0].Path)
	}
	if rows[1].PageNumber != 0 || rows[2].PageNumber != 1 {
		t.Errorf("expected rows sorted by page within path, got %d, %d", rows[1].PageNumber, rows[2].PageNumber)
	}
	if rows[1].Text != "" {
		t.Errorf("expected empty text preserved, got %q", rows[1].Text)
	}

	// Append upserts by (path, page).
	err = s.Append(ctx, table, []Row{
		{Path: "/tmp/pdf/sp500.pdf", PageNumber: 0, Text: "now filled"},
		{Path: "/tmp/pdf/dow.pdf", PageNumber: 0, Text: "dow"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	n, err := s.Count(ctx, table)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rows after append, got %d", n)
	}

	// Text is stored byte for byte, even when it is not valid UTF-8.
	raw := "caf\xe9 \xff\xfe"
	if err := s.Overwrite(ctx, table, []Row{{Path: "latin1.pdf", PageNumber: 2, Text: raw}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	rows, err = s.Rows(ctx, table)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Text != raw || rows[0].Path != "latin1.pdf" || rows[0].PageNumber != 2 {
		t.Errorf("expected raw bytes preserved, got %+v", rows)
	}

	// Overwrite replaces everything.
	if err := s.Overwrite(ctx, table, []Row{{Path: "only.pdf", PageNumber: 0, Text: "x"}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	n, _ = s.Count(ctx, table)
	if n != 1 {
		t.Errorf("expected 1 row after overwrite, got %d", n)
	}
	if err := s.Overwrite(ctx, table, nil); err != nil {
		t.Fatalf("overwrite empty: %v", err)
	}
	n, _ = s.Count(ctx, table)
	if n != 0 {
		t.Errorf("expected empty table, got %d rows", n)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore(), DefaultName)
}

func TestRedisStore_Contract(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s, "pdf_test.parsed")
}

func TestRedisRowField(t *testing.T) {
	for _, r := range []Row{
		{Path: "/tmp/pdf/sp500.pdf", PageNumber: 0},
		{Path: "/tmp/odd\x00name.pdf", PageNumber: 12},
	} {
		path, page, err := parseRowField(rowField(r))
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", r.Path, err)
		}
		if path != r.Path || page != r.PageNumber {
			t.Errorf("expected %q/%d, got %q/%d", r.Path, r.PageNumber, path, page)
		}
	}

	values := fieldValues([]Row{{Path: "a.pdf", PageNumber: 3, Text: "\xff\xfe"}})
	if len(values) != 2 || values[0] != "a.pdf\x003" || values[1] != "\xff\xfe" {
		t.Errorf("expected raw text value, got %q", values)
	}

	for _, field := range []string{"no-separator", "a.pdf\x00x"} {
		if _, _, err := parseRowField(field); err == nil {
			t.Errorf("%q: expected error", field)
		}
	}
}

func TestMemoryStore_RejectsInvalidRows(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Append(ctx, DefaultName, []Row{{Path: "", PageNumber: 0}})
	if !errors.Is(err, ErrInvalidRow) {
		t.Errorf("expected ErrInvalidRow for missing path, got %v", err)
	}
	err = s.Overwrite(ctx, DefaultName, []Row{{Path: "a.pdf", PageNumber: -1}})
	if !errors.Is(err, ErrInvalidRow) {
		t.Errorf("expected ErrInvalidRow for negative page, got %v", err)
	}
	n, _ := s.Count(ctx, DefaultName)
	if n != 0 {
		t.Errorf("expected rejected writes to leave table empty, got %d", n)
	}
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"pdf.parsed", "a_b.c1"} {
		if err := ValidateName(ok); err != nil {
			t.Errorf("%q: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "parsed", "pdf.", ".parsed", "pdf.parsed.x", "PDF.parsed", "pdf parsed"} {
		if err := ValidateName(bad); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("%q: expected ErrInvalidTable, got %v", bad, err)
		}
	}
}

func TestRowsFromDocument(t *testing.T) {
	doc := &document.Document{
		Path:  "/tmp/pdf/a.pdf",
		Pages: []document.Page{{Number: 0, Text: "one"}, {Number: 1, Text: ""}},
	}
	rows := RowsFromDocument(doc)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Path != "/tmp/pdf/a.pdf" || rows[1].PageNumber != 1 || rows[1].Text != "" {
		t.Errorf("unexpected row %+v", rows[1])
	}
}

func TestFilterPathLike(t *testing.T) {
	rows := FilterPathLike(sampleRows(), "nasdaq_composite")
	if len(rows) != 1 || rows[0].PageNumber != 0 {
		t.Errorf("expected the nasdaq row, got %+v", rows)
	}
	if got := FilterPathLike(sampleRows(), ""); len(got) != 3 {
		t.Errorf("expected empty filter to keep all rows, got %d", len(got))
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: "memory"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", s)
	}
	if _, err := Open(context.Background(), Config{Backend: "delta"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

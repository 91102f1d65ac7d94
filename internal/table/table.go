package table

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/pdfindex/internal/document"
)

// DefaultName is the table extracted pages are written to.
const DefaultName = "pdf.parsed"

var (
	ErrInvalidRow   = errors.New("invalid row")
	ErrInvalidTable = errors.New("invalid table name")
)

// Row is one extracted page. All three columns are required; Text may be
// the empty string.
type Row struct {
	Path       string `json:"path"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

func (r Row) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidRow)
	}
	if r.PageNumber < 0 {
		return fmt.Errorf("%w: page_number must be non-negative, got %d", ErrInvalidRow, r.PageNumber)
	}
	return nil
}

// Store persists page rows in named tables.
type Store interface {
	// Overwrite replaces the whole table with rows.
	Overwrite(ctx context.Context, table string, rows []Row) error
	// Append upserts rows keyed by (path, page_number).
	Append(ctx context.Context, table string, rows []Row) error
	// Rows returns every row ordered by path, then page number.
	Rows(ctx context.Context, table string) ([]Row, error)
	Count(ctx context.Context, table string) (int, error)
	Close() error
}

var nameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*\.[a-z_][a-z0-9_]*$`)

// ValidateName checks a schema-qualified table name such as "pdf.parsed".
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (want schema.table)", ErrInvalidTable, name)
	}
	return nil
}

// RowsFromDocument converts every page of doc, empty pages included.
func RowsFromDocument(doc *document.Document) []Row {
	rows := make([]Row, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		rows = append(rows, Row{Path: doc.Path, PageNumber: p.Number, Text: p.Text})
	}
	return rows
}

// FilterPathLike keeps rows whose path contains substr.
func FilterPathLike(rows []Row, substr string) []Row {
	if substr == "" {
		return rows
	}
	var out []Row
	for _, r := range rows {
		if strings.Contains(r.Path, substr) {
			out = append(out, r)
		}
	}
	return out
}

func validateAll(table string, rows []Row) error {
	if err := ValidateName(table); err != nil {
		return err
	}
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Path != rows[j].Path {
			return rows[i].Path < rows[j].Path
		}
		return rows[i].PageNumber < rows[j].PageNumber
	})
}

type rowKey struct {
	path string
	page int
}

// Config selects and configures a backend.
type Config struct {
	Backend       string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open returns the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown table backend %q", cfg.Backend)
	}
}

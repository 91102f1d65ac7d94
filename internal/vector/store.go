package vector

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/dgallion1/pdfindex/internal/document"
	"github.com/dgallion1/pdfindex/internal/embed"
)

// DefaultCollection is the collection chunks are indexed into.
const DefaultCollection = "pdf_files"

// Config configures the chromem-backed store.
type Config struct {
	Collection  string
	PersistDir  string // empty keeps the database in memory
	Concurrency int    // parallel embedding calls per Add
}

// Result is one nearest-neighbour hit.
type Result struct {
	ID         string            `json:"id"`
	Text       string            `json:"document"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float32           `json:"similarity"`
}

// Store indexes chunk text in a chromem collection. The collection embeds
// text itself through the configured Embedder, so callers supply raw text.
type Store struct {
	mu          sync.RWMutex
	db          *chromem.DB
	col         *chromem.Collection
	name        string
	embedFunc   chromem.EmbeddingFunc
	concurrency int
}

// New opens (or creates) the collection.
func New(cfg Config, e embed.Embedder) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}

	db := chromem.NewDB()
	if cfg.PersistDir != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistDir, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db %s: %w", cfg.PersistDir, err)
		}
	}

	s := &Store{
		db:          db,
		name:        cfg.Collection,
		embedFunc:   e.Embed,
		concurrency: cfg.Concurrency,
	}
	col, err := db.GetOrCreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", s.name, err)
	}
	s.col = col
	return s, nil
}

// Add indexes chunks. Each document carries its chunk id both as the
// document id and in the "id" metadata field; re-adding an id replaces it.
func (s *Store) Add(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:      c.ID,
			Content: c.Text,
			Metadata: map[string]string{
				"id":    c.ID,
				"path":  c.Path,
				"page":  strconv.Itoa(c.Page),
				"index": strconv.Itoa(c.Index),
			},
		})
	}

	s.mu.RLock()
	col := s.col
	s.mu.RUnlock()

	if err := col.AddDocuments(ctx, docs, s.concurrency); err != nil {
		return fmt.Errorf("index %d chunks: %w", len(docs), err)
	}
	return nil
}

// Query returns up to n chunks nearest to text, most similar first.
func (s *Store) Query(ctx context.Context, text string, n int) ([]Result, error) {
	if text == "" {
		return nil, fmt.Errorf("query text is required")
	}
	if n <= 0 {
		return nil, fmt.Errorf("n_results must be positive, got %d", n)
	}

	// Deletes take the write lock, so the count cannot drop below n
	// before the query runs.
	s.mu.RLock()
	defer s.mu.RUnlock()

	if total := s.col.Count(); n > total {
		n = total
	}
	if n == 0 {
		return []Result{}, nil
	}

	res, err := s.col.Query(ctx, text, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.name, err)
	}
	out := make([]Result, 0, len(res))
	for _, r := range res {
		out = append(out, Result{
			ID:         r.ID,
			Text:       r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.col.Count()
}

// DeletePath removes every chunk indexed from path.
func (s *Store) DeletePath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.col.Count() == 0 {
		return nil
	}
	if err := s.col.Delete(ctx, map[string]string{"path": path}, nil); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", path, err)
	}
	return nil
}

// Reset drops every indexed chunk.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("drop collection %s: %w", s.name, err)
	}
	col, err := s.db.CreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("recreate collection %s: %w", s.name, err)
	}
	s.col = col
	return nil
}

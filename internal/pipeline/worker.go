package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/pdfindex/internal/chunker"
	"github.com/dgallion1/pdfindex/internal/document"
	"github.com/dgallion1/pdfindex/internal/parser"
	"github.com/dgallion1/pdfindex/internal/table"
	"github.com/dgallion1/pdfindex/internal/vector"
)

// indexBatchSize bounds how many chunks go to the vector store per call.
const indexBatchSize = 64

// Deps are the collaborators shared by every worker.
type Deps struct {
	Table     table.Store
	TableName string
	Vectors   *vector.Store
	Strategy  chunker.Strategy
	Parse     parser.Options
	Hashes    *HashIndex
}

// Worker processes a single document job.
type Worker struct {
	deps    Deps
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewWorker(deps Deps, log *slog.Logger) *Worker {
	if deps.TableName == "" {
		deps.TableName = table.DefaultName
	}
	if deps.Strategy == nil {
		deps.Strategy = chunker.FixedWidth{Width: 128}
	}
	return &Worker{deps: deps, log: log, backoff: Backoff}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	p, err := parser.ForFile(job.Filename, w.deps.Parse)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	job.SetPages(len(doc.Pages))

	strategy := job.strategy
	if strategy == nil {
		strategy = w.deps.Strategy
	}

	hash := ContentHashHex([]byte(doc.Text()))
	job.SetContentHash(hash)
	key := indexKey(hash, strategy)
	if w.deps.Hashes != nil && w.deps.Hashes.Seen(doc.Path, key) {
		log.Info("duplicate document, skipping", "content_hash", hash, "strategy", strategy.String())
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Store page rows
	job.SetStatus(StatusStoring, "storing")
	if err := w.deps.Table.Append(ctx, w.deps.TableName, table.RowsFromDocument(doc)); err != nil {
		log.Error("table write failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	// Phase 3: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks, err := ChunkDocument(doc, strategy)
	if err != nil {
		log.Error("chunking failed", "error", err)
		job.AddError(fmt.Sprintf("chunk: %s", err))
		job.SetStatus(StatusFailed, "chunking")
		return
	}
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "pages", len(doc.Pages), "chunks", len(chunks), "strategy", strategy.String())

	// Phase 4: Index
	job.SetStatus(StatusIndexing, "indexing")
	if err := w.deps.Vectors.DeletePath(ctx, doc.Path); err != nil {
		log.Warn("stale chunk cleanup failed", "error", err)
	}
	if len(chunks) == 0 {
		log.Warn("no extractable text")
		job.AddError("no extractable text")
		w.markIndexed(doc.Path, key)
		job.SetStatus(StatusCompleted, "done")
		return
	}

	indexed, errs := w.index(ctx, log, chunks, job.AddIndexed)
	for _, e := range errs {
		job.AddError(e.Error())
	}
	log.Info("indexing complete", "indexed", indexed, "total", len(chunks))

	switch {
	case len(errs) == 0:
		w.markIndexed(doc.Path, key)
		job.SetStatus(StatusCompleted, "done")
	case indexed > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "indexing")
	}
}

// ChunkDocument splits every page of doc with s, in page order.
func ChunkDocument(doc *document.Document, s chunker.Strategy) ([]document.Chunk, error) {
	var all []document.Chunk
	for _, page := range doc.Pages {
		chunks, err := chunker.ChunkPage(page, doc.Path, s)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.Number, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// index writes chunks in batches, retrying retryable failures. It returns
// the number of chunks indexed and one error per failed batch.
func (w *Worker) index(ctx context.Context, log *slog.Logger, chunks []document.Chunk, progress func(int)) (int, []error) {
	indexed := 0
	var errs []error
	for start := 0; start < len(chunks); start += indexBatchSize {
		end := min(start+indexBatchSize, len(chunks))
		batch := chunks[start:end]
		if err := w.addWithRetry(ctx, log, batch); err != nil {
			log.Error("index failed", "first_chunk", batch[0].ID, "error", err)
			errs = append(errs, fmt.Errorf("chunks %d-%d: %w", start, end-1, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		indexed += len(batch)
		if progress != nil {
			progress(len(batch))
		}
	}
	return indexed, errs
}

func (w *Worker) addWithRetry(ctx context.Context, log *slog.Logger, batch []document.Chunk) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.deps.Vectors.Add(ctx, batch)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable index error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (w *Worker) markIndexed(path, key string) {
	if w.deps.Hashes != nil {
		w.deps.Hashes.Mark(path, key)
	}
}

// indexKey identifies what was indexed for a path: the content and the
// strategy that chunked it.
func indexKey(hash string, s chunker.Strategy) string {
	return hash + ":" + s.String()
}

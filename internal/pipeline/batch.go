package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/pdfindex/internal/document"
	"github.com/dgallion1/pdfindex/internal/parser"
	"github.com/dgallion1/pdfindex/internal/table"
)

// ErrNoInput is returned by Batch when given no paths.
var ErrNoInput = errors.New("no input files")

// FailurePolicy decides what Batch does when one file fails.
type FailurePolicy string

const (
	PolicySkip  FailurePolicy = "skip"
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy accepts "skip" (or empty) and "abort".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicySkip, "":
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want skip or abort)", s)
	}
}

// FileError is one file that did not make it through a batch.
type FileError struct {
	Path  string `json:"path"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// BatchReport summarizes a Batch run.
type BatchReport struct {
	Files       int         `json:"files"`
	FilesOK     int         `json:"files_ok"`
	FilesFailed int         `json:"files_failed"`
	Pages       int         `json:"pages"`
	Chunks      int         `json:"chunks"`
	Indexed     int         `json:"indexed"`
	Errors      []FileError `json:"errors"`
}

func (r *BatchReport) fail(path, stage string, err error) {
	r.FilesFailed++
	r.Errors = append(r.Errors, FileError{Path: path, Stage: stage, Error: err.Error()})
}

// Batch extracts every path, replaces the page table with the pages of the
// files that extracted, then chunks and indexes them. Under PolicyAbort the
// first failure stops the run and is returned; under PolicySkip failures are
// only reported. The table is not touched if extraction aborts.
func (w *Worker) Batch(ctx context.Context, paths []string, policy FailurePolicy) (*BatchReport, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}
	report := &BatchReport{Files: len(paths), Errors: []FileError{}}

	var docs []*document.Document
	var rows []table.Row
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc, err := parser.ParseFile(path, w.deps.Parse)
		if err != nil {
			w.log.Error("extraction failed", "path", path, "error", err)
			report.fail(path, "extract", err)
			if policy == PolicyAbort {
				return report, fmt.Errorf("batch aborted at %s: %w", path, err)
			}
			continue
		}
		w.log.Info("extracted", "path", path, "pages", len(doc.Pages), "non_empty", doc.NonEmptyPages())
		docs = append(docs, doc)
		rows = append(rows, table.RowsFromDocument(doc)...)
		report.Pages += len(doc.Pages)
	}

	if err := w.deps.Table.Overwrite(ctx, w.deps.TableName, rows); err != nil {
		return report, fmt.Errorf("write %s: %w", w.deps.TableName, err)
	}
	w.log.Info("page table written", "table", w.deps.TableName, "rows", len(rows))

	for _, doc := range docs {
		log := w.log.With("path", doc.Path)
		chunks, err := ChunkDocument(doc, w.deps.Strategy)
		if err != nil {
			report.fail(doc.Path, "chunk", err)
			if policy == PolicyAbort {
				return report, fmt.Errorf("batch aborted at %s: %w", doc.Path, err)
			}
			continue
		}
		report.Chunks += len(chunks)

		if err := w.deps.Vectors.DeletePath(ctx, doc.Path); err != nil {
			log.Warn("stale chunk cleanup failed", "error", err)
		}
		indexed, errs := w.index(ctx, log, chunks, nil)
		report.Indexed += indexed
		if len(errs) > 0 {
			err := errors.Join(errs...)
			report.fail(doc.Path, "index", err)
			if policy == PolicyAbort {
				return report, fmt.Errorf("batch aborted at %s: %w", doc.Path, err)
			}
			continue
		}
		w.markIndexed(doc.Path, indexKey(ContentHashHex([]byte(doc.Text())), w.deps.Strategy))
		log.Info("indexed", "chunks", indexed)
	}

	report.FilesOK = report.Files - report.FilesFailed
	return report, nil
}

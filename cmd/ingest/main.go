// Command ingest extracts every file matching a glob into the page table,
// indexes the chunks and optionally runs one similarity query.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dgallion1/pdfindex/internal/app"
	"github.com/dgallion1/pdfindex/internal/config"
	"github.com/dgallion1/pdfindex/internal/parser"
	"github.com/dgallion1/pdfindex/internal/pipeline"
)

func main() {
	glob := flag.String("glob", "sample_docs/*.pdf", "doublestar pattern of files to ingest")
	query := flag.String("query", "", "similarity query to run after indexing")
	n := flag.Int("n", 5, "number of query results")
	onError := flag.String("on-error", "skip", "what to do when a file fails: skip or abort")
	reset := flag.Bool("reset", false, "drop every indexed chunk before ingesting")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(log, options{glob: *glob, query: *query, n: *n, onError: *onError, reset: *reset}); err != nil {
		log.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	glob    string
	query   string
	n       int
	onError string
	reset   bool
}

func run(log *slog.Logger, opts options) error {
	policy, err := pipeline.ParseFailurePolicy(opts.onError)
	if err != nil {
		return err
	}
	if opts.query != "" && opts.n <= 0 {
		return fmt.Errorf("-n must be positive, got %d", opts.n)
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	paths, err := matchFiles(opts.glob)
	if err != nil {
		return err
	}
	log.Info("matched files", "glob", opts.glob, "files", len(paths))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.reset {
		dropped := a.Vectors.Count()
		if err := a.Vectors.Reset(ctx); err != nil {
			return err
		}
		log.Info("vector collection reset", "collection", cfg.VectorCollection, "dropped", dropped)
	}

	w := pipeline.NewWorker(a.Deps, log)
	report, err := w.Batch(ctx, paths, policy)
	if report != nil {
		if encErr := writeJSON(map[string]any{"report": report}); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return err
	}

	if opts.query == "" {
		return nil
	}
	results, err := a.Vectors.Query(ctx, opts.query, opts.n)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return writeJSON(map[string]any{"query": opts.query, "results": results})
}

// matchFiles expands glob and keeps supported files, sorted for a stable
// page table order.
func matchFiles(glob string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", glob, err)
	}
	var paths []string
	for _, m := range matches {
		if parser.IsSupportedExtension(m) {
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("glob %q: %w", glob, pipeline.ErrNoInput)
	}
	return paths, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

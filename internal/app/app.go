// Package app wires the configured collaborators shared by the server and
// the ingest CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/pdfindex/internal/chunker"
	"github.com/dgallion1/pdfindex/internal/config"
	"github.com/dgallion1/pdfindex/internal/embed"
	"github.com/dgallion1/pdfindex/internal/parser"
	"github.com/dgallion1/pdfindex/internal/pipeline"
	"github.com/dgallion1/pdfindex/internal/table"
	"github.com/dgallion1/pdfindex/internal/vector"
)

// statsWindow is how long embedding latency samples are kept.
const statsWindow = time.Hour

// App holds the page table, vector store and pipeline dependencies.
type App struct {
	Table   table.Store
	Vectors *vector.Store
	Stats   *embed.Stats
	Deps    pipeline.Deps
}

// New builds every collaborator from cfg. Close releases them.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	strategy, err := chunker.NewStrategy(cfg.ChunkStrategy, cfg.ChunkWidth)
	if err != nil {
		return nil, fmt.Errorf("chunk strategy: %w", err)
	}
	if err := table.ValidateName(cfg.TableName); err != nil {
		return nil, err
	}

	stats := embed.NewStats(statsWindow)
	embedder, err := embed.New(embed.Config{
		Backend: cfg.EmbedBackend,
		Model:   embedModel(cfg),
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: embedBaseURL(cfg),
		HashDim: cfg.HashDim,
		Stats:   stats,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	vectors, err := vector.New(vector.Config{
		Collection:  cfg.VectorCollection,
		PersistDir:  cfg.VectorPersistDir,
		Concurrency: cfg.IndexConcurrency,
	}, embedder)
	if err != nil {
		return nil, err
	}

	tables, err := table.Open(ctx, table.Config{
		Backend:       cfg.TableBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("page table: %w", err)
	}

	log.Info("collaborators ready",
		"table_backend", cfg.TableBackend,
		"table", cfg.TableName,
		"collection", cfg.VectorCollection,
		"indexed", vectors.Count(),
		"embed_backend", cfg.EmbedBackend,
		"strategy", strategy.Name(),
		"width", cfg.ChunkWidth,
	)

	return &App{
		Table:   tables,
		Vectors: vectors,
		Stats:   stats,
		Deps: pipeline.Deps{
			Table:     tables,
			TableName: cfg.TableName,
			Vectors:   vectors,
			Strategy:  strategy,
			Parse:     parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
			Hashes:    pipeline.NewHashIndex(),
		},
	}, nil
}

func (a *App) Close() error {
	return a.Table.Close()
}

func embedModel(cfg config.Config) string {
	if cfg.EmbedModel != "" {
		return cfg.EmbedModel
	}
	switch cfg.EmbedBackend {
	case embed.BackendOpenAI:
		return embed.DefaultOpenAIModel
	case embed.BackendOllama:
		return "nomic-embed-text"
	}
	return ""
}

func embedBaseURL(cfg config.Config) string {
	if cfg.EmbedBackend == embed.BackendOllama {
		return cfg.OllamaURL
	}
	return cfg.OpenAIBaseURL
}

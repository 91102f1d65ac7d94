package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/philippgille/chromem-go"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Func adapts a plain function, such as a chromem embedding func.
type Func func(ctx context.Context, text string) ([]float32, error)

func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

const (
	BackendHash   = "hash"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Model   string
	APIKey  string // openai
	BaseURL string // openai or ollama; empty uses the provider default
	HashDim int
	Stats   *Stats // when set, calls are timed
}

// New builds the configured embedder.
func New(cfg Config) (Embedder, error) {
	var e Embedder
	switch cfg.Backend {
	case BackendHash, "":
		e = NewHash(cfg.HashDim)
	case BackendOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embedder: api key is required")
		}
		opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		e = NewOpenAI(openai.NewClient(opts...), cfg.Model)
	case BackendOllama:
		if cfg.Model == "" {
			return nil, fmt.Errorf("ollama embedder: model is required")
		}
		e = Func(chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.BaseURL))
	default:
		return nil, fmt.Errorf("unknown embed backend %q", cfg.Backend)
	}

	if cfg.Stats != nil {
		e = &Instrumented{Embedder: e, Stats: cfg.Stats}
	}
	return e, nil
}

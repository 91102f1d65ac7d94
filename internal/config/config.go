package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" validate:"required"`

	// Auth
	APIKey string `env:"PDFINDEX_API_KEY"`

	// Page table
	TableBackend  string `env:"TABLE_BACKEND" validate:"oneof=memory redis"`
	TableName     string `env:"TABLE_NAME" validate:"required"`
	RedisAddr     string `env:"REDIS_ADDR" validate:"required_if=TableBackend redis"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" validate:"min=0"`

	// Vector collection
	VectorCollection string `env:"VECTOR_COLLECTION" validate:"required"`
	VectorPersistDir string `env:"VECTOR_PERSIST_DIR"`
	IndexConcurrency int    `env:"INDEX_CONCURRENCY" validate:"min=1"`

	// Embeddings
	EmbedBackend  string `env:"EMBED_BACKEND" validate:"oneof=hash openai ollama"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" validate:"required_if=EmbedBackend openai"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	EmbedModel    string `env:"EMBED_MODEL"`
	OllamaURL     string `env:"OLLAMA_URL" validate:"omitempty,url"`
	HashDim       int    `env:"HASH_DIM" validate:"min=1"`

	// Chunking defaults
	ChunkStrategy string `env:"CHUNK_STRATEGY" validate:"oneof=fixed words"`
	ChunkWidth    int    `env:"CHUNK_WIDTH" validate:"min=1"`

	// Worker pool
	WorkerCount  int `env:"WORKER_COUNT" validate:"min=1"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" validate:"min=1"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" validate:"min=1"`

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" validate:"gt=0"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("PDFINDEX_API_KEY"),

		TableBackend:  envOr("TABLE_BACKEND", "memory"),
		TableName:     envOr("TABLE_NAME", "pdf.parsed"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		VectorCollection: envOr("VECTOR_COLLECTION", "pdf_files"),
		VectorPersistDir: os.Getenv("VECTOR_PERSIST_DIR"),
		IndexConcurrency: envInt("INDEX_CONCURRENCY", 4),

		EmbedBackend:  envOr("EMBED_BACKEND", "hash"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		EmbedModel:    os.Getenv("EMBED_MODEL"),
		OllamaURL:     os.Getenv("OLLAMA_URL"),
		HashDim:       envInt("HASH_DIM", 384),

		ChunkStrategy: envOr("CHUNK_STRATEGY", "fixed"),
		ChunkWidth:    envInt("CHUNK_WIDTH", 128),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.IndexConcurrency <= 0 {
		cfg.IndexConcurrency = 4
	}

	return cfg
}

// Validate checks the settings shared by the server and the CLI.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ValidateServer additionally requires the API key guarding the HTTP routes.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("PDFINDEX_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

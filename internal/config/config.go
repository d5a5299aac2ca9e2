package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Extraction collaborator (unstructured-compatible partition endpoint)
	ExtractorURL     string        `envconfig:"EXTRACTOR_URL"`
	ExtractorTimeout time.Duration `envconfig:"EXTRACTOR_TIMEOUT" default:"120s"`

	// Blob storage for source files and extracted figures. When S3 is not
	// configured, a local directory store is used instead.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"papyrus-files"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`

	// Pipeline tuning
	IngestConcurrency int           `envconfig:"INGEST_CONCURRENCY" default:"4"`
	SummarizeTimeout  time.Duration `envconfig:"SUMMARIZE_TIMEOUT" default:"60s"`
	EmbedTimeout      time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	GenerateTimeout   time.Duration `envconfig:"GENERATE_TIMEOUT" default:"120s"`
	WorkerPoll        time.Duration `envconfig:"WORKER_POLL" default:"5s"`

	// Chunk grouping: "page" (default) or "window"
	ChunkGrouping   string `envconfig:"CHUNK_GROUPING" default:"page"`
	ChunkWindowSize int    `envconfig:"CHUNK_WINDOW_SIZE" default:"1200"`

	// Retrieval and prompt assembly
	RetrievalTopK   int `envconfig:"RETRIEVAL_TOP_K" default:"4"`
	MaxContextChars int `envconfig:"MAX_CONTEXT_CHARS" default:"12000"`
	HistoryWindow   int `envconfig:"HISTORY_WINDOW" default:"6"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PAPYRUS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasExtractor() bool {
	return c.ExtractorURL != ""
}

// Package cli contains the papyrusd commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veldt-labs/papyrus/internal/config"
	"github.com/veldt-labs/papyrus/internal/database"
	"github.com/veldt-labs/papyrus/internal/extract"
	"github.com/veldt-labs/papyrus/internal/openai"
	"github.com/veldt-labs/papyrus/internal/repository"
	"github.com/veldt-labs/papyrus/internal/service"
	"github.com/veldt-labs/papyrus/internal/storage"
)

// app holds the wired services shared by the serve, ingest and ask
// commands.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	docRepo     *repository.DocumentRepository
	sessionRepo *repository.SessionRepository

	ingestor    *service.Ingestor
	documents   *service.DocumentService
	chat        *service.ChatService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if !cfg.HasExtractor() {
		return nil, fmt.Errorf("EXTRACTOR_URL is required")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	ai := openai.NewClient(cfg.OpenAIAPIKey)

	extractor := extract.NewClient(extract.Config{
		BaseURL: cfg.ExtractorURL,
		Timeout: cfg.ExtractorTimeout,
	}, blobs)

	summarizerCfg := service.DefaultSummarizerConfig()
	summarizerCfg.CallTimeout = cfg.SummarizeTimeout

	indexerCfg := service.DefaultIndexerConfig()
	indexerCfg.CallTimeout = cfg.EmbedTimeout

	aggregatorCfg := service.DefaultAggregatorConfig()
	if cfg.ChunkGrouping == string(service.GroupByWindow) {
		aggregatorCfg.Mode = service.GroupByWindow
		aggregatorCfg.WindowSize = cfg.ChunkWindowSize
	}

	ingestor := service.NewIngestor(
		docRepo,
		blobs,
		extractor,
		service.NewNormalizer(),
		service.NewSummarizerWithConfig(ai, blobs, summarizerCfg),
		service.NewAggregatorWithConfig(aggregatorCfg),
		service.NewIndexerWithConfig(ai, chunkRepo, indexerCfg),
		service.IngestorConfig{Concurrency: cfg.IngestConcurrency},
	)

	retriever := service.NewRetrieverWithConfig(ai, chunkRepo, service.RetrievalConfig{TopK: cfg.RetrievalTopK})
	synthesizer := service.NewSynthesizerWithConfig(ai, service.SynthesizerConfig{
		MaxContextChars: cfg.MaxContextChars,
		HistoryWindow:   cfg.HistoryWindow,
		CallTimeout:     cfg.GenerateTimeout,
	})

	return &app{
		cfg:         cfg,
		pool:        pool,
		docRepo:     docRepo,
		sessionRepo: sessionRepo,
		ingestor:    ingestor,
		documents:   service.NewDocumentService(docRepo, blobs),
		chat:        service.NewChatService(sessionRepo, docRepo, retriever, synthesizer),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func newBlobStore(ctx context.Context, cfg *config.Config) (service.BlobStore, error) {
	if cfg.HasS3() {
		store, err := storage.NewS3Store(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		return store, nil
	}

	store, err := storage.NewLocalStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}
	log.Printf("using local blob store at %s", cfg.DataDir)
	return store, nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

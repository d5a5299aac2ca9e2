package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexerChunkRepository defines the vector index operations the indexer needs
type IndexerChunkRepository interface {
	// GetContentHash returns the stored content hash for a chunk ID, or
	// domain.ErrChunkNotFound when the chunk has never been indexed.
	GetContentHash(ctx context.Context, chunkID string) (string, error)
	Upsert(ctx context.Context, record *domain.EmbeddingRecord) error
}

// IndexerConfig controls batching and retry behavior for embedding calls.
type IndexerConfig struct {
	BatchSize      int
	MaxRetries     uint64
	CallTimeout    time.Duration
	InitialBackoff time.Duration
}

// DefaultIndexerConfig provides sane defaults for indexing.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		BatchSize:      16,
		MaxRetries:     3,
		CallTimeout:    30 * time.Second,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// FailedChunk records a chunk whose indexing could not complete.
type FailedChunk struct {
	ChunkID    string
	PageNumber int
	Err        error
}

// IndexReport summarizes the outcome of indexing a chunk batch.
type IndexReport struct {
	Indexed int
	Skipped int
	Failed  []FailedChunk
}

// Indexer makes chunk content searchable. Indexing is idempotent: a
// chunk whose stored content hash matches the incoming one is skipped
// without calling the embedding service.
type Indexer struct {
	client EmbeddingClient
	repo   IndexerChunkRepository
	cfg    IndexerConfig
}

func NewIndexer(client EmbeddingClient, repo IndexerChunkRepository) *Indexer {
	return NewIndexerWithConfig(client, repo, DefaultIndexerConfig())
}

func NewIndexerWithConfig(client EmbeddingClient, repo IndexerChunkRepository, cfg IndexerConfig) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIndexerConfig().BatchSize
	}
	return &Indexer{
		client: client,
		repo:   repo,
		cfg:    cfg,
	}
}

// IndexChunk embeds and upserts a single chunk. Returns the record and
// whether an embedding call was made (false when the hash short-circuit
// hit).
func (s *Indexer) IndexChunk(ctx context.Context, chunk domain.Chunk) (*domain.EmbeddingRecord, bool, error) {
	if err := domain.ValidateChunk(&chunk); err != nil {
		return nil, false, err
	}

	hash := chunk.ContentHash()
	stored, err := s.repo.GetContentHash(ctx, chunk.ID())
	if err != nil && !errors.Is(err, domain.ErrChunkNotFound) {
		return nil, false, err
	}
	if err == nil && stored == hash {
		return &domain.EmbeddingRecord{
			ChunkID:          chunk.ID(),
			DocumentID:       chunk.DocumentID,
			PageNumber:       chunk.PageNumber,
			ChunkIndex:       chunk.ChunkIndex,
			Content:          chunk.CombinedText,
			SourceElementIDs: chunk.SourceElementIDs,
			ContentHash:      hash,
		}, false, nil
	}

	vectors, err := s.embedWithRetry(ctx, []string{chunk.CombinedText})
	if err != nil {
		return nil, false, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "embedding service failed", err)
	}

	record := &domain.EmbeddingRecord{
		ChunkID:          chunk.ID(),
		DocumentID:       chunk.DocumentID,
		PageNumber:       chunk.PageNumber,
		ChunkIndex:       chunk.ChunkIndex,
		Content:          chunk.CombinedText,
		SourceElementIDs: chunk.SourceElementIDs,
		ContentHash:      hash,
		Vector:           vectors[0],
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, true, err
	}

	return record, true, nil
}

// IndexChunks indexes a batch of chunks with per-chunk failure
// isolation: a failed chunk is reported and its siblings keep going.
// Unchanged chunks are skipped without any embedding-service call, so
// re-ingesting an identical document makes zero embedding requests.
func (s *Indexer) IndexChunks(ctx context.Context, chunks []domain.Chunk) *IndexReport {
	report := &IndexReport{}

	pending := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		stored, err := s.repo.GetContentHash(ctx, chunk.ID())
		if err != nil && !errors.Is(err, domain.ErrChunkNotFound) {
			report.Failed = append(report.Failed, FailedChunk{ChunkID: chunk.ID(), PageNumber: chunk.PageNumber, Err: err})
			continue
		}
		if err == nil && stored == chunk.ContentHash() {
			report.Skipped++
			continue
		}
		pending = append(pending, chunk)
	}

	for start := 0; start < len(pending); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.CombinedText
		}

		vectors, err := s.embedWithRetry(ctx, texts)
		if err != nil {
			embErr := domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "embedding service failed", err)
			for _, chunk := range batch {
				report.Failed = append(report.Failed, FailedChunk{ChunkID: chunk.ID(), PageNumber: chunk.PageNumber, Err: embErr})
			}
			continue
		}

		for i, chunk := range batch {
			record := &domain.EmbeddingRecord{
				ChunkID:          chunk.ID(),
				DocumentID:       chunk.DocumentID,
				PageNumber:       chunk.PageNumber,
				ChunkIndex:       chunk.ChunkIndex,
				Content:          chunk.CombinedText,
				SourceElementIDs: chunk.SourceElementIDs,
				ContentHash:      chunk.ContentHash(),
				Vector:           vectors[i],
			}
			if err := s.repo.Upsert(ctx, record); err != nil {
				log.Printf("upsert failed for chunk %s: %v", chunk.ID(), err)
				report.Failed = append(report.Failed, FailedChunk{ChunkID: chunk.ID(), PageNumber: chunk.PageNumber, Err: err})
				continue
			}
			report.Indexed++
		}
	}

	return report
}

func (s *Indexer) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		result, err := s.client.GenerateEmbeddings(callCtx, texts)
		if err != nil {
			return err
		}
		vectors = result
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	policy := backoff.WithMaxRetries(backoff.WithContext(b, ctx), s.cfg.MaxRetries)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return vectors, nil
}

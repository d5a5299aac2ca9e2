package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// ChunkRepository persists chunk embeddings and serves vector search.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) GetContentHash(ctx context.Context, chunkID string) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx,
		`SELECT content_hash FROM chunks WHERE id = $1`,
		chunkID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrChunkNotFound
		}
		return "", err
	}
	return hash, nil
}

func (r *ChunkRepository) Upsert(ctx context.Context, record *domain.EmbeddingRecord) error {
	now := time.Now().UTC()
	sourceIDs := record.SourceElementIDs
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO chunks (id, document_id, page_number, chunk_index, content, source_element_ids, content_hash, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET content = EXCLUDED.content,
		     source_element_ids = EXCLUDED.source_element_ids,
		     content_hash = EXCLUDED.content_hash,
		     embedding = EXCLUDED.embedding,
		     updated_at = EXCLUDED.updated_at`,
		record.ChunkID, record.DocumentID, record.PageNumber, record.ChunkIndex,
		record.Content, sourceIDs, record.ContentHash, pgvector.NewVector(record.Vector), now,
	)
	return err
}

// SearchByEmbedding returns the closest chunks to the query vector
// within one document. Ordering is deterministic: score descending,
// then page number and chunk index ascending.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, documentID string, vector []float32, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 4
	}

	// The (page_number, chunk_index) tie-break fires on exact score
	// equality, which is where duplicated content lands. Near-equal
	// scores keep their raw similarity order.
	rows, err := r.db.Query(ctx,
		`SELECT document_id, page_number, chunk_index, content, source_element_ids,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM chunks
		 WHERE document_id = $2 AND embedding IS NOT NULL
		 ORDER BY score DESC, page_number ASC, chunk_index ASC
		 LIMIT $3`,
		pgvector.NewVector(vector), documentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(&sc.Chunk.DocumentID, &sc.Chunk.PageNumber, &sc.Chunk.ChunkIndex, &sc.Chunk.CombinedText, &sc.Chunk.SourceElementIDs, &sc.Score); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// CountByDocument reports how many chunks a document has indexed.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

// DeleteByDocument removes every chunk belonging to a document.
// Cascading deletes cover document removal; this exists for re-chunking
// a document in place.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

package service

import (
	"context"
	"strings"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// SearchRepository defines the vector search operations the retriever needs
type SearchRepository interface {
	// SearchByEmbedding returns the closest chunks to the query vector
	// within a single document, ordered by descending score. Ties break
	// on ascending page number, then chunk index.
	SearchByEmbedding(ctx context.Context, documentID string, vector []float32, limit int) ([]domain.ScoredChunk, error)
}

// RetrievalConfig controls how many chunks a query pulls back.
type RetrievalConfig struct {
	TopK int
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{TopK: 4}
}

// Retriever answers similarity queries scoped to one document.
type Retriever struct {
	client EmbeddingClient
	repo   SearchRepository
	cfg    RetrievalConfig
}

func NewRetriever(client EmbeddingClient, repo SearchRepository) *Retriever {
	return NewRetrieverWithConfig(client, repo, DefaultRetrievalConfig())
}

func NewRetrieverWithConfig(client EmbeddingClient, repo SearchRepository, cfg RetrievalConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrievalConfig().TopK
	}
	return &Retriever{
		client: client,
		repo:   repo,
		cfg:    cfg,
	}
}

// Retrieve embeds the query and returns up to TopK scored chunks from
// the given document. An empty result is not an error: a query against
// a document with no indexed chunks simply returns nothing.
func (s *Retriever) Retrieve(ctx context.Context, documentID, query string) ([]domain.ScoredChunk, error) {
	if documentID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query must not be empty")
	}

	vector, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to embed query", err)
	}

	chunks, err := s.repo.SearchByEmbedding(ctx, documentID, vector, s.cfg.TopK)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrieval, "vector search failed", err)
	}

	return chunks, nil
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/veldt-labs/papyrus/internal/domain"
)

func fastIndexerConfig() IndexerConfig {
	return IndexerConfig{
		BatchSize:      16,
		MaxRetries:     2,
		CallTimeout:    time.Second,
		InitialBackoff: time.Millisecond,
	}
}

func testChunk(docID string, page, index int, text string) domain.Chunk {
	return domain.Chunk{
		DocumentID:   docID,
		PageNumber:   page,
		ChunkIndex:   index,
		CombinedText: text,
	}
}

func TestIndexer_IndexChunk_EmbedsAndUpserts(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunk := testChunk("doc-1", 1, 0, "page one text")
	vector := []float32{0.1, 0.2, 0.3}

	mockRepo.On("GetContentHash", mock.Anything, chunk.ID()).Return("", domain.ErrChunkNotFound)
	mockClient.On("GenerateEmbeddings", mock.Anything, []string{"page one text"}).Return([][]float32{vector}, nil)
	mockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *domain.EmbeddingRecord) bool {
		return r.ChunkID == chunk.ID() && r.ContentHash == chunk.ContentHash() && len(r.Vector) == 3
	})).Return(nil)

	record, embedded, err := idx.IndexChunk(context.Background(), chunk)

	assert.NoError(t, err)
	assert.True(t, embedded)
	assert.Equal(t, vector, record.Vector)
	mockClient.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestIndexer_IndexChunk_SkipsUnchangedContent(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunk := testChunk("doc-1", 1, 0, "page one text")
	mockRepo.On("GetContentHash", mock.Anything, chunk.ID()).Return(chunk.ContentHash(), nil)

	record, embedded, err := idx.IndexChunk(context.Background(), chunk)

	assert.NoError(t, err)
	assert.False(t, embedded)
	assert.Equal(t, chunk.ID(), record.ChunkID)
	mockClient.AssertNotCalled(t, "GenerateEmbeddings", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIndexer_IndexChunk_ReembedsChangedContent(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunk := testChunk("doc-1", 1, 0, "updated text")
	mockRepo.On("GetContentHash", mock.Anything, chunk.ID()).Return("stale-hash", nil)
	mockClient.On("GenerateEmbeddings", mock.Anything, []string{"updated text"}).Return([][]float32{{0.5}}, nil)
	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	_, embedded, err := idx.IndexChunk(context.Background(), chunk)

	assert.NoError(t, err)
	assert.True(t, embedded)
	mockClient.AssertExpectations(t)
}

func TestIndexer_IndexChunks_IdenticalBatchMakesNoEmbeddingCalls(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunks := []domain.Chunk{
		testChunk("doc-1", 1, 0, "page one"),
		testChunk("doc-1", 2, 0, "page two"),
	}
	for _, c := range chunks {
		mockRepo.On("GetContentHash", mock.Anything, c.ID()).Return(c.ContentHash(), nil)
	}

	report := idx.IndexChunks(context.Background(), chunks)

	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Indexed)
	assert.Empty(t, report.Failed)
	mockClient.AssertNotCalled(t, "GenerateEmbeddings", mock.Anything, mock.Anything)
}

func TestIndexer_IndexChunks_BatchesPendingChunks(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunks := []domain.Chunk{
		testChunk("doc-1", 1, 0, "page one"),
		testChunk("doc-1", 2, 0, "page two"),
	}
	for _, c := range chunks {
		mockRepo.On("GetContentHash", mock.Anything, c.ID()).Return("", domain.ErrChunkNotFound)
	}
	mockClient.On("GenerateEmbeddings", mock.Anything, []string{"page one", "page two"}).
		Return([][]float32{{0.1}, {0.2}}, nil)
	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Times(2)

	report := idx.IndexChunks(context.Background(), chunks)

	assert.Equal(t, 2, report.Indexed)
	assert.Empty(t, report.Failed)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbeddings", 1)
}

func TestIndexer_IndexChunks_UpsertFailureIsolated(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	good := testChunk("doc-1", 1, 0, "page one")
	bad := testChunk("doc-1", 2, 0, "page two")

	mockRepo.On("GetContentHash", mock.Anything, good.ID()).Return("", domain.ErrChunkNotFound)
	mockRepo.On("GetContentHash", mock.Anything, bad.ID()).Return("", domain.ErrChunkNotFound)
	mockClient.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}, {0.2}}, nil)
	mockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *domain.EmbeddingRecord) bool {
		return r.ChunkID == good.ID()
	})).Return(nil)
	mockRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *domain.EmbeddingRecord) bool {
		return r.ChunkID == bad.ID()
	})).Return(errors.New("connection reset"))

	report := idx.IndexChunks(context.Background(), []domain.Chunk{good, bad})

	assert.Equal(t, 1, report.Indexed)
	assert.Len(t, report.Failed, 1)
	assert.Equal(t, bad.ID(), report.Failed[0].ChunkID)
	assert.Equal(t, 2, report.Failed[0].PageNumber)
}

func TestIndexer_IndexChunks_EmbeddingFailureMarksBatchFailed(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunks := []domain.Chunk{
		testChunk("doc-1", 1, 0, "page one"),
		testChunk("doc-1", 2, 0, "page two"),
	}
	for _, c := range chunks {
		mockRepo.On("GetContentHash", mock.Anything, c.ID()).Return("", domain.ErrChunkNotFound)
	}
	mockClient.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return(nil, errors.New("service unavailable"))

	report := idx.IndexChunks(context.Background(), chunks)

	assert.Equal(t, 0, report.Indexed)
	assert.Len(t, report.Failed, 2)
	var domainErr *domain.DomainError
	assert.ErrorAs(t, report.Failed[0].Err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbedding, domainErr.Code)
	mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIndexer_IndexChunks_RetriesTransientEmbeddingError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockChunkRepo)
	idx := NewIndexerWithConfig(mockClient, mockRepo, fastIndexerConfig())

	chunk := testChunk("doc-1", 1, 0, "page one")
	mockRepo.On("GetContentHash", mock.Anything, chunk.ID()).Return("", domain.ErrChunkNotFound)
	mockClient.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout")).Once()
	mockClient.On("GenerateEmbeddings", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil).Once()
	mockRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	report := idx.IndexChunks(context.Background(), []domain.Chunk{chunk})

	assert.Equal(t, 1, report.Indexed)
	assert.Empty(t, report.Failed)
	mockClient.AssertExpectations(t)
}

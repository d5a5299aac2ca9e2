package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/openai"
	"github.com/veldt-labs/papyrus/internal/pagination"
)

// MockEmbeddingClient mocks the OpenAI embedding client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockVisionClient mocks the OpenAI vision client
type MockVisionClient struct {
	mock.Mock
}

func (m *MockVisionClient) SummarizeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	args := m.Called(ctx, image, mimeType, instruction)
	return args.String(0), args.Error(1)
}

// MockChatClient mocks the OpenAI chat client
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) GenerateAnswer(ctx context.Context, systemPrompt string, history []openai.Message, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, history, userPrompt)
	return args.String(0), args.Error(1)
}

// MockBlobStore mocks blob storage
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockBlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

// MockChunkRepo mocks the vector index repository for the indexer
type MockChunkRepo struct {
	mock.Mock
}

func (m *MockChunkRepo) GetContentHash(ctx context.Context, chunkID string) (string, error) {
	args := m.Called(ctx, chunkID)
	return args.String(0), args.Error(1)
}

func (m *MockChunkRepo) Upsert(ctx context.Context, record *domain.EmbeddingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockSearchRepo mocks vector search
type MockSearchRepo struct {
	mock.Mock
}

func (m *MockSearchRepo) SearchByEmbedding(ctx context.Context, documentID string, vector []float32, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, documentID, vector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockDocumentRepo mocks the document repository
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) Update(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]*domain.Document, error) {
	args := m.Called(ctx, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionRepo mocks the chat session repository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepo) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepo) CreateTurn(ctx context.Context, turn *domain.QueryTurn) error {
	args := m.Called(ctx, turn)
	return args.Error(0)
}

func (m *MockSessionRepo) ListTurns(ctx context.Context, sessionID string) ([]domain.QueryTurn, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueryTurn), args.Error(1)
}

// MockExtractor mocks document partitioning
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Partition(ctx context.Context, doc *domain.Document, content []byte) ([]RawElement, error) {
	args := m.Called(ctx, doc, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RawElement), args.Error(1)
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// MockBatchProcessor is a mock implementation of BatchProcessor
type MockBatchProcessor struct {
	mock.Mock
}

func (m *MockBatchProcessor) ProcessBatch(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDocumentQueue is a mock implementation of DocumentQueue
type MockDocumentQueue struct {
	mock.Mock
}

func (m *MockDocumentQueue) ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentQueue) Update(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentQueue) RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}

// MockIngestionPipeline is a mock implementation of IngestionPipeline
type MockIngestionPipeline struct {
	mock.Mock
}

func (m *MockIngestionPipeline) ProcessClaimed(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockBatchProcessor)
	mockProcessor.On("ProcessBatch", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessBatch", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockBatchProcessor)
	mockProcessor.On("ProcessBatch", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessBatch", mock.Anything)
}

func TestIngestionWorker_ProcessBatch_NoPendingDocuments(t *testing.T) {
	mockQueue := new(MockDocumentQueue)
	mockPipeline := new(MockIngestionPipeline)

	mockQueue.On("RequeueStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockQueue.On("ClaimPending", mock.Anything, 5).Return([]*domain.Document{}, nil)

	worker := NewIngestionWorker(mockQueue, mockPipeline, 5)
	err := worker.ProcessBatch(context.Background())

	assert.NoError(t, err)
	mockQueue.AssertExpectations(t)
	mockPipeline.AssertNotCalled(t, "ProcessClaimed", mock.Anything, mock.Anything)
}

func TestIngestionWorker_ProcessBatch_Success(t *testing.T) {
	mockQueue := new(MockDocumentQueue)
	mockPipeline := new(MockIngestionPipeline)

	doc := &domain.Document{ID: "doc-1", Filename: "report.pdf", Status: domain.DocumentStatusProcessing}

	mockQueue.On("RequeueStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockQueue.On("ClaimPending", mock.Anything, 5).Return([]*domain.Document{doc}, nil)
	mockPipeline.On("ProcessClaimed", mock.Anything, doc).Return(nil)

	worker := NewIngestionWorker(mockQueue, mockPipeline, 5)
	err := worker.ProcessBatch(context.Background())

	assert.NoError(t, err)
	mockQueue.AssertExpectations(t)
	mockPipeline.AssertExpectations(t)
	mockQueue.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestIngestionWorker_ProcessBatch_FailureWithRetry(t *testing.T) {
	mockQueue := new(MockDocumentQueue)
	mockPipeline := new(MockIngestionPipeline)

	doc := &domain.Document{ID: "doc-1", Filename: "report.pdf", Status: domain.DocumentStatusProcessing, Retries: 0}

	mockQueue.On("RequeueStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockQueue.On("ClaimPending", mock.Anything, 5).Return([]*domain.Document{doc}, nil)
	mockPipeline.On("ProcessClaimed", mock.Anything, doc).Return(errors.New("extraction failed"))
	mockQueue.On("Update", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusPending && d.Retries == 1 && d.Error != ""
	})).Return(nil)

	worker := NewIngestionWorker(mockQueue, mockPipeline, 5)
	err := worker.ProcessBatch(context.Background())

	assert.NoError(t, err)
	mockQueue.AssertExpectations(t)
}

func TestIngestionWorker_ProcessBatch_MaxRetriesExceeded(t *testing.T) {
	mockQueue := new(MockDocumentQueue)
	mockPipeline := new(MockIngestionPipeline)

	doc := &domain.Document{ID: "doc-1", Filename: "report.pdf", Status: domain.DocumentStatusProcessing, Retries: 2}

	mockQueue.On("RequeueStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockQueue.On("ClaimPending", mock.Anything, 5).Return([]*domain.Document{doc}, nil)
	mockPipeline.On("ProcessClaimed", mock.Anything, doc).Return(errors.New("extraction failed"))
	mockQueue.On("Update", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Status == domain.DocumentStatusFailed && d.Retries == 3
	})).Return(nil)

	worker := NewIngestionWorker(mockQueue, mockPipeline, 5)
	err := worker.ProcessBatch(context.Background())

	assert.NoError(t, err)
	mockQueue.AssertExpectations(t)
}

func TestIngestionWorker_ProcessBatch_MultipleDocuments(t *testing.T) {
	mockQueue := new(MockDocumentQueue)
	mockPipeline := new(MockIngestionPipeline)

	docs := []*domain.Document{
		{ID: "doc-1", Filename: "a.pdf", Status: domain.DocumentStatusProcessing},
		{ID: "doc-2", Filename: "b.pdf", Status: domain.DocumentStatusProcessing},
	}

	mockQueue.On("RequeueStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockQueue.On("ClaimPending", mock.Anything, 5).Return(docs, nil)
	mockPipeline.On("ProcessClaimed", mock.Anything, docs[0]).Return(nil)
	mockPipeline.On("ProcessClaimed", mock.Anything, docs[1]).Return(nil)

	worker := NewIngestionWorker(mockQueue, mockPipeline, 5)
	err := worker.ProcessBatch(context.Background())

	assert.NoError(t, err)
	mockPipeline.AssertExpectations(t)
}

func TestIngestionWorker_ProcessBatch_ClaimError(t *testing.T) {
	mockQueue := new(MockDocumentQueue)
	mockPipeline := new(MockIngestionPipeline)

	mockQueue.On("RequeueStuck", mock.Anything, mock.Anything).Return(int64(0), nil)
	mockQueue.On("ClaimPending", mock.Anything, 5).Return(nil, errors.New("database error"))

	worker := NewIngestionWorker(mockQueue, mockPipeline, 5)
	err := worker.ProcessBatch(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending documents")
}

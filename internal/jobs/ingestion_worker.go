package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/veldt-labs/papyrus/internal/domain"
)

const (
	// MaxRetries is the maximum number of ingestion attempts per document
	MaxRetries = 3

	// stuckAge is how long a document may sit in processing before it
	// is assumed orphaned by a crashed worker and requeued.
	stuckAge = 15 * time.Minute
)

// DocumentQueue defines the queue operations over the documents table
type DocumentQueue interface {
	// ClaimPending atomically claims up to limit pending documents.
	ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error)

	// Update persists a document's status after processing.
	Update(ctx context.Context, doc *domain.Document) error

	// RequeueStuck returns orphaned processing documents to pending.
	RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error)
}

// IngestionPipeline defines the interface for running the ingestion
// pipeline on a claimed document
type IngestionPipeline interface {
	ProcessClaimed(ctx context.Context, doc *domain.Document) error
}

// IngestionWorker drives document ingestion off the documents table.
type IngestionWorker struct {
	queue     DocumentQueue
	pipeline  IngestionPipeline
	batchSize int
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(queue DocumentQueue, pipeline IngestionPipeline, batchSize int) *IngestionWorker {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &IngestionWorker{
		queue:     queue,
		pipeline:  pipeline,
		batchSize: batchSize,
	}
}

// ProcessBatch requeues orphaned documents, then claims and processes
// one batch of pending ones.
func (w *IngestionWorker) ProcessBatch(ctx context.Context) error {
	requeued, err := w.queue.RequeueStuck(ctx, stuckAge)
	if err != nil {
		log.Printf("Error requeueing stuck documents: %v", err)
	} else if requeued > 0 {
		log.Printf("Requeued %d stuck documents", requeued)
	}

	docs, err := w.queue.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending documents: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending documents", len(docs))

	for _, doc := range docs {
		if err := w.processDocument(ctx, doc); err != nil {
			log.Printf("Error processing document %s: %v", doc.ID, err)
		}
	}

	return nil
}

func (w *IngestionWorker) processDocument(ctx context.Context, doc *domain.Document) error {
	log.Printf("Processing document %s (%s)", doc.ID, doc.Filename)

	if err := w.pipeline.ProcessClaimed(ctx, doc); err != nil {
		return w.handleFailure(ctx, doc, err)
	}

	log.Printf("Document %s ingested successfully", doc.ID)
	return nil
}

// handleFailure requeues a failed document until MaxRetries is hit,
// then marks it permanently failed.
func (w *IngestionWorker) handleFailure(ctx context.Context, doc *domain.Document, procErr error) error {
	log.Printf("Document %s failed: %v", doc.ID, procErr)

	doc.Retries++
	doc.UpdatedAt = time.Now().UTC()

	if doc.Retries >= MaxRetries {
		log.Printf("Document %s exceeded max retries (%d), marking as failed", doc.ID, MaxRetries)
		doc.Status = domain.DocumentStatusFailed
		doc.Error = fmt.Sprintf("max retries exceeded: %v", procErr)
	} else {
		log.Printf("Document %s will be retried (attempt %d/%d)", doc.ID, doc.Retries, MaxRetries)
		doc.Status = domain.DocumentStatusPending
		doc.Error = fmt.Sprintf("retry %d: %v", doc.Retries, procErr)
	}

	if err := w.queue.Update(ctx, doc); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

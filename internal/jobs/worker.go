package jobs

import (
	"context"
	"log"
	"time"
)

// BatchProcessor defines the interface for draining one batch of queued
// documents per poll tick.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) error
}

// Worker polls the document queue on a fixed interval and hands each
// tick to its processor. A tick that errors is logged and the loop
// keeps polling.
type Worker struct {
	processor    BatchProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor BatchProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the polling loop and blocks until the worker stops.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Ingestion worker polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Ingestion worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Ingestion worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessBatch(ctx); err != nil {
				log.Printf("Error processing document batch: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Ingestion worker shutdown complete")
}

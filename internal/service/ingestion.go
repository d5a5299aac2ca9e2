package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/telemetry"
)

// Extractor defines the interface for partitioning a source document
// into raw layout elements.
type Extractor interface {
	Partition(ctx context.Context, doc *domain.Document, content []byte) ([]RawElement, error)
}

// IngestDocumentRepository defines the document persistence operations
// the ingestor needs.
type IngestDocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
}

// IngestorConfig controls pipeline concurrency.
type IngestorConfig struct {
	// Concurrency bounds how many elements are summarized in parallel
	// for one document.
	Concurrency int
}

func DefaultIngestorConfig() IngestorConfig {
	return IngestorConfig{Concurrency: 4}
}

// Ingestor runs the ingestion pipeline: extract, normalize, summarize,
// aggregate, index. Uploads are deduplicated by content: re-uploading
// an already-ready document is a no-op.
type Ingestor struct {
	docs       IngestDocumentRepository
	blobs      BlobStore
	extractor  Extractor
	normalizer *Normalizer
	summarizer *Summarizer
	aggregator *Aggregator
	indexer    *Indexer
	cfg        IngestorConfig

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

func NewIngestor(
	docs IngestDocumentRepository,
	blobs BlobStore,
	extractor Extractor,
	normalizer *Normalizer,
	summarizer *Summarizer,
	aggregator *Aggregator,
	indexer *Indexer,
	cfg IngestorConfig,
) *Ingestor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultIngestorConfig().Concurrency
	}
	return &Ingestor{
		docs:       docs,
		blobs:      blobs,
		extractor:  extractor,
		normalizer: normalizer,
		summarizer: summarizer,
		aggregator: aggregator,
		indexer:    indexer,
		cfg:        cfg,
		inflight:   make(map[string]*sync.Mutex),
	}
}

// Ingest registers an upload. The document ID is derived from the file
// content, so the same bytes always map to the same document: a ready
// document is returned as-is, a failed one is requeued, and anything
// in flight is left alone.
func (s *Ingestor) Ingest(ctx context.Context, filename string, content []byte) (*domain.Document, error) {
	if filename == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	if len(content) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "file content is empty")
	}

	id := domain.DocumentID(content)

	ctx, span := telemetry.StartSpan(ctx, "Ingestor.Ingest", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "upload",
	})
	defer span.End()

	existing, err := s.docs.GetByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, err
	}
	if err == nil {
		switch existing.Status {
		case domain.DocumentStatusReady, domain.DocumentStatusPending, domain.DocumentStatusProcessing:
			return existing, nil
		case domain.DocumentStatusFailed:
			existing.Status = domain.DocumentStatusPending
			existing.Retries++
			existing.Error = ""
			existing.FailedPages = nil
			existing.UpdatedAt = time.Now().UTC()
			if err := s.docs.Update(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
	}

	sourceKey := path.Join("documents", id, filename)
	if err := s.blobs.Put(ctx, sourceKey, content, contentTypeForName(filename)); err != nil {
		return nil, fmt.Errorf("failed to store source file: %w", err)
	}

	doc := domain.NewDocument(filename, content, sourceKey, time.Now().UTC())
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Process runs the pipeline for one pending or requeued document. Safe
// to call concurrently: a second call for the same document blocks
// until the first finishes, then sees the updated status and returns.
func (s *Ingestor) Process(ctx context.Context, documentID string) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.DocumentStatusPending {
		return nil
	}

	doc.Status = domain.DocumentStatusProcessing
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docs.Update(ctx, doc); err != nil {
		return err
	}

	if err := s.ProcessClaimed(ctx, doc); err != nil {
		doc.Status = domain.DocumentStatusFailed
		doc.Error = err.Error()
		doc.UpdatedAt = time.Now().UTC()
		if updateErr := s.docs.Update(ctx, doc); updateErr != nil {
			log.Printf("failed to mark document %s as failed: %v", doc.ID, updateErr)
		}
		return err
	}
	return nil
}

// ProcessClaimed runs the pipeline for a document already moved to
// processing status. On failure the document row is left untouched so
// the caller decides between requeue and permanent failure.
func (s *Ingestor) ProcessClaimed(ctx context.Context, doc *domain.Document) error {
	lock := s.lockFor(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	return s.runPipeline(ctx, doc)
}

func (s *Ingestor) runPipeline(ctx context.Context, doc *domain.Document) error {
	ctx, span := telemetry.StartSpan(ctx, "Ingestor.runPipeline", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	content, err := s.blobs.Get(ctx, doc.SourceKey)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, "failed to load source file", err)
	}

	raw, err := s.extractor.Partition(ctx, doc, content)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeExtraction, "document extraction failed", err)
	}

	elements := s.normalizer.Normalize(doc.ID, raw)

	summarized := make([]domain.Element, len(elements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, element := range elements {
		g.Go(func() error {
			summarized[i] = s.summarizer.Summarize(gctx, element)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	chunks := s.aggregator.Aggregate(summarized)
	report := s.indexer.IndexChunks(ctx, chunks)

	doc.PageCount = pageCount(elements)
	doc.FailedPages = failedPages(report)
	doc.UpdatedAt = time.Now().UTC()

	if len(chunks) > 0 && report.Indexed == 0 && report.Skipped == 0 {
		return domain.NewDomainError(domain.ErrCodeEmbedding, "indexing failed for every chunk")
	}

	doc.Status = domain.DocumentStatusReady
	doc.Error = ""
	return s.docs.Update(ctx, doc)
}

func (s *Ingestor) lockFor(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.inflight[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.inflight[documentID] = lock
	}
	return lock
}

func pageCount(elements []domain.Element) int {
	max := 0
	for _, e := range elements {
		if e.PageNumber > max {
			max = e.PageNumber
		}
	}
	return max
}

func failedPages(report *IndexReport) []int32 {
	if len(report.Failed) == 0 {
		return nil
	}
	seen := make(map[int32]struct{})
	pages := make([]int32, 0, len(report.Failed))
	for _, f := range report.Failed {
		page := int32(f.PageNumber)
		if _, ok := seen[page]; ok {
			continue
		}
		seen[page] = struct{}{}
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

func contentTypeForName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".html", ".htm":
		return "text/html"
	case ".txt", ".md":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

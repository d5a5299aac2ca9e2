package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// summarizeInstruction is the fixed instruction sent with every image.
const summarizeInstruction = "Analyze the provided image and generate a concise, detailed summary that describes the content precisely for retrieval."

// VisionClient defines the interface for image summarization
type VisionClient interface {
	SummarizeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
}

// BlobStore defines the blob storage operations the pipeline needs
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// SummarizerConfig controls retry behavior for summarization calls.
type SummarizerConfig struct {
	MaxRetries     uint64
	CallTimeout    time.Duration
	InitialBackoff time.Duration
}

// DefaultSummarizerConfig provides sane defaults for summarization retries.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		MaxRetries:     3,
		CallTimeout:    60 * time.Second,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Summarizer fills in the derived text of image elements by calling the
// vision service. A failed summary degrades to a placeholder rather than
// aborting the document: one broken figure must not sink an ingestion.
type Summarizer struct {
	vision VisionClient
	blobs  BlobStore
	cfg    SummarizerConfig
}

func NewSummarizer(vision VisionClient, blobs BlobStore) *Summarizer {
	return NewSummarizerWithConfig(vision, blobs, DefaultSummarizerConfig())
}

func NewSummarizerWithConfig(vision VisionClient, blobs BlobStore, cfg SummarizerConfig) *Summarizer {
	if cfg.MaxRetries == 0 {
		cfg = DefaultSummarizerConfig()
	}
	return &Summarizer{
		vision: vision,
		blobs:  blobs,
		cfg:    cfg,
	}
}

// Summarize returns the element with DerivedText populated. Text and
// table elements pass through unchanged.
func (s *Summarizer) Summarize(ctx context.Context, element domain.Element) domain.Element {
	if element.Kind != domain.ElementKindImage {
		return element
	}

	summary, err := s.summarizeImage(ctx, element)
	if err != nil {
		log.Printf("summarization failed for %s page %d: %v", element.DocumentID, element.PageNumber, err)
		element.DerivedText = fmt.Sprintf("[unsummarized %s on page %d]", element.Kind, element.PageNumber)
		return element
	}

	element.DerivedText = summary
	return element
}

func (s *Summarizer) summarizeImage(ctx context.Context, element domain.Element) (string, error) {
	image, err := s.blobs.Get(ctx, element.RawContent)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeSummarization, "failed to load image", err)
	}

	var summary string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		result, err := s.vision.SummarizeImage(callCtx, image, mimeTypeForKey(element.RawContent), summarizeInstruction)
		if err != nil {
			return err
		}
		summary = result
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialBackoff
	policy := backoff.WithMaxRetries(backoff.WithContext(b, ctx), s.cfg.MaxRetries)

	if err := backoff.Retry(operation, policy); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeSummarization, "vision service failed", err)
	}

	return summary, nil
}

func mimeTypeForKey(key string) string {
	lower := strings.ToLower(key)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		return "image/jpeg"
	}
	return "image/png"
}

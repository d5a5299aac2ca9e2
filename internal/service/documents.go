package service

import (
	"context"
	"log"
	"path"
	"time"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/pagination"
)

// DocumentRepository defines the document persistence operations the
// document service needs.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// DocumentService exposes read and removal operations over ingested
// documents. Ingestion itself lives on Ingestor.
type DocumentService struct {
	repo  DocumentRepository
	blobs BlobStore
}

func NewDocumentService(repo DocumentRepository, blobs BlobStore) *DocumentService {
	return &DocumentService{
		repo:  repo,
		blobs: blobs,
	}
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns documents newest first, paginated by cursor.
func (s *DocumentService) List(ctx context.Context, limit int, cursorStr string) (*pagination.PageResult[*domain.Document], error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	docs, err := s.repo.List(ctx, limit, cursor)
	if err != nil {
		return nil, err
	}

	next := pagination.CreateNextCursor(docs, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt },
	)

	return &pagination.PageResult[*domain.Document]{
		Items:   docs,
		Cursor:  next,
		HasMore: next != "",
	}, nil
}

// Remove deletes a document, its indexed chunks and its stored files.
// Chunks and chat sessions go with the document row via cascading
// deletes; blobs are best-effort cleanup.
func (s *DocumentService) Remove(ctx context.Context, id string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return err
	}

	prefix := path.Join("documents", doc.ID) + "/"
	if err := s.blobs.DeletePrefix(ctx, prefix); err != nil {
		log.Printf("failed to remove stored files for document %s: %v", doc.ID, err)
	}
	return nil
}

package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/papyrus/internal/api"
	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/pagination"
)

type DocumentIngestor interface {
	Ingest(ctx context.Context, filename string, content []byte) (*domain.Document, error)
}

type DocumentService interface {
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error)
	Remove(ctx context.Context, id string) error
}

type DocumentHandler struct {
	ingestor DocumentIngestor
	svc      DocumentService
}

func NewDocumentHandler(ingestor DocumentIngestor, svc DocumentService) *DocumentHandler {
	return &DocumentHandler{
		ingestor: ingestor,
		svc:      svc,
	}
}

type DocumentResponse struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Status      string  `json:"status"`
	PageCount   int     `json:"page_count"`
	FailedPages []int32 `json:"failed_pages,omitempty"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func documentToResponse(doc *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          doc.ID,
		Filename:    doc.Filename,
		Status:      string(doc.Status),
		PageCount:   doc.PageCount,
		FailedPages: doc.FailedPages,
		Error:       doc.Error,
		CreatedAt:   doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   doc.UpdatedAt.Format(time.RFC3339),
	}
}

// Upload accepts a multipart file and queues it for ingestion. The same
// file uploaded twice maps to the same document.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := h.ingestor.Ingest(r.Context(), header.Filename, content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusAccepted
	if doc.Status == domain.DocumentStatusReady {
		status = http.StatusOK
	}
	api.Success(w, status, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(page.Items))
	for i, doc := range page.Items {
		items[i] = documentToResponse(doc)
	}

	api.Success(w, http.StatusOK, pagination.PageResult[*DocumentResponse]{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "documentID")

	if err := h.svc.Remove(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

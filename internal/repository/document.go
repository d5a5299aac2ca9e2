package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/pagination"
)

// DocumentRepository handles persistence of ingested documents. The
// documents table doubles as the ingestion queue: workers claim rows in
// pending status.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, source_key, status, page_count, failed_pages, retries, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Filename, doc.SourceKey, doc.Status, doc.PageCount, doc.FailedPages, doc.Retries, nullableString(doc.Error), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, filename, source_key, status, page_count, failed_pages, retries, error, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET filename = $2, source_key = $3, status = $4, page_count = $5, failed_pages = $6, retries = $7, error = $8, updated_at = $9
		 WHERE id = $1`,
		doc.ID, doc.Filename, doc.SourceKey, doc.Status, doc.PageCount, doc.FailedPages, doc.Retries, nullableString(doc.Error), doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, source_key, status, page_count, failed_pages, retries, error, created_at, updated_at
			 FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, filename, source_key, status, page_count, failed_pages, retries, error, created_at, updated_at
			 FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ClaimPending atomically flips up to limit pending documents to
// processing and returns them, skipping rows another worker holds.
func (r *DocumentRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM documents
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE documents
		 SET status = $3,
		     error = NULL,
		     updated_at = $4
		 FROM cte
		 WHERE documents.id = cte.id
		 RETURNING documents.id, documents.filename, documents.source_key, documents.status, documents.page_count,
		           documents.failed_pages, documents.retries, documents.error, documents.created_at, documents.updated_at`,
		domain.DocumentStatusPending, limit, domain.DocumentStatusProcessing, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// RequeueStuck flips documents that have sat in processing longer than
// maxAge back to pending, so work interrupted by a crash is retried.
func (r *DocumentRepository) RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, retries = retries + 1, updated_at = $2
		 WHERE status = $3 AND updated_at < $4`,
		domain.DocumentStatusPending, time.Now().UTC(), domain.DocumentStatusProcessing, time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var errMsg pgtype.Text
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.SourceKey, &doc.Status, &doc.PageCount, &doc.FailedPages, &doc.Retries, &errMsg, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		doc.Error = errMsg.String
	}
	return &doc, nil
}

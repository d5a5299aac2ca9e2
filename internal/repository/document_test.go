//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/pagination"
	"github.com/veldt-labs/papyrus/internal/testutil"
)

func testDocument(suffix string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Document{
		ID:        domain.DocumentID([]byte("test content " + suffix)),
		Filename:  "test-" + suffix + ".pdf",
		SourceKey: "documents/test/" + suffix + ".pdf",
		Status:    domain.DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := testDocument("a")
	require.NoError(t, repo.Create(ctx, doc))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, retrieved.ID)
	assert.Equal(t, doc.Filename, retrieved.Filename)
	assert.Equal(t, doc.SourceKey, retrieved.SourceKey)
	assert.Equal(t, domain.DocumentStatusPending, retrieved.Status)
	assert.Empty(t, retrieved.FailedPages)
	assert.Empty(t, retrieved.Error)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := testDocument("a")
	require.NoError(t, repo.Create(ctx, doc))

	doc.Status = domain.DocumentStatusReady
	doc.PageCount = 7
	doc.FailedPages = []int32{3, 5}
	doc.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Update(ctx, doc))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusReady, retrieved.Status)
	assert.Equal(t, 7, retrieved.PageCount)
	assert.Equal(t, []int32{3, 5}, retrieved.FailedPages)
}

func TestDocumentRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := testDocument("a")
	err := repo.Update(ctx, doc)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_List_Pagination(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		doc := testDocument(string(rune('a' + i)))
		doc.CreatedAt = base.Add(time.Duration(i) * time.Second)
		doc.UpdatedAt = doc.CreatedAt
		require.NoError(t, repo.Create(ctx, doc))
	}

	// Newest first.
	docs, err := repo.List(ctx, 3, nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.True(t, docs[0].CreatedAt.After(docs[1].CreatedAt))

	// The cursor resumes after the last row of the previous page.
	cursor := &pagination.Cursor{LastID: docs[2].ID, Timestamp: docs[2].CreatedAt}
	rest, err := repo.List(ctx, 3, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.True(t, docs[2].CreatedAt.After(rest[0].CreatedAt))
}

func TestDocumentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := testDocument("a")
	require.NoError(t, repo.Create(ctx, doc))
	require.NoError(t, repo.Delete(ctx, doc.ID))

	_, err := repo.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	docA := testDocument("a")
	docB := testDocument("b")
	require.NoError(t, repo.Create(ctx, docA))
	require.NoError(t, repo.Create(ctx, docB))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, doc := range claimed {
		assert.Equal(t, domain.DocumentStatusProcessing, doc.Status)
	}

	// A second claim finds nothing pending.
	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestDocumentRepository_RequeueStuck(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := testDocument("a")
	require.NoError(t, repo.Create(ctx, doc))

	_, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)

	// Fresh processing rows are left alone.
	requeued, err := repo.RequeueStuck(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, requeued)

	// Backdate the row so it looks orphaned.
	_, err = pool.Exec(ctx,
		`UPDATE documents SET updated_at = NOW() - INTERVAL '1 hour' WHERE id = $1`, doc.ID)
	require.NoError(t, err)

	requeued, err = repo.RequeueStuck(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), requeued)

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, retrieved.Status)
}

//go:build integration

package vectorstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/testutil"
)

const pgDims = 1536

// unitVector returns a 1536-dim unit vector pointing along the given axis.
func unitVector(axis int) []float32 {
	vec := make([]float32, pgDims)
	vec[axis] = 1
	return vec
}

// seedChunk satisfies the foreign keys of chunk_vectors.
func seedChunk(ctx context.Context, t *testing.T, pool *pgxpool.Pool, kbID string, index int) string {
	t.Helper()
	docID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO documents (id, kb_id, filename, media_type, doc_role, content)
		 VALUES ($1, $2, 'doc.txt', 'text/plain', 'supporting', 'body')`,
		docID, kbID,
	)
	require.NoError(t, err)

	chunkID := uuid.NewString()
	_, err = pool.Exec(ctx,
		`INSERT INTO chunks (id, document_id, kb_id, chunk_index, content)
		 VALUES ($1, $2, $3, $4, 'chunk body')`,
		chunkID, docID, kbID, index,
	)
	require.NoError(t, err)
	return chunkID
}

func seedKB(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) string {
	t.Helper()
	kbID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO knowledge_bases (id, name) VALUES ($1, $2)`,
		kbID, name,
	)
	require.NoError(t, err)
	return kbID
}

func TestPgvectorStore(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPgvectorStore(pool)
	kbID := seedKB(ctx, t, pool, "kb")
	otherKB := seedKB(ctx, t, pool, "other")

	exact := seedChunk(ctx, t, pool, kbID, 0)
	near := seedChunk(ctx, t, pool, kbID, 1)
	far := seedChunk(ctx, t, pool, kbID, 2)
	foreign := seedChunk(ctx, t, pool, otherKB, 0)

	meta := func(index int) Metadata {
		return Metadata{DocumentID: uuid.NewString(), Role: domain.DocumentRoleSupporting, Index: index}
	}

	query := unitVector(0)

	nearVec := make([]float32, pgDims)
	nearVec[0] = 1
	nearVec[1] = 1

	require.NoError(t, store.Upsert(ctx, kbID, exact, unitVector(0), meta(0)))
	require.NoError(t, store.Upsert(ctx, kbID, near, nearVec, meta(1)))
	require.NoError(t, store.Upsert(ctx, kbID, far, unitVector(2), meta(2)))
	require.NoError(t, store.Upsert(ctx, otherKB, foreign, unitVector(0), meta(0)))

	count, err := store.Count(ctx, kbID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := store.Query(ctx, kbID, query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, exact, results[0].ChunkID)
	assert.Equal(t, near, results[1].ChunkID)
	assert.Equal(t, far, results[2].ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)

	// Results never cross knowledge bases.
	for _, r := range results {
		assert.NotEqual(t, foreign, r.ChunkID)
	}

	// Upsert replaces the stored embedding in place.
	require.NoError(t, store.Upsert(ctx, kbID, far, unitVector(0), meta(2)))
	count, err = store.Count(ctx, kbID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err = store.Query(ctx, kbID, query, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	// exact and far now tie on score; the earlier insertion wins.
	assert.Equal(t, exact, results[0].ChunkID)

	require.NoError(t, store.Delete(ctx, kbID, far))
	count, err = store.Count(ctx, kbID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.DeleteAll(ctx, kbID))
	count, err = store.Count(ctx, kbID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The other knowledge base is untouched.
	count, err = store.Count(ctx, otherKB)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPgvectorStore_QueryEmptyAndZeroK(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPgvectorStore(pool)
	kbID := seedKB(ctx, t, pool, "kb")

	results, err := store.Query(ctx, kbID, unitVector(0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Query(ctx, kbID, unitVector(0), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

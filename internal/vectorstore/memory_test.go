package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_QueryOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "kb1", "far", []float32{0, 1}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb1", "near", []float32{1, 0.01}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb1", "exact", []float32{1, 0}, Metadata{}))

	results, err := s.Query(ctx, "kb1", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].ChunkID)
	assert.Equal(t, "near", results[1].ChunkID)
	assert.Equal(t, "far", results[2].ChunkID)

	// Scores descend and stay within [0,1].
	for i, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0))
		assert.LessOrEqual(t, r.Score, float32(1))
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
	}
}

func TestMemoryStore_TiesBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// Identical vectors score identically; earlier insert wins.
	require.NoError(t, s.Upsert(ctx, "kb1", "first", []float32{1, 1}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb1", "second", []float32{1, 1}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb1", "third", []float32{1, 1}, Metadata{}))

	results, err := s.Query(ctx, "kb1", []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
}

func TestMemoryStore_QueryReturnsAtMostK(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(ctx, "kb1", id, []float32{float32(i + 1), 1}, Metadata{}))
	}

	results, err := s.Query(ctx, "kb1", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// k larger than the stored count returns everything.
	results, err = s.Query(ctx, "kb1", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryStore_UnknownKBIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	results, err := s.Query(ctx, "nope", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := s.Count(ctx, "nope")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStore_KnowledgeBaseIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "kb1", "one", []float32{1, 0}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb2", "two", []float32{1, 0}, Metadata{}))

	results, err := s.Query(ctx, "kb1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "one", results[0].ChunkID)
}

func TestMemoryStore_UpsertReplacesKeepingOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "kb1", "a", []float32{1, 1}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb1", "b", []float32{1, 1}, Metadata{}))
	// Replace "a" with an identical vector; it must keep its first slot.
	require.NoError(t, s.Upsert(ctx, "kb1", "a", []float32{1, 1}, Metadata{Index: 7}))

	count, err := s.Count(ctx, "kb1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := s.Query(ctx, "kb1", []float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestMemoryStore_DeleteAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "kb1", "a", []float32{1, 0}, Metadata{}))
	require.NoError(t, s.Upsert(ctx, "kb1", "b", []float32{0, 1}, Metadata{}))

	require.NoError(t, s.Delete(ctx, "kb1", "a"))
	count, err := s.Count(ctx, "kb1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting an unknown id is a no-op.
	require.NoError(t, s.Delete(ctx, "kb1", "missing"))

	require.NoError(t, s.DeleteAll(ctx, "kb1"))
	count, err = s.Count(ctx, "kb1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCosineScore(t *testing.T) {
	assert.InDelta(t, 1.0, cosineScore([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.5, cosineScore([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 0.0, cosineScore([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosineScore([]float32{0, 0}, []float32{1, 0}))
}

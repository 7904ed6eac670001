// Package vectorstore persists chunk embeddings per knowledge base and
// answers nearest-neighbor queries.
package vectorstore

import (
	"context"

	"github.com/insightqa/insightqa/internal/domain"
)

// Metadata travels with every stored vector.
type Metadata struct {
	DocumentID string
	Role       domain.DocumentRole
	Index      int
}

// Result is one query hit. Score is a bounded similarity measure;
// results are ordered descending with ties broken by insertion order.
type Result struct {
	ChunkID string
	Score   float32
}

// Store is the vector persistence contract. Query never returns more
// than min(k, stored vectors for the knowledge base) results, and
// returns an empty slice rather than failing for an unknown knowledge
// base. Implementations serialize concurrent writes per knowledge base;
// queries are read-only and need no caller-side locking.
type Store interface {
	Upsert(ctx context.Context, kbID, chunkID string, vector []float32, meta Metadata) error
	Query(ctx context.Context, kbID string, vector []float32, k int) ([]Result, error)
	Delete(ctx context.Context, kbID, chunkID string) error
	DeleteAll(ctx context.Context, kbID string) error
	Count(ctx context.Context, kbID string) (int, error)
}

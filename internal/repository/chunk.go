package repository

import (
	"context"
	"fmt"

	"github.com/insightqa/insightqa/internal/domain"
)

// ChunkRepository persists chunk text and lineage in Postgres. Vectors
// live in the vector store, keyed by the same chunk id.
type ChunkRepository struct {
	db DB
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(db DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// CreateBatch inserts a document's chunks in a single transaction.
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []domain.Chunk) error {
	return inTx(ctx, r.db, func(db DB) error {
		for i := range chunks {
			c := &chunks[i]
			_, err := db.Exec(ctx,
				`INSERT INTO chunks (id, document_id, kb_id, chunk_index, content)
				 VALUES ($1, $2, $3, $4, $5)`,
				c.ID, c.DocumentID, c.KBID, c.Index, c.Text,
			)
			if err != nil {
				return fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
			}
		}
		return nil
	})
}

// GetByIDs resolves chunk ids to chunks. Missing ids are omitted from
// the result rather than reported, so callers can render dangling
// references as unavailable.
func (r *ChunkRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	out := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, kb_id, chunk_index, content FROM chunks WHERE id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KBID, &c.Index, &c.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// ListByDocument returns a document's chunks in index order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, kb_id, chunk_index, content
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KBID, &c.Index, &c.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteByDocument removes all chunks derived from a document.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1`,
		documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

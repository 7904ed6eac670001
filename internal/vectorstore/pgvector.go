package vectorstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore persists vectors in the chunk_vectors table using the
// pgvector extension. The monotonically assigned seq column provides
// the insertion-order tie break.
type PgvectorStore struct {
	pool *pgxpool.Pool
}

// NewPgvectorStore creates a store backed by the given pool.
func NewPgvectorStore(pool *pgxpool.Pool) *PgvectorStore {
	return &PgvectorStore{pool: pool}
}

func (s *PgvectorStore) Upsert(ctx context.Context, kbID, chunkID string, vector []float32, meta Metadata) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chunk_vectors (kb_id, chunk_id, document_id, doc_role, chunk_index, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (kb_id, chunk_id) DO UPDATE
		 SET document_id = EXCLUDED.document_id,
		     doc_role = EXCLUDED.doc_role,
		     chunk_index = EXCLUDED.chunk_index,
		     embedding = EXCLUDED.embedding`,
		kbID, chunkID, meta.DocumentID, string(meta.Role), meta.Index, pgvector.NewVector(vector),
	)
	return err
}

func (s *PgvectorStore) Query(ctx context.Context, kbID string, vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id, 1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM chunk_vectors
		 WHERE kb_id = $2
		 ORDER BY score DESC, seq ASC
		 LIMIT $3`,
		pgvector.NewVector(vector), kbID, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ChunkID, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgvectorStore) Delete(ctx context.Context, kbID, chunkID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE kb_id = $1 AND chunk_id = $2`,
		kbID, chunkID,
	)
	return err
}

func (s *PgvectorStore) DeleteAll(ctx context.Context, kbID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE kb_id = $1`,
		kbID,
	)
	return err
}

func (s *PgvectorStore) Count(ctx context.Context, kbID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunk_vectors WHERE kb_id = $1`,
		kbID,
	).Scan(&count)
	return count, err
}

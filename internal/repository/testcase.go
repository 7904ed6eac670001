package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insightqa/insightqa/internal/domain"
)

// TestCaseRepository persists generated test cases in Postgres.
// Preconditions, steps, and context refs are stored as jsonb.
type TestCaseRepository struct {
	db DB
}

// NewTestCaseRepository creates a new TestCaseRepository.
func NewTestCaseRepository(db DB) *TestCaseRepository {
	return &TestCaseRepository{db: db}
}

type contextRefRow struct {
	ChunkID string  `json:"chunk_id"`
	Score   float32 `json:"score"`
}

// CreateBatch inserts the test cases of one generation request in a
// single transaction: a mid-batch failure persists none of them.
func (r *TestCaseRepository) CreateBatch(ctx context.Context, cases []domain.TestCase) error {
	return inTx(ctx, r.db, func(db DB) error {
		for i := range cases {
			if err := createTestCase(ctx, db, &cases[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func createTestCase(ctx context.Context, db DB, tc *domain.TestCase) error {
	pre, err := json.Marshal(tc.Preconditions)
	if err != nil {
		return fmt.Errorf("failed to encode preconditions: %w", err)
	}
	steps, err := json.Marshal(tc.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}
	refs := make([]contextRefRow, len(tc.Refs))
	for i, ref := range tc.Refs {
		refs[i] = contextRefRow{ChunkID: ref.ChunkID, Score: ref.Score}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to encode refs: %w", err)
	}

	_, err = db.Exec(ctx,
		`INSERT INTO test_cases (id, kb_id, generated_at, scenario, preconditions, steps, expected, refs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tc.ID, tc.KBID, tc.GeneratedAt, tc.Scenario, pre, steps, tc.Expected, refsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create test case: %w", err)
	}
	return nil
}

// GetByID fetches a test case.
func (r *TestCaseRepository) GetByID(ctx context.Context, id string) (*domain.TestCase, error) {
	var tc domain.TestCase
	var pre, steps, refs []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, kb_id, generated_at, scenario, preconditions, steps, expected, refs
		 FROM test_cases WHERE id = $1`,
		id,
	).Scan(&tc.ID, &tc.KBID, &tc.GeneratedAt, &tc.Scenario, &pre, &steps, &tc.Expected, &refs)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTestCaseNotFound
		}
		return nil, fmt.Errorf("failed to get test case: %w", err)
	}
	if err := decodeTestCaseColumns(&tc, pre, steps, refs); err != nil {
		return nil, err
	}
	return &tc, nil
}

// ListByKB returns a knowledge base's test cases ordered by generation
// time.
func (r *TestCaseRepository) ListByKB(ctx context.Context, kbID string) ([]domain.TestCase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, kb_id, generated_at, scenario, preconditions, steps, expected, refs
		 FROM test_cases WHERE kb_id = $1 ORDER BY generated_at ASC, id ASC`,
		kbID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	defer rows.Close()

	cases := make([]domain.TestCase, 0)
	for rows.Next() {
		var tc domain.TestCase
		var pre, steps, refs []byte
		if err := rows.Scan(&tc.ID, &tc.KBID, &tc.GeneratedAt, &tc.Scenario, &pre, &steps, &tc.Expected, &refs); err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}
		if err := decodeTestCaseColumns(&tc, pre, steps, refs); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

func decodeTestCaseColumns(tc *domain.TestCase, pre, steps, refs []byte) error {
	if err := json.Unmarshal(pre, &tc.Preconditions); err != nil {
		return fmt.Errorf("failed to decode preconditions: %w", err)
	}
	if err := json.Unmarshal(steps, &tc.Steps); err != nil {
		return fmt.Errorf("failed to decode steps: %w", err)
	}
	var rows []contextRefRow
	if err := json.Unmarshal(refs, &rows); err != nil {
		return fmt.Errorf("failed to decode refs: %w", err)
	}
	tc.Refs = make([]domain.ContextRef, len(rows))
	for i, row := range rows {
		tc.Refs[i] = domain.ContextRef{ChunkID: row.ChunkID, Score: row.Score}
	}
	return nil
}

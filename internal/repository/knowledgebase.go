package repository

import (
	"context"
	"fmt"

	"github.com/insightqa/insightqa/internal/domain"
)

// KnowledgeBaseRepository persists knowledge bases in Postgres.
type KnowledgeBaseRepository struct {
	db DB
}

// NewKnowledgeBaseRepository creates a new KnowledgeBaseRepository.
func NewKnowledgeBaseRepository(db DB) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: db}
}

// Create inserts a knowledge base. A name collision surfaces as
// domain.ErrDuplicateName.
func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_bases (id, name, created_at) VALUES ($1, $2, $3)`,
		kb.ID, kb.Name, kb.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName.WithDetail("%q", kb.Name)
		}
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}
	return nil
}

// GetByID fetches a knowledge base and its document ids.
func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM knowledge_bases WHERE id = $1`,
		id,
	).Scan(&kb.ID, &kb.Name, &kb.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id FROM documents WHERE kb_id = $1 ORDER BY uploaded_at ASC, id ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		kb.DocumentIDs = append(kb.DocumentIDs, docID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document ids: %w", err)
	}
	return &kb, nil
}

// List returns all knowledge bases ordered by creation time.
func (r *KnowledgeBaseRepository) List(ctx context.Context) ([]domain.KnowledgeBase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM knowledge_bases ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge bases: %w", err)
	}
	defer rows.Close()

	kbs := make([]domain.KnowledgeBase, 0)
	for rows.Next() {
		var kb domain.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.Name, &kb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
		}
		kbs = append(kbs, kb)
	}
	return kbs, rows.Err()
}

// Rename updates the name. Renaming to an existing name surfaces as
// domain.ErrDuplicateName; a missing id as domain.ErrKnowledgeBaseNotFound.
func (r *KnowledgeBaseRepository) Rename(ctx context.Context, id, name string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_bases SET name = $2 WHERE id = $1`,
		id, name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName.WithDetail("%q", name)
		}
		return fmt.Errorf("failed to rename knowledge base: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}

// Delete removes a knowledge base. Foreign keys cascade documents,
// chunks, test cases, and scripts.
func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_bases WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}

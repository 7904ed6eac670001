package repository

import (
	"context"
	"fmt"

	"github.com/insightqa/insightqa/internal/domain"
)

// DocumentRepository persists documents in Postgres.
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, kb_id, filename, media_type, doc_role, content, uploaded_at, archive_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.KBID, doc.Filename, doc.MediaType, string(doc.Role), doc.Text, doc.UploadedAt, doc.ArchiveKey,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID fetches a document including its extracted text.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var role string
	err := r.db.QueryRow(ctx,
		`SELECT id, kb_id, filename, media_type, doc_role, content, uploaded_at, archive_key
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.KBID, &doc.Filename, &doc.MediaType, &role, &doc.Text, &doc.UploadedAt, &doc.ArchiveKey)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc.Role = domain.DocumentRole(role)
	return &doc, nil
}

// ListByKB returns a knowledge base's documents in upload order.
func (r *DocumentRepository) ListByKB(ctx context.Context, kbID string) ([]domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, kb_id, filename, media_type, doc_role, content, uploaded_at, archive_key
		 FROM documents WHERE kb_id = $1 ORDER BY uploaded_at ASC, id ASC`,
		kbID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var doc domain.Document
		var role string
		if err := rows.Scan(&doc.ID, &doc.KBID, &doc.Filename, &doc.MediaType, &role, &doc.Text, &doc.UploadedAt, &doc.ArchiveKey); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Role = domain.DocumentRole(role)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListByKBAndRole returns a knowledge base's documents with the given
// role, in upload order.
func (r *DocumentRepository) ListByKBAndRole(ctx context.Context, kbID string, role domain.DocumentRole) ([]domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, kb_id, filename, media_type, doc_role, content, uploaded_at, archive_key
		 FROM documents WHERE kb_id = $1 AND doc_role = $2 ORDER BY uploaded_at ASC, id ASC`,
		kbID, string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents by role: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var doc domain.Document
		var r string
		if err := rows.Scan(&doc.ID, &doc.KBID, &doc.Filename, &doc.MediaType, &r, &doc.Text, &doc.UploadedAt, &doc.ArchiveKey); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Role = domain.DocumentRole(r)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a single document.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

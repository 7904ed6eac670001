package domain

import (
	"fmt"
	"time"
)

// DocumentRole marks how a document is used within its knowledge base.
type DocumentRole string

const (
	// DocumentRolePrimary is the authoritative UI/API source used for
	// locator inference. At most one per knowledge base at script
	// generation time.
	DocumentRolePrimary DocumentRole = "primary"
	// DocumentRoleSupporting documents contribute retrieval context only.
	DocumentRoleSupporting DocumentRole = "supporting"
)

// Document represents an uploaded file within a knowledge base. Text is
// the raw extracted content and is immutable once stored.
type Document struct {
	ID         string
	KBID       string
	Filename   string
	MediaType  string
	Role       DocumentRole
	Text       string
	UploadedAt time.Time
	// ArchiveKey is the object-storage key of the original upload, empty
	// when archiving is disabled.
	ArchiveKey string
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.KBID == "" {
		return fmt.Errorf("document KBID is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}
	if !IsValidDocumentRole(d.Role) {
		return ErrInvalidRole.WithDetail("%q", d.Role)
	}
	return nil
}

// IsValidDocumentRole checks if a DocumentRole is valid
func IsValidDocumentRole(r DocumentRole) bool {
	switch r {
	case DocumentRolePrimary, DocumentRoleSupporting:
		return true
	}
	return false
}

package domain

import (
	"strings"
	"time"
)

// KnowledgeBase is a named, isolated collection of uploaded documents
// and their derived chunks.
type KnowledgeBase struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	DocumentIDs []string
}

// NewKnowledgeBase creates a new KnowledgeBase instance
func NewKnowledgeBase(id, name string, createdAt time.Time) *KnowledgeBase {
	return &KnowledgeBase{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateKnowledgeBaseName checks the name rules shared by create and
// rename: non-empty after trimming.
func ValidateKnowledgeBaseName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingName
	}
	return nil
}

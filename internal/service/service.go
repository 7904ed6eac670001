// Package service implements the business logic of the pipeline:
// knowledge base management, document ingestion, retrieval, test case
// generation, and script generation.
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/vectorstore"
)

// KnowledgeBaseRepositoryInterface defines the repository interface for knowledge base persistence
type KnowledgeBaseRepositoryInterface interface {
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	List(ctx context.Context) ([]domain.KnowledgeBase, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByKB(ctx context.Context, kbID string) ([]domain.Document, error)
	ListByKBAndRole(ctx context.Context, kbID string, role domain.DocumentRole) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	CreateBatch(ctx context.Context, chunks []domain.Chunk) error
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// TestCaseRepositoryInterface defines the repository interface for test case persistence
type TestCaseRepositoryInterface interface {
	CreateBatch(ctx context.Context, cases []domain.TestCase) error
	GetByID(ctx context.Context, id string) (*domain.TestCase, error)
	ListByKB(ctx context.Context, kbID string) ([]domain.TestCase, error)
}

// ScriptRepositoryInterface defines the repository interface for script persistence
type ScriptRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Script) error
	GetByID(ctx context.Context, id string) (*domain.Script, error)
	ListByTestCase(ctx context.Context, testCaseID string) ([]domain.Script, error)
}

// VectorStoreInterface defines the vector persistence interface
type VectorStoreInterface interface {
	Upsert(ctx context.Context, kbID, chunkID string, vector []float32, meta vectorstore.Metadata) error
	Query(ctx context.Context, kbID string, vector []float32, k int) ([]vectorstore.Result, error)
	Delete(ctx context.Context, kbID, chunkID string) error
	DeleteAll(ctx context.Context, kbID string) error
	Count(ctx context.Context, kbID string) (int, error)
}

// Embedder produces a fixed-dimension embedding for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer sends a prompt to the language model and returns raw text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ExtractorInterface converts file bytes of a declared media type into text.
type ExtractorInterface interface {
	Extract(data []byte, mediaType string) (string, error)
}

// Archiver stores raw uploads in object storage. Optional; a nil
// Archiver disables archiving.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// kbLocks serializes mutating operations per knowledge base so deletes
// never interleave with in-flight ingestion on the same base.
type kbLocks struct {
	locks sync.Map // kbID -> *sync.Mutex
}

func (l *kbLocks) lock(kbID string) func() {
	v, _ := l.locks.LoadOrStore(kbID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

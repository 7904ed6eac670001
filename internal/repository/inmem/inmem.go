// Package inmem provides in-memory repository implementations with the
// same semantics as the Postgres ones, including cascade deletes. They
// back unit tests and the single-process local mode.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/insightqa/insightqa/internal/domain"
)

// Store holds every entity behind one mutex, mirroring the foreign-key
// cascades of the Postgres schema.
type Store struct {
	mu        sync.RWMutex
	kbs       map[string]domain.KnowledgeBase
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
	testCases map[string]domain.TestCase
	scripts   map[string]domain.Script
	order     map[string]int // global insertion order for stable listings
	nextOrder int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		kbs:       make(map[string]domain.KnowledgeBase),
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
		testCases: make(map[string]domain.TestCase),
		scripts:   make(map[string]domain.Script),
		order:     make(map[string]int),
	}
}

func (s *Store) track(id string) {
	s.nextOrder++
	s.order[id] = s.nextOrder
}

// KnowledgeBases returns the knowledge base repository view of the store.
func (s *Store) KnowledgeBases() *KnowledgeBaseRepository { return &KnowledgeBaseRepository{s} }

// Documents returns the document repository view of the store.
func (s *Store) Documents() *DocumentRepository { return &DocumentRepository{s} }

// Chunks returns the chunk repository view of the store.
func (s *Store) Chunks() *ChunkRepository { return &ChunkRepository{s} }

// TestCases returns the test case repository view of the store.
func (s *Store) TestCases() *TestCaseRepository { return &TestCaseRepository{s} }

// Scripts returns the script repository view of the store.
func (s *Store) Scripts() *ScriptRepository { return &ScriptRepository{s} }

// KnowledgeBaseRepository implements knowledge base persistence in memory.
type KnowledgeBaseRepository struct{ s *Store }

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.kbs {
		if existing.Name == kb.Name {
			return domain.ErrDuplicateName.WithDetail("%q", kb.Name)
		}
	}
	r.s.kbs[kb.ID] = *kb
	r.s.track(kb.ID)
	return nil
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	kb, ok := r.s.kbs[id]
	if !ok {
		return nil, domain.ErrKnowledgeBaseNotFound
	}
	kb.DocumentIDs = nil
	for _, doc := range r.s.sortedDocuments(id) {
		kb.DocumentIDs = append(kb.DocumentIDs, doc.ID)
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) List(ctx context.Context) ([]domain.KnowledgeBase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	kbs := make([]domain.KnowledgeBase, 0, len(r.s.kbs))
	for _, kb := range r.s.kbs {
		kbs = append(kbs, kb)
	}
	sort.Slice(kbs, func(i, j int) bool { return r.s.order[kbs[i].ID] < r.s.order[kbs[j].ID] })
	return kbs, nil
}

func (r *KnowledgeBaseRepository) Rename(ctx context.Context, id, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kb, ok := r.s.kbs[id]
	if !ok {
		return domain.ErrKnowledgeBaseNotFound
	}
	for otherID, other := range r.s.kbs {
		if otherID != id && other.Name == name {
			return domain.ErrDuplicateName.WithDetail("%q", name)
		}
	}
	kb.Name = name
	r.s.kbs[id] = kb
	return nil
}

func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.kbs[id]; !ok {
		return domain.ErrKnowledgeBaseNotFound
	}
	delete(r.s.kbs, id)
	for docID, doc := range r.s.documents {
		if doc.KBID == id {
			delete(r.s.documents, docID)
		}
	}
	for chunkID, chunk := range r.s.chunks {
		if chunk.KBID == id {
			delete(r.s.chunks, chunkID)
		}
	}
	for tcID, tc := range r.s.testCases {
		if tc.KBID != id {
			continue
		}
		delete(r.s.testCases, tcID)
		for scriptID, script := range r.s.scripts {
			if script.TestCaseID == tcID {
				delete(r.s.scripts, scriptID)
			}
		}
	}
	return nil
}

func (s *Store) sortedDocuments(kbID string) []domain.Document {
	docs := make([]domain.Document, 0)
	for _, doc := range s.documents {
		if doc.KBID == kbID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return s.order[docs[i].ID] < s.order[docs[j].ID] })
	return docs
}

// DocumentRepository implements document persistence in memory.
type DocumentRepository struct{ s *Store }

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.documents[doc.ID] = *doc
	r.s.track(doc.ID)
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	doc, ok := r.s.documents[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByKB(ctx context.Context, kbID string) ([]domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedDocuments(kbID), nil
}

func (r *DocumentRepository) ListByKBAndRole(ctx context.Context, kbID string, role domain.DocumentRole) ([]domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := make([]domain.Document, 0)
	for _, doc := range r.s.sortedDocuments(kbID) {
		if doc.Role == role {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.documents[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(r.s.documents, id)
	for chunkID, chunk := range r.s.chunks {
		if chunk.DocumentID == id {
			delete(r.s.chunks, chunkID)
		}
	}
	return nil
}

// ChunkRepository implements chunk persistence in memory.
type ChunkRepository struct{ s *Store }

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []domain.Chunk) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range chunks {
		r.s.chunks[c.ID] = c
		r.s.track(c.ID)
	}
	return nil
}

func (r *ChunkRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]domain.Chunk, len(ids))
	for _, id := range ids {
		if c, ok := r.s.chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	chunks := make([]domain.Chunk, 0)
	for _, c := range r.s.chunks {
		if c.DocumentID == documentID {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for chunkID, chunk := range r.s.chunks {
		if chunk.DocumentID == documentID {
			delete(r.s.chunks, chunkID)
		}
	}
	return nil
}

// TestCaseRepository implements test case persistence in memory.
type TestCaseRepository struct{ s *Store }

func (r *TestCaseRepository) CreateBatch(ctx context.Context, cases []domain.TestCase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tc := range cases {
		r.s.testCases[tc.ID] = tc
		r.s.track(tc.ID)
	}
	return nil
}

func (r *TestCaseRepository) GetByID(ctx context.Context, id string) (*domain.TestCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tc, ok := r.s.testCases[id]
	if !ok {
		return nil, domain.ErrTestCaseNotFound
	}
	return &tc, nil
}

func (r *TestCaseRepository) ListByKB(ctx context.Context, kbID string) ([]domain.TestCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cases := make([]domain.TestCase, 0)
	for _, tc := range r.s.testCases {
		if tc.KBID == kbID {
			cases = append(cases, tc)
		}
	}
	sort.Slice(cases, func(i, j int) bool { return r.s.order[cases[i].ID] < r.s.order[cases[j].ID] })
	return cases, nil
}

// ScriptRepository implements script persistence in memory.
type ScriptRepository struct{ s *Store }

func (r *ScriptRepository) Create(ctx context.Context, script *domain.Script) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.scripts[script.ID] = *script
	r.s.track(script.ID)
	return nil
}

func (r *ScriptRepository) GetByID(ctx context.Context, id string) (*domain.Script, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	script, ok := r.s.scripts[id]
	if !ok {
		return nil, domain.ErrScriptNotFound
	}
	return &script, nil
}

func (r *ScriptRepository) ListByTestCase(ctx context.Context, testCaseID string) ([]domain.Script, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	scripts := make([]domain.Script, 0)
	for _, script := range r.s.scripts {
		if script.TestCaseID == testCaseID {
			scripts = append(scripts, script)
		}
	}
	sort.Slice(scripts, func(i, j int) bool { return r.s.order[scripts[i].ID] < r.s.order[scripts[j].ID] })
	return scripts, nil
}

package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	chunkID string
	vector  []float32
	meta    Metadata
	seq     int64
}

// MemoryStore is a brute-force cosine-similarity store. It backs tests
// and single-node deployments that do not want Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	byKB    map[string][]memoryEntry
	nextSeq int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKB: make(map[string][]memoryEntry)}
}

// Upsert inserts or replaces a vector. Replacing keeps the original
// insertion position so tie-breaking stays stable.
func (s *MemoryStore) Upsert(ctx context.Context, kbID, chunkID string, vector []float32, meta Metadata) error {
	vec := make([]float32, len(vector))
	copy(vec, vector)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.byKB[kbID]
	for i := range entries {
		if entries[i].chunkID == chunkID {
			entries[i].vector = vec
			entries[i].meta = meta
			return nil
		}
	}
	s.nextSeq++
	s.byKB[kbID] = append(entries, memoryEntry{
		chunkID: chunkID,
		vector:  vec,
		meta:    meta,
		seq:     s.nextSeq,
	})
	return nil
}

// Query returns up to k hits ordered by descending cosine similarity,
// ties resolving to the earlier-inserted chunk.
func (s *MemoryStore) Query(ctx context.Context, kbID string, vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byKB[kbID]
	if len(entries) == 0 {
		return []Result{}, nil
	}

	type scored struct {
		Result
		seq int64
	}
	hits := make([]scored, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, scored{
			Result: Result{ChunkID: e.chunkID, Score: cosineScore(e.vector, vector)},
			seq:    e.seq,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].seq < hits[j].seq
	})

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]Result, k)
	for i := 0; i < k; i++ {
		out[i] = hits[i].Result
	}
	return out, nil
}

// Delete removes one vector. Unknown ids are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, kbID, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.byKB[kbID]
	for i := range entries {
		if entries[i].chunkID == chunkID {
			s.byKB[kbID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// DeleteAll removes every vector for a knowledge base.
func (s *MemoryStore) DeleteAll(ctx context.Context, kbID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKB, kbID)
	return nil
}

// Count returns the number of stored vectors for a knowledge base.
func (s *MemoryStore) Count(ctx context.Context, kbID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKB[kbID]), nil
}

// cosineScore maps cosine similarity from [-1,1] into [0,1] so scores
// stay in a bounded range regardless of vector orientation.
func cosineScore(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32((1 + cos) / 2)
}

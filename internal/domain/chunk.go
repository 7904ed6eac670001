package domain

// Chunk is a bounded text segment derived from a document, the unit of
// embedding and retrieval. The embedding is produced once and never
// mutated; re-embedding on content change creates a new Chunk.
type Chunk struct {
	ID         string
	DocumentID string
	KBID       string
	Index      int
	Text       string
	Embedding  []float32
}

// RetrievedChunk pairs a chunk with its similarity score for one query.
type RetrievedChunk struct {
	Chunk Chunk
	Score float32
}

package service

import (
	"context"
	"strings"

	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved when the caller does
// not specify one.
const DefaultTopK = 5

// RetrievalService answers similarity queries against one knowledge base.
type RetrievalService struct {
	kbRepo    KnowledgeBaseRepositoryInterface
	chunkRepo ChunkRepositoryInterface
	vectors   VectorStoreInterface
	embedder  Embedder
}

// NewRetrievalService creates a new RetrievalService instance.
func NewRetrievalService(
	kbRepo KnowledgeBaseRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	vectors VectorStoreInterface,
	embedder Embedder,
) *RetrievalService {
	return &RetrievalService{
		kbRepo:    kbRepo,
		chunkRepo: chunkRepo,
		vectors:   vectors,
		embedder:  embedder,
	}
}

// RetrieveInput represents the input for a retrieval query
type RetrieveInput struct {
	KBID  string
	Query string
	TopK  int
}

// Retrieve embeds the query and returns the most similar chunks in
// descending score order. Querying an empty knowledge base fails with
// domain.ErrEmptyKnowledgeBase rather than returning nothing.
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrieveInput) ([]domain.RetrievedChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		KBID:      input.KBID,
		Operation: "retrieve",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrInvalidParameters.WithDetail("query must not be empty")
	}
	k := input.TopK
	if k == 0 {
		k = DefaultTopK
	}
	if k < 0 {
		return nil, domain.ErrInvalidParameters.WithDetail("top_k must be positive, got %d", k)
	}

	if _, err := s.kbRepo.GetByID(ctx, input.KBID); err != nil {
		return nil, err
	}
	count, err := s.vectors.Count(ctx, input.KBID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrEmptyKnowledgeBase
	}

	queryVec, err := s.embedder.Embed(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Query(ctx, input.KBID, queryVec, k)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ChunkID
	}
	byID, err := s.chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	retrieved := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := byID[hit.ChunkID]
		if !ok {
			// Vector without chunk text: a delete raced the query.
			continue
		}
		retrieved = append(retrieved, domain.RetrievedChunk{Chunk: chunk, Score: hit.Score})
	}
	return retrieved, nil
}

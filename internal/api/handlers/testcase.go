package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/insightqa/insightqa/internal/api"
	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/service"
)

// TestCaseService is the slice of the service layer the test case
// handlers consume.
type TestCaseService interface {
	Generate(ctx context.Context, input service.GenerateInput) ([]domain.TestCase, error)
	GetByID(ctx context.Context, id string) (*domain.TestCase, error)
	ListByKB(ctx context.Context, kbID string) ([]domain.TestCase, error)
	ResolveContext(ctx context.Context, tc *domain.TestCase) ([]service.ContextChunk, error)
}

// RetrievalQueryService exposes raw similarity search.
type RetrievalQueryService interface {
	Retrieve(ctx context.Context, input service.RetrieveInput) ([]domain.RetrievedChunk, error)
}

type TestCaseHandler struct {
	svc       TestCaseService
	retrieval RetrievalQueryService
}

func NewTestCaseHandler(svc TestCaseService, retrieval RetrievalQueryService) *TestCaseHandler {
	return &TestCaseHandler{svc: svc, retrieval: retrieval}
}

type GenerateTestCasesRequest struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
	TopK    int    `json:"top_k"`
}

type ContextRefResponse struct {
	ChunkID string  `json:"chunk_id"`
	Score   float32 `json:"score"`
}

type TestCaseResponse struct {
	ID            string               `json:"id"`
	KBID          string               `json:"kb_id"`
	GeneratedAt   string               `json:"generated_at"`
	Scenario      string               `json:"scenario"`
	Preconditions []string             `json:"preconditions"`
	Steps         []string             `json:"steps"`
	Expected      string               `json:"expected"`
	Refs          []ContextRefResponse `json:"refs"`
}

type ContextChunkResponse struct {
	ChunkID   string  `json:"chunk_id"`
	Score     float32 `json:"score"`
	Text      string  `json:"text,omitempty"`
	Available bool    `json:"available"`
}

type TestCaseWithContextResponse struct {
	TestCaseResponse
	Context []ContextChunkResponse `json:"context"`
}

type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type RetrievedChunkResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

func testCaseToResponse(tc *domain.TestCase) TestCaseResponse {
	refs := make([]ContextRefResponse, len(tc.Refs))
	for i, ref := range tc.Refs {
		refs[i] = ContextRefResponse{ChunkID: ref.ChunkID, Score: ref.Score}
	}
	return TestCaseResponse{
		ID:            tc.ID,
		KBID:          tc.KBID,
		GeneratedAt:   tc.GeneratedAt.UTC().Format(time.RFC3339),
		Scenario:      tc.Scenario,
		Preconditions: tc.Preconditions,
		Steps:         tc.Steps,
		Expected:      tc.Expected,
		Refs:          refs,
	}
}

// Generate creates test cases for a feature description.
func (h *TestCaseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateTestCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Feature == "" {
		api.Error(w, http.StatusBadRequest, "feature is required")
		return
	}

	cases, err := h.svc.Generate(r.Context(), service.GenerateInput{
		KBID:    chi.URLParam(r, "kbID"),
		Feature: req.Feature,
		Count:   req.Count,
		TopK:    req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]TestCaseResponse, len(cases))
	for i := range cases {
		out[i] = testCaseToResponse(&cases[i])
	}
	api.Success(w, http.StatusCreated, out)
}

// Get returns a test case with its context resolved. References to
// deleted chunks are reported as unavailable rather than failing.
func (h *TestCaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "tcID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	resolved, err := h.svc.ResolveContext(r.Context(), tc)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := TestCaseWithContextResponse{TestCaseResponse: testCaseToResponse(tc)}
	resp.Context = make([]ContextChunkResponse, len(resolved))
	for i, cc := range resolved {
		resp.Context[i] = ContextChunkResponse{
			ChunkID:   cc.Ref.ChunkID,
			Score:     cc.Ref.Score,
			Text:      cc.Text,
			Available: cc.Available,
		}
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *TestCaseHandler) ListByKB(w http.ResponseWriter, r *http.Request) {
	cases, err := h.svc.ListByKB(r.Context(), chi.URLParam(r, "kbID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	out := make([]TestCaseResponse, len(cases))
	for i := range cases {
		out[i] = testCaseToResponse(&cases[i])
	}
	api.Success(w, http.StatusOK, out)
}

// Query runs raw similarity search against a knowledge base.
func (h *TestCaseHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	retrieved, err := h.retrieval.Retrieve(r.Context(), service.RetrieveInput{
		KBID:  chi.URLParam(r, "kbID"),
		Query: req.Query,
		TopK:  req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]RetrievedChunkResponse, len(retrieved))
	for i, rc := range retrieved {
		out[i] = RetrievedChunkResponse{
			ChunkID:    rc.Chunk.ID,
			DocumentID: rc.Chunk.DocumentID,
			Index:      rc.Chunk.Index,
			Text:       rc.Chunk.Text,
			Score:      rc.Score,
		}
	}
	api.Success(w, http.StatusOK, out)
}

// Package handlers implements the HTTP handlers of the service.
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

// KnowledgeBaseService is the slice of the service layer the knowledge
// base handlers consume.
type KnowledgeBaseService interface {
	Create(ctx context.Context, input service.CreateInput) (*domain.KnowledgeBase, error)
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	List(ctx context.Context) ([]domain.KnowledgeBase, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type KnowledgeBaseHandler struct {
	svc KnowledgeBaseService
}

func NewKnowledgeBaseHandler(svc KnowledgeBaseService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{svc: svc}
}

type CreateKnowledgeBaseRequest struct {
	Name string `json:"name"`
}

type RenameKnowledgeBaseRequest struct {
	Name string `json:"name"`
}

type KnowledgeBaseResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CreatedAt   string   `json:"created_at"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

func knowledgeBaseToResponse(kb *domain.KnowledgeBase) *KnowledgeBaseResponse {
	return &KnowledgeBaseResponse{
		ID:          kb.ID,
		Name:        kb.Name,
		CreatedAt:   kb.CreatedAt.UTC().Format(time.RFC3339),
		DocumentIDs: kb.DocumentIDs,
	}
}

func (h *KnowledgeBaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateKnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	kb, err := h.svc.Create(r.Context(), service.CreateInput{Name: req.Name})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, knowledgeBaseToResponse(kb))
}

func (h *KnowledgeBaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	kb, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "kbID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, knowledgeBaseToResponse(kb))
}

func (h *KnowledgeBaseHandler) List(w http.ResponseWriter, r *http.Request) {
	kbs, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	out := make([]*KnowledgeBaseResponse, len(kbs))
	for i := range kbs {
		out[i] = knowledgeBaseToResponse(&kbs[i])
	}
	api.Success(w, http.StatusOK, out)
}

func (h *KnowledgeBaseHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameKnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	id := chi.URLParam(r, "kbID")
	if err := h.svc.Rename(r.Context(), id, req.Name); err != nil {
		api.HandleError(w, err)
		return
	}
	kb, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, knowledgeBaseToResponse(kb))
}

func (h *KnowledgeBaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "kbID")); err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/insightqa/insightqa/internal/api"
	"github.com/insightqa/insightqa/internal/domain"
)

// ScriptService is the slice of the service layer the script handlers
// consume.
type ScriptService interface {
	Generate(ctx context.Context, testCaseID string) (*domain.Script, error)
	GetByID(ctx context.Context, id string) (*domain.Script, error)
	ListByTestCase(ctx context.Context, testCaseID string) ([]domain.Script, error)
}

type ScriptHandler struct {
	svc ScriptService
}

func NewScriptHandler(svc ScriptService) *ScriptHandler {
	return &ScriptHandler{svc: svc}
}

type InstructionResponse struct {
	Strategy string `json:"strategy"`
	Locator  string `json:"locator"`
	Action   string `json:"action"`
	Value    string `json:"value,omitempty"`
}

type ScriptResponse struct {
	ID           string                `json:"id"`
	TestCaseID   string                `json:"test_case_id"`
	DocumentID   string                `json:"document_id"`
	Instructions []InstructionResponse `json:"instructions"`
	GeneratedAt  string                `json:"generated_at"`
}

func scriptToResponse(s *domain.Script) *ScriptResponse {
	instructions := make([]InstructionResponse, len(s.Instructions))
	for i, ins := range s.Instructions {
		instructions[i] = InstructionResponse{
			Strategy: string(ins.Strategy),
			Locator:  ins.Locator,
			Action:   string(ins.Action),
			Value:    ins.Value,
		}
	}
	return &ScriptResponse{
		ID:           s.ID,
		TestCaseID:   s.TestCaseID,
		DocumentID:   s.DocumentID,
		Instructions: instructions,
		GeneratedAt:  s.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

// Generate creates a script for a stored test case.
func (h *ScriptHandler) Generate(w http.ResponseWriter, r *http.Request) {
	script, err := h.svc.Generate(r.Context(), chi.URLParam(r, "tcID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, scriptToResponse(script))
}

func (h *ScriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	script, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "scriptID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, scriptToResponse(script))
}

func (h *ScriptHandler) ListByTestCase(w http.ResponseWriter, r *http.Request) {
	scripts, err := h.svc.ListByTestCase(r.Context(), chi.URLParam(r, "tcID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	out := make([]*ScriptResponse, len(scripts))
	for i := range scripts {
		out[i] = scriptToResponse(&scripts[i])
	}
	api.Success(w, http.StatusOK, out)
}

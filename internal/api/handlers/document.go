package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/insightqa/insightqa/internal/api"
	"github.com/insightqa/insightqa/internal/domain"
	"github.com/insightqa/insightqa/internal/service"
)

// maxUploadMemory bounds the multipart parser's in-memory buffer; the
// request body itself is capped by the MaxBodyBytes middleware.
const maxUploadMemory = 8 << 20

// DocumentService is the slice of the service layer the document
// handlers consume.
type DocumentService interface {
	IngestDocument(ctx context.Context, input service.IngestDocumentInput) (*domain.Document, error)
	GetDocument(ctx context.Context, kbID, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, kbID string) ([]domain.Document, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID         string `json:"id"`
	KBID       string `json:"kb_id"`
	Filename   string `json:"filename"`
	MediaType  string `json:"media_type"`
	Role       string `json:"role"`
	UploadedAt string `json:"uploaded_at"`
}

func documentToResponse(doc *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         doc.ID,
		KBID:       doc.KBID,
		Filename:   doc.Filename,
		MediaType:  doc.MediaType,
		Role:       string(doc.Role),
		UploadedAt: doc.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// Upload ingests a multipart upload: field "file" carries the document,
// field "role" its role (defaults to supporting).
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	role := domain.DocumentRole(r.FormValue("role"))
	if role == "" {
		role = domain.DocumentRoleSupporting
	}

	doc, err := h.svc.IngestDocument(r.Context(), service.IngestDocumentInput{
		KBID:        chi.URLParam(r, "kbID"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Role:        role,
		Data:        data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetDocument(r.Context(), chi.URLParam(r, "kbID"), chi.URLParam(r, "docID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context(), chi.URLParam(r, "kbID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	out := make([]*DocumentResponse, len(docs))
	for i := range docs {
		out[i] = documentToResponse(&docs[i])
	}
	api.Success(w, http.StatusOK, out)
}

// Package server wires the HTTP routes and middleware stack.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/insightqa/insightqa/internal/api"
	"github.com/insightqa/insightqa/internal/api/handlers"
	"github.com/insightqa/insightqa/internal/api/middleware"
)

type RouterConfig struct {
	KnowledgeBaseHandler *handlers.KnowledgeBaseHandler
	DocumentHandler      *handlers.DocumentHandler
	TestCaseHandler      *handlers.TestCaseHandler
	ScriptHandler        *handlers.ScriptHandler
	MaxBodyBytes         int64
}

// DefaultMaxBodyBytes bounds uploads; PDF documents dominate, so the
// limit is generous.
const DefaultMaxBodyBytes int64 = 32 * 1024 * 1024

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/kb", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeBaseHandler.Create)
		r.Get("/", cfg.KnowledgeBaseHandler.List)
		r.Get("/{kbID}", cfg.KnowledgeBaseHandler.Get)
		r.Put("/{kbID}", cfg.KnowledgeBaseHandler.Rename)
		r.Delete("/{kbID}", cfg.KnowledgeBaseHandler.Delete)

		r.Post("/{kbID}/documents", cfg.DocumentHandler.Upload)
		r.Get("/{kbID}/documents", cfg.DocumentHandler.List)
		r.Get("/{kbID}/documents/{docID}", cfg.DocumentHandler.Get)

		r.Post("/{kbID}/query", cfg.TestCaseHandler.Query)
		r.Post("/{kbID}/testcases", cfg.TestCaseHandler.Generate)
		r.Get("/{kbID}/testcases", cfg.TestCaseHandler.ListByKB)
	})

	r.Route("/testcases", func(r chi.Router) {
		r.Get("/{tcID}", cfg.TestCaseHandler.Get)
		r.Post("/{tcID}/script", cfg.ScriptHandler.Generate)
		r.Get("/{tcID}/scripts", cfg.ScriptHandler.ListByTestCase)
	})

	r.Get("/scripts/{scriptID}", cfg.ScriptHandler.Get)

	return r
}

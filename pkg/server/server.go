// Package server exposes the note service over HTTP. Handlers stay thin:
// decode, delegate to a use case, encode. Error detail is logged
// server-side and never leaks into a 500 body.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/usecase/note"
	"github.com/m-mizutani/notelet/pkg/usecase/qa"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
)

// TagResolver resolves a raw tag string to its canonical form
type TagResolver interface {
	Resolve(ctx context.Context, tag string) (string, bool, error)
}

type Server struct {
	notes *note.UseCase
	qa    *qa.UseCase
	tags  TagResolver
	mux   *http.ServeMux
}

// New creates an HTTP server over the given use cases.
func New(notes *note.UseCase, qaUC *qa.UseCase, tags TagResolver) *Server {
	s := &Server{
		notes: notes,
		qa:    qaUC,
		tags:  tags,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /notes", s.handleCreateNote)
	s.mux.HandleFunc("GET /notes", s.handleListNotes)
	s.mux.HandleFunc("GET /notes/{id}", s.handleGetNote)
	s.mux.HandleFunc("PUT /notes/{id}", s.handleUpdateNote)
	s.mux.HandleFunc("DELETE /notes/{id}", s.handleDeleteNote)

	s.mux.HandleFunc("POST /search/notes", s.handleSearchNotes)
	s.mux.HandleFunc("POST /search/tags", s.handleSearchByTags)

	s.mux.HandleFunc("GET /tags", s.handleListTags)
	s.mux.HandleFunc("POST /tags/resolve", s.handleResolveTag)

	s.mux.HandleFunc("POST /qa", s.handleAnswer)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Default().Error("failed to encode response", "err", err)
	}
}

// respondError maps domain errors to status codes. Unclassified errors
// become an opaque 500; the detail goes to the log only.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNoteNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Detail: "Note not found"})
	case errors.Is(err, model.ErrEmptyContent):
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "Note content is required"})
	default:
		logging.From(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

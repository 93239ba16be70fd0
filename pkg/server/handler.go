package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/usecase/note"
	"github.com/m-mizutani/notelet/pkg/usecase/qa"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
)

const (
	defaultListLimit   = 10
	maxListLimit       = 100
	defaultTagLimit    = 10
	contentPreviewSize = 100
)

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}

	created, err := s.notes.Process(r.Context(), note.ProcessInput{
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	notes, err := s.notes.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, noteListResponse{Notes: emptyIfNil(notes), Total: len(notes)})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	found, err := s.notes.Get(r.Context(), model.NoteID(r.PathValue("id")))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, found)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}

	updated, err := s.notes.Update(r.Context(), note.UpdateInput{
		NoteID:  model.NoteID(r.PathValue("id")),
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.Context(), model.NoteID(r.PathValue("id"))); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}
	if req.TopK < 1 {
		req.TopK = qa.DefaultTopK
	}

	results := s.notes.Search(r.Context(), req.Query, req.TopK)
	respondJSON(w, http.StatusOK, queryResponse{
		Results:      emptyIfNil(results),
		TotalResults: len(results),
	})
}

func (s *Server) handleSearchByTags(w http.ResponseWriter, r *http.Request) {
	var req tagSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}
	if req.Limit < 1 {
		req.Limit = defaultTagLimit
	}

	notes, err := s.notes.SearchByTags(r.Context(), req.Tags, req.Limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, noteListResponse{Notes: emptyIfNil(notes), Total: len(notes)})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.notes.Tags(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	respondJSON(w, http.StatusOK, tags)
}

func (s *Server) handleResolveTag(w http.ResponseWriter, r *http.Request) {
	var req resolveTagRequest
	if err := decodeJSON(r, &req); err != nil || req.Tag == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "tag is required"})
		return
	}

	canonical, isNew, err := s.tags.Resolve(r.Context(), req.Tag)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resolveTagResponse{
		OriginalTag: req.Tag,
		ResolvedTag: canonical,
		IsNew:       isNew,
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}

	answer, err := s.qa.Answer(r.Context(), req.Query, req.TopK)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.From(r.Context()).Info("answered question", "query", req.Query, "docs", len(answer.Documents))
	respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	noteCount, indexCount, err := s.notes.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	recent, err := s.notes.ListRecent(r.Context(), 5)
	if err != nil {
		respondError(w, r, err)
		return
	}

	previews := make([]notePreview, 0, len(recent))
	for _, n := range recent {
		content := n.Content
		if len(content) > contentPreviewSize {
			content = content[:contentPreviewSize]
		}
		previews = append(previews, notePreview{
			ID:             n.ID,
			ContentPreview: content,
			Tags:           n.Tags,
		})
	}

	respondJSON(w, http.StatusOK, statusResponse{
		Status: "healthy",
		Storage: storageStatus{
			NoteCount:    noteCount,
			NotesPreview: previews,
		},
		Index:     indexStatus{DocCount: indexCount},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func emptyIfNil(notes []*model.Note) []*model.Note {
	if notes == nil {
		return []*model.Note{}
	}
	return notes
}

package server

import "github.com/m-mizutani/notelet/pkg/model"

type createNoteRequest struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type updateNoteRequest struct {
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

type noteListResponse struct {
	Notes []*model.Note `json:"notes"`
	Total int           `json:"total"`
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Results      []*model.Note `json:"results"`
	TotalResults int           `json:"total_results"`
}

type tagSearchRequest struct {
	Tags  []string `json:"tags"`
	Limit int      `json:"limit"`
}

type resolveTagRequest struct {
	Tag string `json:"tag"`
}

type resolveTagResponse struct {
	OriginalTag string `json:"original_tag"`
	ResolvedTag string `json:"resolved_tag"`
	IsNew       bool   `json:"is_new"`
}

type notePreview struct {
	ID             model.NoteID `json:"id"`
	ContentPreview string       `json:"content_preview"`
	Tags           []string     `json:"tags"`
}

type statusResponse struct {
	Status    string        `json:"status"`
	Storage   storageStatus `json:"storage"`
	Index     indexStatus   `json:"document_store"`
	Timestamp string        `json:"timestamp"`
}

type storageStatus struct {
	NoteCount    int           `json:"note_count"`
	NotesPreview []notePreview `json:"notes_preview"`
}

type indexStatus struct {
	DocCount int `json:"doc_count"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

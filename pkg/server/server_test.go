package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/repository"
	"github.com/m-mizutani/notelet/pkg/server"
	"github.com/m-mizutani/notelet/pkg/service/tagdedup"
	"github.com/m-mizutani/notelet/pkg/usecase/note"
	"github.com/m-mizutani/notelet/pkg/usecase/qa"
	"github.com/m-mizutani/notelet/pkg/vector"
	"google.golang.org/genai"
)

// mockEmbedder assigns every distinct text its own dimension, so tags only
// merge when their normalized spellings are identical
type mockEmbedder struct {
	mu   sync.Mutex
	dims map[string]int
}

func (m *mockEmbedder) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims == nil {
		m.dims = map[string]int{}
	}
	dim, ok := m.dims[text]
	if !ok {
		dim = len(m.dims)
		m.dims[text] = dim
	}

	vec := make([]float32, 64)
	vec[dim%64] = 1
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: vec}},
	}, nil
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	embedder := &mockEmbedder{}
	repo := repository.NewMemory()
	dedup, err := tagdedup.New(context.Background(), repo, vector.NewMemoryTagIndex(), embedder)
	gt.NoError(t, err)
	docIndex := vector.NewMemoryDocumentIndex(embedder)

	notes := note.New(repo, dedup, docIndex)
	answers := qa.New(docIndex, nil)
	return server.New(notes, answers, dedup)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func createNote(t *testing.T, srv http.Handler, content string, tags []string) *model.Note {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/notes", map[string]any{
		"content": content,
		"tags":    tags,
	})
	gt.N(t, rec.Code).Equal(http.StatusCreated)
	n := decodeBody[model.Note](t, rec)
	return &n
}

func TestCreateAndGetNote(t *testing.T) {
	srv := newTestServer(t)

	created := createNote(t, srv, "Dentist appointment on Monday at 10:00", []string{"Health!!", "appointment"})
	gt.V(t, created.ID).NotEqual(model.NoteID(""))
	gt.A(t, created.Tags).Length(2).Has("health").Has("appointment")

	rec := doJSON(t, srv, http.MethodGet, "/notes/"+string(created.ID), nil)
	gt.N(t, rec.Code).Equal(http.StatusOK)
	fetched := decodeBody[model.Note](t, rec)
	gt.V(t, fetched.Content).Equal(created.Content)
}

func TestCreateNoteEmptyContent(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/notes", map[string]any{"content": ""})
	gt.N(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestCreateNoteInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.N(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestGetNoteNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/notes/missing", nil)
	gt.N(t, rec.Code).Equal(http.StatusNotFound)
	body := decodeBody[map[string]string](t, rec)
	gt.V(t, body["detail"]).Equal("Note not found")
}

func TestListNotes(t *testing.T) {
	srv := newTestServer(t)

	createNote(t, srv, "first note", nil)
	createNote(t, srv, "second note", nil)
	createNote(t, srv, "third note", nil)

	rec := doJSON(t, srv, http.MethodGet, "/notes?limit=2", nil)
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[struct {
		Notes []*model.Note `json:"notes"`
		Total int           `json:"total"`
	}](t, rec)
	gt.N(t, body.Total).Equal(2)
	gt.A(t, body.Notes).Length(2)
}

func TestListNotesBadLimit(t *testing.T) {
	srv := newTestServer(t)

	for _, limit := range []string{"0", "101", "abc"} {
		rec := doJSON(t, srv, http.MethodGet, "/notes?limit="+limit, nil)
		gt.N(t, rec.Code).Equal(http.StatusBadRequest)
	}
}

func TestUpdateNote(t *testing.T) {
	srv := newTestServer(t)

	created := createNote(t, srv, "original content", []string{"first"})

	rec := doJSON(t, srv, http.MethodPut, "/notes/"+string(created.ID), map[string]any{
		"tags": []string{"second"},
	})
	gt.N(t, rec.Code).Equal(http.StatusOK)
	updated := decodeBody[model.Note](t, rec)
	gt.V(t, updated.Content).Equal("original content")
	gt.A(t, updated.Tags).Length(1).Has("second")

	rec = doJSON(t, srv, http.MethodPut, "/notes/missing", map[string]any{
		"tags": []string{"x"},
	})
	gt.N(t, rec.Code).Equal(http.StatusNotFound)
}

func TestDeleteNote(t *testing.T) {
	srv := newTestServer(t)

	created := createNote(t, srv, "short-lived", nil)

	rec := doJSON(t, srv, http.MethodDelete, "/notes/"+string(created.ID), nil)
	gt.N(t, rec.Code).Equal(http.StatusNoContent)

	rec = doJSON(t, srv, http.MethodGet, "/notes/"+string(created.ID), nil)
	gt.N(t, rec.Code).Equal(http.StatusNotFound)

	rec = doJSON(t, srv, http.MethodDelete, "/notes/"+string(created.ID), nil)
	gt.N(t, rec.Code).Equal(http.StatusNotFound)
}

func TestSearchNotes(t *testing.T) {
	srv := newTestServer(t)

	createNote(t, srv, "pasta recipe for dinner", nil)
	createNote(t, srv, "meeting notes from Tuesday", nil)

	rec := doJSON(t, srv, http.MethodPost, "/search/notes", map[string]any{
		"query": "pasta recipe for dinner",
		"top_k": 1,
	})
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[struct {
		Results      []*model.Note `json:"results"`
		TotalResults int           `json:"total_results"`
	}](t, rec)
	gt.N(t, body.TotalResults).Equal(1)
}

func TestSearchNotesEmptyIndex(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/search/notes", map[string]any{"query": "anything"})
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[struct {
		Results      []*model.Note `json:"results"`
		TotalResults int           `json:"total_results"`
	}](t, rec)
	gt.N(t, body.TotalResults).Equal(0)
	gt.V(t, body.Results).NotNil()
}

func TestSearchByTags(t *testing.T) {
	srv := newTestServer(t)

	createNote(t, srv, "note about cooking", []string{"recipe"})
	createNote(t, srv, "note about health", []string{"medical"})
	createNote(t, srv, "note about both", []string{"recipe", "medical"})

	rec := doJSON(t, srv, http.MethodPost, "/search/tags", map[string]any{
		"tags": []string{"recipe"},
	})
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[struct {
		Notes []*model.Note `json:"notes"`
		Total int           `json:"total"`
	}](t, rec)
	gt.N(t, body.Total).Equal(2)
}

func TestListTags(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/tags", nil)
	gt.N(t, rec.Code).Equal(http.StatusOK)
	gt.A(t, decodeBody[[]string](t, rec)).Length(0)

	createNote(t, srv, "tagged note", []string{"alpha", "beta"})

	rec = doJSON(t, srv, http.MethodGet, "/tags", nil)
	gt.N(t, rec.Code).Equal(http.StatusOK)
	gt.A(t, decodeBody[[]string](t, rec)).Length(2).Has("alpha").Has("beta")
}

func TestResolveTag(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tags/resolve", map[string]any{"tag": "Recipes!!"})
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[struct {
		OriginalTag string `json:"original_tag"`
		ResolvedTag string `json:"resolved_tag"`
		IsNew       bool   `json:"is_new"`
	}](t, rec)
	gt.V(t, body.OriginalTag).Equal("Recipes!!")
	gt.V(t, body.ResolvedTag).Equal("recipes")
	gt.True(t, body.IsNew)

	rec = doJSON(t, srv, http.MethodPost, "/tags/resolve", map[string]any{"tag": "recipes"})
	gt.N(t, rec.Code).Equal(http.StatusOK)
	body = decodeBody[struct {
		OriginalTag string `json:"original_tag"`
		ResolvedTag string `json:"resolved_tag"`
		IsNew       bool   `json:"is_new"`
	}](t, rec)
	gt.V(t, body.ResolvedTag).Equal("recipes")
	gt.False(t, body.IsNew)
}

func TestResolveTagMissingField(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/tags/resolve", map[string]any{})
	gt.N(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestAnswerWithoutCredential(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/qa", map[string]any{"query": "anything"})
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[model.Answer](t, rec)
	gt.S(t, body.Answer).Contains("credential not configured")
	gt.A(t, body.Documents).Length(0)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	gt.N(t, rec.Code).Equal(http.StatusOK)
	body := decodeBody[map[string]string](t, rec)
	gt.V(t, body["status"]).Equal("healthy")
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)

	createNote(t, srv, "status check note", []string{"meta"})

	rec := doJSON(t, srv, http.MethodGet, "/status", nil)
	gt.N(t, rec.Code).Equal(http.StatusOK)

	body := decodeBody[struct {
		Status  string `json:"status"`
		Storage struct {
			NoteCount    int `json:"note_count"`
			NotesPreview []struct {
				ID             string   `json:"id"`
				ContentPreview string   `json:"content_preview"`
				Tags           []string `json:"tags"`
			} `json:"notes_preview"`
		} `json:"storage"`
		Index struct {
			DocCount int `json:"doc_count"`
		} `json:"document_store"`
	}](t, rec)
	gt.V(t, body.Status).Equal("healthy")
	gt.N(t, body.Storage.NoteCount).Equal(1)
	gt.A(t, body.Storage.NotesPreview).Length(1)
	gt.V(t, body.Storage.NotesPreview[0].ContentPreview).Equal("status check note")
	gt.N(t, body.Index.DocCount).Equal(1)
}

package vector_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/vector"
	"google.golang.org/genai"
)

// mockEmbedder is a mock implementation of adapter.Embedder for testing
type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) (*genai.EmbedContentResponse, error)
}

func (m *mockEmbedder) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func embResp(vec []float32) *genai.EmbedContentResponse {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: vec}},
	}
}

// keywordEmbedder maps each keyword to one vector dimension, so texts
// sharing keywords come out similar.
func keywordEmbedder(keywords ...string) *mockEmbedder {
	return &mockEmbedder{
		embedFunc: func(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
			vec := make([]float32, len(keywords)+1)
			vec[len(keywords)] = 0.1
			for i, kw := range keywords {
				if strings.Contains(strings.ToLower(text), kw) {
					vec[i] = 1
				}
			}
			return embResp(vec), nil
		},
	}
}

func TestMemoryTagIndex(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemoryTagIndex()

	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.N(t, count).Equal(0)

	gt.NoError(t, idx.Upsert(ctx, "recipe", []float32{1, 0, 0}))
	gt.NoError(t, idx.Upsert(ctx, "appointment", []float32{0, 1, 0}))
	gt.NoError(t, idx.Upsert(ctx, "health", []float32{0, 0.9, 0.1}))

	count, err = idx.Count(ctx)
	gt.NoError(t, err)
	gt.N(t, count).Equal(3)

	exists, err := idx.Exists(ctx, "recipe")
	gt.NoError(t, err)
	gt.True(t, exists)

	exists, err = idx.Exists(ctx, "unknown")
	gt.NoError(t, err)
	gt.False(t, exists)

	neighbors, err := idx.Nearest(ctx, []float32{0, 1, 0}, 2)
	gt.NoError(t, err)
	gt.A(t, neighbors).Length(2)
	gt.V(t, neighbors[0].Key).Equal("appointment")
	gt.N(t, neighbors[0].Score).Greater(0.99)
	gt.V(t, neighbors[1].Key).Equal("health")
	gt.N(t, neighbors[1].Score).Greater(0.9).Less(1)
}

func TestMemoryTagIndexRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemoryTagIndex()

	gt.Error(t, idx.Upsert(ctx, "", []float32{1}))
	gt.Error(t, idx.Upsert(ctx, "tag", nil))
}

func indexedNote(content string, tags ...string) *model.Note {
	now := time.Now()
	return &model.Note{
		ID:        model.NewNoteID(),
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryDocumentIndexSearch(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemoryDocumentIndex(keywordEmbedder("pasta", "dentist", "market"))

	pasta := indexedNote("Recipe for Sunday's pasta dinner", "recipe")
	dentist := indexedNote("Dentist appointment on Monday at 10:00", "appointment")
	market := indexedNote("Visit the farmers market on Saturday", "weekend")

	for _, n := range []*model.Note{pasta, dentist, market} {
		gt.NoError(t, idx.Index(ctx, n))
	}

	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.N(t, count).Equal(3)

	notes, err := idx.Search(ctx, "how do I cook pasta?", 2)
	gt.NoError(t, err)
	gt.A(t, notes).Length(2)
	gt.V(t, notes[0].ID).Equal(pasta.ID)
	gt.A(t, notes[0].Tags).Has("recipe")
}

func TestMemoryDocumentIndexSearchEmpty(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemoryDocumentIndex(&mockEmbedder{})

	// no embedder call on an empty index
	notes, err := idx.Search(ctx, "anything", 5)
	gt.NoError(t, err)
	gt.A(t, notes).Length(0)
}

func TestMemoryDocumentIndexDelete(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemoryDocumentIndex(keywordEmbedder("pasta"))

	note := indexedNote("pasta for dinner", "recipe")
	gt.NoError(t, idx.Index(ctx, note))
	gt.NoError(t, idx.Delete(ctx, note.ID))

	notes, err := idx.Search(ctx, "pasta", 5)
	gt.NoError(t, err)
	gt.A(t, notes).Length(0)

	// deleting an absent ID is a no-op
	gt.NoError(t, idx.Delete(ctx, model.NoteID("missing")))
}

func TestMemoryDocumentIndexReindex(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemoryDocumentIndex(keywordEmbedder("pasta", "salad"))

	note := indexedNote("pasta for dinner", "recipe")
	gt.NoError(t, idx.Index(ctx, note))

	updated := *note
	updated.Content = "salad for dinner"
	gt.NoError(t, idx.Delete(ctx, note.ID))
	gt.NoError(t, idx.Index(ctx, &updated))

	count, err := idx.Count(ctx)
	gt.NoError(t, err)
	gt.N(t, count).Equal(1)

	notes, err := idx.Search(ctx, "salad", 1)
	gt.NoError(t, err)
	gt.A(t, notes).Length(1)
	gt.V(t, notes[0].Content).Equal("salad for dinner")
}

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched length", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := vector.CosineSimilarity(tc.a, tc.b)
			gt.N(t, got).Greater(tc.want - 0.0001).Less(tc.want + 0.0001)
		})
	}
}

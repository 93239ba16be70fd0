// Package vector provides the tag and note-content vector indexes used for
// semantic tag deduplication and note retrieval.
package vector

import (
	"context"
	"math"

	"github.com/m-mizutani/notelet/pkg/model"
)

// Neighbor is a nearest-neighbor hit with a cosine similarity score in
// [0, 1] for non-degenerate vectors.
type Neighbor struct {
	Key   string
	Score float64
}

// TagIndex stores tag embeddings keyed by the canonical tag value.
type TagIndex interface {
	Upsert(ctx context.Context, key string, vec []float32) error
	Nearest(ctx context.Context, vec []float32, limit int) ([]Neighbor, error)
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// DocumentIndex indexes note content for semantic retrieval. Implementations
// embed the note text themselves; callers never handle content vectors.
type DocumentIndex interface {
	Index(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id model.NoteID) error
	Search(ctx context.Context, query string, limit int) ([]*model.Note, error)
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity computes cosine similarity between two vectors. Zero or
// mismatched vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package vector

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/adapter"
	"github.com/m-mizutani/notelet/pkg/model"
)

// MemoryTagIndex is an in-process TagIndex with brute-force cosine search.
type MemoryTagIndex struct {
	mu   sync.RWMutex
	vecs map[string][]float32
}

func NewMemoryTagIndex() *MemoryTagIndex {
	return &MemoryTagIndex{vecs: map[string][]float32{}}
}

func (x *MemoryTagIndex) Upsert(ctx context.Context, key string, vec []float32) error {
	if key == "" {
		return goerr.New("tag index key is empty")
	}
	if len(vec) == 0 {
		return goerr.New("tag embedding is empty", goerr.V("key", key))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vecs[key] = append([]float32(nil), vec...)
	return nil
}

func (x *MemoryTagIndex) Nearest(ctx context.Context, vec []float32, limit int) ([]Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	neighbors := make([]Neighbor, 0, len(x.vecs))
	for key, v := range x.vecs {
		neighbors = append(neighbors, Neighbor{Key: key, Score: CosineSimilarity(vec, v)})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})

	if limit > 0 && limit < len(neighbors) {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (x *MemoryTagIndex) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vecs), nil
}

func (x *MemoryTagIndex) Exists(ctx context.Context, key string) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.vecs[key]
	return ok, nil
}

type docEntry struct {
	note *model.Note
	vec  []float32
}

// MemoryDocumentIndex is an in-process DocumentIndex. It embeds note
// content (plus a tag line, so tag words contribute to retrieval) through
// the given embedder and searches by brute-force cosine similarity.
type MemoryDocumentIndex struct {
	mu       sync.RWMutex
	embedder adapter.Embedder
	docs     map[model.NoteID]docEntry
}

func NewMemoryDocumentIndex(embedder adapter.Embedder) *MemoryDocumentIndex {
	return &MemoryDocumentIndex{
		embedder: embedder,
		docs:     map[model.NoteID]docEntry{},
	}
}

func embedText(note *model.Note) string {
	if len(note.Tags) == 0 {
		return note.Content
	}
	return note.Content + "\nTags: " + strings.Join(note.Tags, ", ")
}

func (x *MemoryDocumentIndex) embed(ctx context.Context, text string) ([]float32, error) {
	if x.embedder == nil {
		return nil, goerr.New("embedder not configured")
	}
	resp, err := x.embedder.Embedding(ctx, text)
	if err != nil {
		return nil, err
	}
	return adapter.EmbeddingVector(resp)
}

func (x *MemoryDocumentIndex) Index(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}

	// without an embedder the note is held unvectorized: listable via
	// Count, invisible to Search
	var vec []float32
	if x.embedder != nil {
		var err error
		vec, err = x.embed(ctx, embedText(note))
		if err != nil {
			return goerr.Wrap(err, "failed to embed note content", goerr.V("id", note.ID))
		}
	}

	clone := *note
	clone.Tags = append([]string(nil), note.Tags...)

	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[note.ID] = docEntry{note: &clone, vec: vec}
	return nil
}

func (x *MemoryDocumentIndex) Delete(ctx context.Context, id model.NoteID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *MemoryDocumentIndex) Search(ctx context.Context, query string, limit int) ([]*model.Note, error) {
	x.mu.RLock()
	count := len(x.docs)
	x.mu.RUnlock()
	if count == 0 {
		return nil, nil
	}

	vec, err := x.embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		note  *model.Note
		score float64
	}
	hits := make([]scored, 0, len(x.docs))
	for _, entry := range x.docs {
		hits = append(hits, scored{note: entry.note, score: CosineSimilarity(vec, entry.vec)})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}

	notes := make([]*model.Note, len(hits))
	for i, hit := range hits {
		clone := *hit.note
		notes[i] = &clone
	}
	return notes, nil
}

func (x *MemoryDocumentIndex) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs), nil
}

package vector

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/adapter"
	"github.com/m-mizutani/notelet/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	tagIndexCollection = "tag_index"
	docIndexCollection = "note_index"

	distanceField = "vector_distance"
)

// FirestoreTagIndex stores tag embeddings in a Firestore collection and
// searches them with Firestore vector search.
type FirestoreTagIndex struct {
	client *firestore.Client
}

type tagIndexDoc struct {
	Value     string             `firestore:"value"`
	Embedding firestore.Vector32 `firestore:"embedding"`
}

func NewFirestoreTagIndex(client *firestore.Client) *FirestoreTagIndex {
	return &FirestoreTagIndex{client: client}
}

func (x *FirestoreTagIndex) Upsert(ctx context.Context, key string, vec []float32) error {
	if key == "" {
		return goerr.New("tag index key is empty")
	}

	doc := tagIndexDoc{Value: key, Embedding: firestore.Vector32(vec)}
	if _, err := x.client.Collection(tagIndexCollection).Doc(key).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to upsert tag embedding", goerr.V("key", key))
	}
	return nil
}

func (x *FirestoreTagIndex) Nearest(ctx context.Context, vec []float32, limit int) ([]Neighbor, error) {
	query := x.client.Collection(tagIndexCollection).FindNearest(
		"embedding",
		firestore.Vector32(vec),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField},
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var neighbors []Neighbor
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search tag embeddings")
		}

		data := snap.Data()
		value, _ := data["value"].(string)
		distance, _ := data[distanceField].(float64)

		// cosine distance -> similarity
		neighbors = append(neighbors, Neighbor{Key: value, Score: 1 - distance})
	}
	return neighbors, nil
}

func (x *FirestoreTagIndex) Count(ctx context.Context) (int, error) {
	return countDocs(ctx, x.client.Collection(tagIndexCollection))
}

func (x *FirestoreTagIndex) Exists(ctx context.Context, key string) (bool, error) {
	_, err := x.client.Collection(tagIndexCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check tag embedding", goerr.V("key", key))
	}
	return true, nil
}

// FirestoreDocumentIndex stores note content embeddings in a Firestore
// collection and retrieves nearest notes with Firestore vector search.
type FirestoreDocumentIndex struct {
	client   *firestore.Client
	embedder adapter.Embedder
}

type noteIndexDoc struct {
	NoteID    string             `firestore:"note_id"`
	Content   string             `firestore:"content"`
	Tags      []string           `firestore:"tags"`
	CreatedAt time.Time          `firestore:"created_at"`
	UpdatedAt time.Time          `firestore:"updated_at"`
	Embedding firestore.Vector32 `firestore:"embedding"`
}

func NewFirestoreDocumentIndex(client *firestore.Client, embedder adapter.Embedder) *FirestoreDocumentIndex {
	return &FirestoreDocumentIndex{client: client, embedder: embedder}
}

func (x *FirestoreDocumentIndex) embed(ctx context.Context, text string) ([]float32, error) {
	if x.embedder == nil {
		return nil, goerr.New("embedder not configured")
	}
	resp, err := x.embedder.Embedding(ctx, text)
	if err != nil {
		return nil, err
	}
	return adapter.EmbeddingVector(resp)
}

func (x *FirestoreDocumentIndex) Index(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}

	// without an embedder the entry is stored unvectorized, so FindNearest
	// skips it until the note is re-indexed with a credential
	var vec []float32
	if x.embedder != nil {
		var err error
		vec, err = x.embed(ctx, embedText(note))
		if err != nil {
			return goerr.Wrap(err, "failed to embed note content", goerr.V("id", note.ID))
		}
	}

	doc := noteIndexDoc{
		NoteID:    string(note.ID),
		Content:   note.Content,
		Tags:      note.Tags,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
		Embedding: firestore.Vector32(vec),
	}
	if _, err := x.client.Collection(docIndexCollection).Doc(string(note.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to index note", goerr.V("id", note.ID))
	}
	return nil
}

func (x *FirestoreDocumentIndex) Delete(ctx context.Context, id model.NoteID) error {
	if _, err := x.client.Collection(docIndexCollection).Doc(string(id)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete note from index", goerr.V("id", id))
	}
	return nil
}

func (x *FirestoreDocumentIndex) Search(ctx context.Context, query string, limit int) ([]*model.Note, error) {
	count, err := x.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	vec, err := x.embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	vq := x.client.Collection(docIndexCollection).FindNearest(
		"embedding",
		firestore.Vector32(vec),
		limit,
		firestore.DistanceMeasureCosine,
		nil,
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var notes []*model.Note
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to search notes")
		}

		var doc noteIndexDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode indexed note", goerr.V("doc", snap.Ref.ID))
		}
		notes = append(notes, &model.Note{
			ID:        model.NoteID(doc.NoteID),
			Content:   doc.Content,
			Tags:      doc.Tags,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return notes, nil
}

func (x *FirestoreDocumentIndex) Count(ctx context.Context) (int, error) {
	return countDocs(ctx, x.client.Collection(docIndexCollection))
}

func countDocs(ctx context.Context, coll *firestore.CollectionRef) (int, error) {
	iter := coll.Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		if _, err := iter.Next(); err != nil {
			if err == iterator.Done {
				break
			}
			return 0, goerr.Wrap(err, "failed to count documents")
		}
		count++
	}
	return count, nil
}

package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	noteCollection = "notes"
	tagCollection  = "tags"
)

// Firestore implements Repository using Cloud Firestore
type Firestore struct {
	client *firestore.Client
}

type noteDoc struct {
	ID             string         `firestore:"id"`
	Content        string         `firestore:"content"`
	Tags           []string       `firestore:"tags"`
	StructuredData map[string]any `firestore:"structured_data,omitempty"`
	StructureType  string         `firestore:"structure_type,omitempty"`
	Confidence     float64        `firestore:"confidence,omitempty"`
	HasMetadata    bool           `firestore:"has_metadata"`
	CreatedAt      time.Time      `firestore:"created_at"`
	UpdatedAt      time.Time      `firestore:"updated_at"`
}

type tagDoc struct {
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func toNoteDoc(note *model.Note) *noteDoc {
	doc := &noteDoc{
		ID:        string(note.ID),
		Content:   note.Content,
		Tags:      note.Tags,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
	if note.Metadata != nil {
		doc.HasMetadata = true
		doc.StructuredData = note.Metadata.StructuredData
		doc.StructureType = note.Metadata.StructureType
		doc.Confidence = note.Metadata.Confidence
	}
	return doc
}

func (d *noteDoc) toNote() *model.Note {
	note := &model.Note{
		ID:        model.NoteID(d.ID),
		Content:   d.Content,
		Tags:      d.Tags,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.HasMetadata {
		note.Metadata = &model.Metadata{
			StructuredData: d.StructuredData,
			StructureType:  d.StructureType,
			Confidence:     d.Confidence,
		}
	}
	return note
}

// NewFirestore creates a Firestore repository for the given project and
// database.
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying Firestore client
func (r *Firestore) Close() error {
	return r.client.Close()
}

// Client exposes the underlying Firestore client so the vector indexes
// can share the connection.
func (r *Firestore) Client() *firestore.Client {
	return r.client
}

func (r *Firestore) PutNote(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}

	doc := r.client.Collection(noteCollection).Doc(string(note.ID))
	if _, err := doc.Set(ctx, toNoteDoc(note)); err != nil {
		return goerr.Wrap(err, "failed to save note", goerr.V("id", note.ID))
	}

	for _, tag := range note.Tags {
		if err := r.PutTag(ctx, tag); err != nil {
			return err
		}
	}

	return nil
}

func (r *Firestore) GetNote(ctx context.Context, id model.NoteID) (*model.Note, error) {
	snap, err := r.client.Collection(noteCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNoteNotFound, "no such note", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}

	var doc noteDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode note", goerr.V("id", id))
	}

	return doc.toNote(), nil
}

func (r *Firestore) DeleteNote(ctx context.Context, id model.NoteID) (bool, error) {
	ref := r.client.Collection(noteCollection).Doc(string(id))

	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check note", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	return true, nil
}

func (r *Firestore) ListNotes(ctx context.Context) ([]*model.Note, error) {
	iter := r.client.Collection(noteCollection).Documents(ctx)
	return collectNotes(iter)
}

func (r *Firestore) ListRecentNotes(ctx context.Context, limit int) ([]*model.Note, error) {
	query := r.client.Collection(noteCollection).
		OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return collectNotes(query.Documents(ctx))
}

func (r *Firestore) FindNotesByTags(ctx context.Context, tags []string) ([]*model.Note, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	iter := r.client.Collection(noteCollection).
		Where("tags", "array-contains-any", tags).
		Documents(ctx)
	return collectNotes(iter)
}

func collectNotes(iter *firestore.DocumentIterator) ([]*model.Note, error) {
	defer iter.Stop()

	var notes []*model.Note
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notes")
		}

		var doc noteDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode note", goerr.V("doc", snap.Ref.ID))
		}
		notes = append(notes, doc.toNote())
	}
	return notes, nil
}

// PutTag upserts a tag document inside a transaction so that created_at
// survives re-saves.
func (r *Firestore) PutTag(ctx context.Context, name string) error {
	ref := r.client.Collection(tagCollection).Doc(name)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now()
		doc := tagDoc{Name: name, CreatedAt: now, UpdatedAt: now}

		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			var existing tagDoc
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			doc.CreatedAt = existing.CreatedAt
		}

		return tx.Set(ref, doc)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save tag", goerr.V("name", name))
	}
	return nil
}

func (r *Firestore) ListTags(ctx context.Context) ([]string, error) {
	iter := r.client.Collection(tagCollection).Documents(ctx)
	defer iter.Stop()

	var names []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tags")
		}

		var doc tagDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode tag", goerr.V("doc", snap.Ref.ID))
		}
		names = append(names, doc.Name)
	}
	return names, nil
}

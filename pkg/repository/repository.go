package repository

import (
	"context"

	"github.com/m-mizutani/notelet/pkg/model"
)

// Repository defines the interface for note and tag persistence. Each
// backend upserts notes keyed by ID and tags keyed by their normalized
// name. GetNote returns model.ErrNoteNotFound for an unknown ID.
type Repository interface {
	// PutNote saves or updates a note. Tags referenced by the note are
	// upserted as tag records as well.
	PutNote(ctx context.Context, note *model.Note) error

	// GetNote retrieves a note by ID
	GetNote(ctx context.Context, id model.NoteID) (*model.Note, error)

	// DeleteNote removes a note by ID and reports whether it existed
	DeleteNote(ctx context.Context, id model.NoteID) (bool, error)

	// ListNotes retrieves all notes
	ListNotes(ctx context.Context) ([]*model.Note, error)

	// ListRecentNotes retrieves notes ordered by created_at descending
	ListRecentNotes(ctx context.Context, limit int) ([]*model.Note, error)

	// FindNotesByTags retrieves notes holding any of the given tags
	FindNotesByTags(ctx context.Context, tags []string) ([]*model.Note, error)

	// PutTag upserts a tag record, refreshing updated_at and setting
	// created_at only on first insert
	PutTag(ctx context.Context, name string) error

	// ListTags retrieves all tag names
	ListTags(ctx context.Context) ([]string, error)
}

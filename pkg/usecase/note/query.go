package note

import (
	"context"

	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
)

// Get retrieves a note by ID
func (u *UseCase) Get(ctx context.Context, id model.NoteID) (*model.Note, error) {
	return u.repo.GetNote(ctx, id)
}

// ListRecent retrieves notes ordered by creation time, newest first
func (u *UseCase) ListRecent(ctx context.Context, limit int) ([]*model.Note, error) {
	return u.repo.ListRecentNotes(ctx, limit)
}

// SearchByTags retrieves notes holding any of the given tags
func (u *UseCase) SearchByTags(ctx context.Context, tags []string, limit int) ([]*model.Note, error) {
	notes, err := u.repo.FindNotesByTags(ctx, tags)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	return notes, nil
}

// Search retrieves notes semantically similar to the query. Index
// failures are logged and yield an empty result set rather than blocking
// the caller.
func (u *UseCase) Search(ctx context.Context, query string, limit int) []*model.Note {
	notes, err := u.index.Search(ctx, query, limit)
	if err != nil {
		logging.From(ctx).Error("content search failed", "query", query, "err", err)
		return nil
	}
	return notes
}

// Tags retrieves all known canonical tags
func (u *UseCase) Tags(ctx context.Context) ([]string, error) {
	return u.repo.ListTags(ctx)
}

// Stats reports repository and index sizes for health reporting
func (u *UseCase) Stats(ctx context.Context) (noteCount, indexCount int, err error) {
	notes, err := u.repo.ListNotes(ctx)
	if err != nil {
		return 0, 0, err
	}
	indexCount, err = u.index.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(notes), indexCount, nil
}

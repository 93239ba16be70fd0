package note

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
)

// UpdateInput contains parameters for updating a note. Nil fields keep
// the existing value; a non-nil Tags slice replaces the whole tag list,
// including tags originally derived from extraction.
type UpdateInput struct {
	NoteID  model.NoteID
	Content *string
	Tags    []string
}

// Update mutates an existing note in place. New content re-runs
// extraction and replaces metadata only; tags change solely through the
// Tags field. Returns model.ErrNoteNotFound for an unknown ID.
func (u *UseCase) Update(ctx context.Context, input UpdateInput) (*model.Note, error) {
	note, err := u.repo.GetNote(ctx, input.NoteID)
	if err != nil {
		return nil, err
	}

	if input.Content != nil {
		if *input.Content == "" {
			return nil, goerr.Wrap(model.ErrEmptyContent, "cannot update note with empty content")
		}
		note.Content = *input.Content

		if u.extractor != nil {
			result, err := u.extractor.Extract(ctx, note.Content)
			if err != nil {
				logging.From(ctx).Error("failed to re-extract metadata", "id", note.ID, "err", err)
			} else {
				note.Metadata = result.Meta()
			}
		}
	}

	if input.Tags != nil {
		resolved := []string{}
		for _, tag := range input.Tags {
			if tag == "" {
				continue
			}
			canonical, _, err := u.tags.Resolve(ctx, tag)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to resolve tag", goerr.V("tag", tag))
			}
			resolved = appendUnique(resolved, canonical)
		}
		note.Tags = resolved
	}

	note.UpdatedAt = time.Now()

	if err := u.repo.PutNote(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to save note", goerr.V("id", note.ID))
	}

	// re-index is delete + insert, not a patch
	if err := u.index.Delete(ctx, note.ID); err != nil {
		logging.From(ctx).Error("failed to delete stale index entry", "id", note.ID, "err", err)
	}
	if err := u.index.Index(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to re-index note", goerr.V("id", note.ID))
	}

	logging.From(ctx).Info("updated note", "id", note.ID)
	return note, nil
}

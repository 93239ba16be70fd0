package note

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
)

// Delete removes a note from both the repository and the content index.
// Returns model.ErrNoteNotFound for an unknown ID.
func (u *UseCase) Delete(ctx context.Context, id model.NoteID) error {
	deleted, err := u.repo.DeleteNote(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	if !deleted {
		return goerr.Wrap(model.ErrNoteNotFound, "no such note", goerr.V("id", id))
	}

	if err := u.index.Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete note from index", goerr.V("id", id))
	}

	logging.From(ctx).Info("deleted note", "id", id)
	return nil
}

package note

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
)

// ProcessInput contains parameters for creating a note
type ProcessInput struct {
	Content string
	Tags    []string
	NoteID  model.NoteID // optional, generated when empty
}

// Process turns raw note content into a persisted, indexed Note. The
// order is fixed: extraction, tag resolution, persistence, indexing.
// Extraction failures degrade to an unenriched note; persistence and
// indexing failures propagate, since a note that cannot be retrieved must
// not be reported as created.
func (u *UseCase) Process(ctx context.Context, input ProcessInput) (*model.Note, error) {
	if input.Content == "" {
		return nil, goerr.Wrap(model.ErrEmptyContent, "cannot process empty note")
	}

	workingTags := []string{}
	var meta *model.Metadata

	if u.extractor != nil {
		result, err := u.extractor.Extract(ctx, input.Content)
		if err != nil {
			logging.From(ctx).Error("structure extraction failed", "err", err)
		} else {
			meta = result.Meta()
			workingTags = u.seedExtractionTags(ctx, result, workingTags)
		}
	}

	for _, tag := range input.Tags {
		if tag == "" {
			continue
		}
		canonical, _, err := u.tags.Resolve(ctx, tag)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve tag", goerr.V("tag", tag))
		}
		workingTags = appendUnique(workingTags, canonical)
	}

	id := input.NoteID
	if id == "" {
		id = model.NewNoteID()
	}

	now := time.Now()
	note := &model.Note{
		ID:        id,
		Content:   input.Content,
		Tags:      workingTags,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := note.Validate(); err != nil {
		return nil, err
	}

	if err := u.repo.PutNote(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to save note", goerr.V("id", note.ID))
	}

	if err := u.index.Index(ctx, note); err != nil {
		return nil, goerr.Wrap(err, "failed to index note", goerr.V("id", note.ID))
	}

	logging.From(ctx).Info("processed note", "id", note.ID, "tags", note.Tags)
	return note, nil
}

// seedExtractionTags resolves the structure type and each suggested tag
// into the working tag list. A resolution failure abandons the remaining
// extraction-derived tags but keeps what resolved so far; extraction is
// enrichment, not a hard dependency.
func (u *UseCase) seedExtractionTags(ctx context.Context, result *model.Extraction, workingTags []string) []string {
	candidates := append([]string{result.StructureType}, result.SuggestedTags...)
	for _, tag := range candidates {
		if tag == "" {
			continue
		}
		canonical, _, err := u.tags.Resolve(ctx, tag)
		if err != nil {
			logging.From(ctx).Error("failed to resolve extracted tag", "tag", tag, "err", err)
			break
		}
		workingTags = appendUnique(workingTags, canonical)
	}
	return workingTags
}

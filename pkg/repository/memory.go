package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/model"
)

// Memory is an in-memory Repository, used for tests and for running the
// service without a Google Cloud project.
type Memory struct {
	mu    sync.RWMutex
	notes map[model.NoteID]*model.Note
	tags  map[string]*model.Tag
}

func NewMemory() *Memory {
	return &Memory{
		notes: map[model.NoteID]*model.Note{},
		tags:  map[string]*model.Tag{},
	}
}

func (r *Memory) PutNote(ctx context.Context, note *model.Note) error {
	if note == nil {
		return goerr.New("note is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *note
	clone.Tags = append([]string(nil), note.Tags...)
	if existing, ok := r.notes[note.ID]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	r.notes[note.ID] = &clone

	for _, tag := range clone.Tags {
		r.putTagLocked(tag)
	}

	return nil
}

func (r *Memory) GetNote(ctx context.Context, id model.NoteID) (*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, ok := r.notes[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNoteNotFound, "no such note", goerr.V("id", id))
	}

	clone := *note
	clone.Tags = append([]string(nil), note.Tags...)
	return &clone, nil
}

func (r *Memory) DeleteNote(ctx context.Context, id model.NoteID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[id]; !ok {
		return false, nil
	}
	delete(r.notes, id)
	return true, nil
}

func (r *Memory) ListNotes(ctx context.Context) ([]*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]*model.Note, 0, len(r.notes))
	for _, note := range r.notes {
		clone := *note
		notes = append(notes, &clone)
	}
	return notes, nil
}

func (r *Memory) ListRecentNotes(ctx context.Context, limit int) ([]*model.Note, error) {
	notes, err := r.ListNotes(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})

	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	return notes, nil
}

func (r *Memory) FindNotesByTags(ctx context.Context, tags []string) ([]*model.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := map[string]bool{}
	for _, tag := range tags {
		wanted[tag] = true
	}

	var results []*model.Note
	for _, note := range r.notes {
		for _, tag := range note.Tags {
			if wanted[tag] {
				clone := *note
				results = append(results, &clone)
				break
			}
		}
	}
	return results, nil
}

func (r *Memory) PutTag(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putTagLocked(name)
	return nil
}

func (r *Memory) putTagLocked(name string) {
	now := time.Now()
	if tag, ok := r.tags[name]; ok {
		tag.UpdatedAt = now
		return
	}
	r.tags[name] = &model.Tag{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Memory) ListTags(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tags))
	for name := range r.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetTag returns the tag record for a name, mainly for tests verifying
// created_at/updated_at semantics.
func (r *Memory) GetTag(name string) (*model.Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, ok := r.tags[name]
	if !ok {
		return nil, false
	}
	clone := *tag
	return &clone, true
}

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Log("failed to close firestore client:", err)
		}
	})

	return repo
}

func TestFirestorePutAndGetNote(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	now := time.Now()
	note := &model.Note{
		ID:      model.NewNoteID(),
		Content: "Recipe for Sunday's pasta dinner",
		Tags:    []string{"recipe", "dinner"},
		Metadata: &model.Metadata{
			StructuredData: map[string]any{"dish": "pasta"},
			StructureType:  "recipe",
			Confidence:     0.9,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	gt.NoError(t, repo.PutNote(ctx, note))
	t.Cleanup(func() {
		_, _ = repo.DeleteNote(ctx, note.ID)
	})

	got, err := repo.GetNote(ctx, note.ID)
	gt.NoError(t, err)
	gt.V(t, got.Content).Equal(note.Content)
	gt.A(t, got.Tags).Length(2)
	gt.V(t, got.Metadata).NotNil()
	gt.V(t, got.Metadata.StructureType).Equal("recipe")

	tags, err := repo.ListTags(ctx)
	gt.NoError(t, err)
	gt.A(t, tags).Has("recipe")
}

func TestFirestoreGetNoteNotFound(t *testing.T) {
	repo := setupFirestore(t)

	_, err := repo.GetNote(context.Background(), model.NewNoteID())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrNoteNotFound))
}

func TestFirestoreDeleteNote(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	now := time.Now()
	note := &model.Note{
		ID:        model.NewNoteID(),
		Content:   "to be deleted",
		CreatedAt: now,
		UpdatedAt: now,
	}
	gt.NoError(t, repo.PutNote(ctx, note))

	deleted, err := repo.DeleteNote(ctx, note.ID)
	gt.NoError(t, err)
	gt.True(t, deleted)

	deleted, err = repo.DeleteNote(ctx, note.ID)
	gt.NoError(t, err)
	gt.False(t, deleted)
}

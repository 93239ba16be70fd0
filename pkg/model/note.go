package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrNoteNotFound = goerr.New("note not found")
	ErrEmptyContent = goerr.New("note content is empty")
)

type NoteID string

// NewNoteID generates a new unique NoteID
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

// Note is the authoritative note entity. The repository and the content
// index hold copies; the note use case is the sole writer.
type Note struct {
	ID       NoteID    `json:"id"`
	Content  string    `json:"content"`
	Tags     []string  `json:"tags"`
	Metadata *Metadata `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the note is valid
func (n *Note) Validate() error {
	if n.ID == "" {
		return goerr.New("note ID is empty")
	}
	if n.Content == "" {
		return ErrEmptyContent
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		return goerr.New("updated_at is before created_at",
			goerr.V("created_at", n.CreatedAt), goerr.V("updated_at", n.UpdatedAt))
	}
	return nil
}

// Metadata is the structured envelope derived from note content by the
// extraction step. StructuredData is an open schema; values are limited to
// strings, numbers, booleans and string sequences by the extraction prompt.
type Metadata struct {
	StructuredData map[string]any `json:"structured_data"`
	StructureType  string         `json:"structure_type"`
	Confidence     float64        `json:"confidence"`
}

// Extraction is the result of running structure extraction over note text.
// StructureType and SuggestedTags feed tag resolution; the rest becomes the
// note's Metadata.
type Extraction struct {
	StructuredData map[string]any
	StructureType  string
	SuggestedTags  []string
	Confidence     float64
}

// Meta converts the extraction into note metadata.
func (e *Extraction) Meta() *Metadata {
	return &Metadata{
		StructuredData: e.StructuredData,
		StructureType:  e.StructureType,
		Confidence:     e.Confidence,
	}
}

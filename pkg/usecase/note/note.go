// Package note orchestrates note processing: structure extraction, tag
// resolution, persistence and content indexing.
package note

import (
	"context"

	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/repository"
	"github.com/m-mizutani/notelet/pkg/vector"
)

// Extractor derives structured metadata and tag candidates from note text
type Extractor interface {
	Extract(ctx context.Context, text string) (*model.Extraction, error)
}

// TagResolver resolves a raw tag string to its canonical form
type TagResolver interface {
	Resolve(ctx context.Context, tag string) (string, bool, error)
}

// UseCase provides note processing operations. It is the sole writer of
// note state; the repository and the content index hold copies.
type UseCase struct {
	repo      repository.Repository
	tags      TagResolver
	index     vector.DocumentIndex
	extractor Extractor
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithExtractor enables structure extraction. Without it, notes carry no
// metadata and only caller-supplied tags.
func WithExtractor(extractor Extractor) Option {
	return func(uc *UseCase) {
		uc.extractor = extractor
	}
}

// New creates a new note UseCase instance
func New(repo repository.Repository, tags TagResolver, index vector.DocumentIndex, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:  repo,
		tags:  tags,
		index: index,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// appendUnique adds a canonical tag unless already present. First
// occurrence wins even when a later variant resolves to a different
// canonical form.
func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

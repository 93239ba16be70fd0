// Package tagdedup collapses near-synonymous tag spellings to one
// canonical tag via embedding similarity.
package tagdedup

import (
	"context"
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/notelet/pkg/adapter"
	"github.com/m-mizutani/notelet/pkg/repository"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
	"github.com/m-mizutani/notelet/pkg/vector"
)

// DefaultSimilarityThreshold is deliberately high so that spelling
// variants merge ("recipe" / "recipes") but related concepts do not
// ("food" / "recipe").
const DefaultSimilarityThreshold = 0.95

// Deduplicator resolves raw tag strings to canonical tags. It holds the
// tag embedding index and persists new canonical tags to the repository.
//
// Resolve's check-then-act sequence is not atomic: two concurrent
// resolutions of near-identical new tags can both miss each other's
// in-flight write and create divergent canonical tags.
type Deduplicator struct {
	repo      repository.Repository
	index     vector.TagIndex
	embedder  adapter.Embedder
	threshold float64
}

// Option is a functional option for Deduplicator
type Option func(*Deduplicator)

// WithThreshold overrides the similarity threshold
func WithThreshold(threshold float64) Option {
	return func(d *Deduplicator) {
		d.threshold = threshold
	}
}

// New creates a Deduplicator and reconciles the embedding index against
// the authoritative tag list in the repository, covering restarts with a
// persistent repository but an ephemeral index. A nil embedder disables
// similarity matching; tags still normalize and persist, so only exact
// normalized spellings collapse.
func New(ctx context.Context, repo repository.Repository, index vector.TagIndex, embedder adapter.Embedder, opts ...Option) (*Deduplicator, error) {
	d := &Deduplicator{
		repo:      repo,
		index:     index,
		embedder:  embedder,
		threshold: DefaultSimilarityThreshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	if err := d.reconcile(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// Normalize lowercases a tag and strips every character that is not a
// letter, digit, ':' or '_'.
func Normalize(tag string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(tag) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' || r == '_' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Resolve returns the canonical tag for a raw tag string and whether a new
// canonical tag was minted. An existing similar tag is reused verbatim;
// the new spelling is discarded.
func (d *Deduplicator) Resolve(ctx context.Context, tag string) (string, bool, error) {
	normalized := Normalize(tag)
	if normalized == "" {
		return "", false, goerr.New("tag is empty after normalization", goerr.V("tag", tag))
	}

	count, err := d.index.Count(ctx)
	if err != nil {
		logging.From(ctx).Error("failed to count tag index, treating as empty", "err", err)
		count = 0
	}

	if count > 0 {
		if canonical, ok := d.findSimilar(ctx, normalized); ok {
			return canonical, false, nil
		}
	}

	if err := d.register(ctx, normalized); err != nil {
		return "", false, err
	}
	return normalized, true, nil
}

// findSimilar looks up the nearest existing tag. Lookup failures are
// logged and treated as no match, so tag creation proceeds.
func (d *Deduplicator) findSimilar(ctx context.Context, normalized string) (string, bool) {
	if d.embedder == nil {
		return "", false
	}
	logger := logging.From(ctx)

	resp, err := d.embedder.Embedding(ctx, normalized)
	if err != nil {
		logger.Error("failed to embed tag for similarity search", "tag", normalized, "err", err)
		return "", false
	}
	vec, err := adapter.EmbeddingVector(resp)
	if err != nil {
		logger.Error("tag embedding response is empty", "tag", normalized, "err", err)
		return "", false
	}

	neighbors, err := d.index.Nearest(ctx, vec, 1)
	if err != nil {
		logger.Error("tag similarity search failed", "tag", normalized, "err", err)
		return "", false
	}

	if len(neighbors) > 0 && neighbors[0].Score >= d.threshold {
		logger.Info("reusing similar tag",
			"tag", normalized,
			"canonical", neighbors[0].Key,
			"score", neighbors[0].Score)
		return neighbors[0].Key, true
	}
	return "", false
}

// register writes a new canonical tag into the embedding index and the
// repository. Failures here propagate; a tag that silently failed to
// persist would diverge from the index on the next restart.
func (d *Deduplicator) register(ctx context.Context, normalized string) error {
	if err := d.indexTag(ctx, normalized); err != nil {
		return err
	}
	if err := d.repo.PutTag(ctx, normalized); err != nil {
		return goerr.Wrap(err, "failed to persist tag", goerr.V("tag", normalized))
	}

	logging.From(ctx).Info("registered new tag", "tag", normalized)
	return nil
}

func (d *Deduplicator) indexTag(ctx context.Context, tag string) error {
	if d.embedder == nil {
		return nil
	}

	resp, err := d.embedder.Embedding(ctx, tag)
	if err != nil {
		return goerr.Wrap(err, "failed to embed tag", goerr.V("tag", tag))
	}
	vec, err := adapter.EmbeddingVector(resp)
	if err != nil {
		return goerr.Wrap(err, "tag embedding response is empty", goerr.V("tag", tag))
	}
	if err := d.index.Upsert(ctx, tag, vec); err != nil {
		return goerr.Wrap(err, "failed to index tag", goerr.V("tag", tag))
	}
	return nil
}

// reconcile inserts any tag present in the repository but absent from the
// embedding index. Per-tag failures are logged and skipped.
func (d *Deduplicator) reconcile(ctx context.Context) error {
	logger := logging.From(ctx)

	tags, err := d.repo.ListTags(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list stored tags")
	}

	count, err := d.index.Count(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to count tag index")
	}

	if count >= len(tags) {
		return nil
	}

	logger.Info("reconciling tag index with stored tags", "stored", len(tags), "indexed", count)

	for _, tag := range tags {
		exists, err := d.index.Exists(ctx, tag)
		if err != nil {
			logger.Error("failed to check tag index", "tag", tag, "err", err)
			continue
		}
		if exists {
			continue
		}
		if err := d.indexTag(ctx, tag); err != nil {
			logger.Error("failed to backfill tag into index", "tag", tag, "err", err)
		}
	}
	return nil
}

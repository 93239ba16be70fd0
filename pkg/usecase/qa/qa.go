// Package qa answers questions over stored notes: retrieve similar notes
// from the content index, then generate an answer grounded in them.
package qa

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/m-mizutani/notelet/pkg/adapter"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
	"github.com/m-mizutani/notelet/pkg/vector"
	"google.golang.org/genai"
)

//go:embed prompt/answer.md
var answerPromptRaw string

// DefaultTopK is the number of notes retrieved when the caller does not
// specify one.
const DefaultTopK = 5

const (
	msgNoCredential = "Unable to generate an answer - generative model credential not configured."
	msgNoDocuments  = "I couldn't find any relevant information to answer your question."
)

// UseCase answers questions through the content index and the generative
// model. Every failure mode yields a fixed answer string instead of an
// error; retrieved notes are returned even when generation failed so the
// caller can fall back to showing sources.
type UseCase struct {
	index  vector.DocumentIndex
	gemini adapter.Gemini
}

// New creates a new question answering UseCase. gemini may be nil when no
// credential is configured.
func New(index vector.DocumentIndex, gemini adapter.Gemini) *UseCase {
	return &UseCase{
		index:  index,
		gemini: gemini,
	}
}

// Answer retrieves up to topK notes similar to query and generates an
// answer from them. topK values below 1 fall back to DefaultTopK.
func (u *UseCase) Answer(ctx context.Context, query string, topK int) (*model.Answer, error) {
	if u.gemini == nil {
		logging.From(ctx).Warn("generative model credential not configured, cannot answer")
		return &model.Answer{
			Answer:    msgNoCredential,
			Documents: []*model.Note{},
		}, nil
	}

	if topK < 1 {
		topK = DefaultTopK
	}

	logging.From(ctx).Info("retrieving notes for question", "query", query, "topK", topK)
	docs, err := u.index.Search(ctx, query, topK)
	if err != nil {
		logging.From(ctx).Error("note retrieval failed", "query", query, "err", err)
		docs = nil
	}
	if len(docs) == 0 {
		return &model.Answer{
			Answer:    msgNoDocuments,
			Documents: []*model.Note{},
		}, nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(query, docs), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 500,
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		logging.From(ctx).Error("answer generation failed", "err", err)
		return &model.Answer{
			Answer:    "An error occurred while generating the answer: " + err.Error(),
			Documents: docs,
		}, nil
	}

	reply, err := adapter.ResponseText(resp)
	if err != nil {
		logging.From(ctx).Error("answer generation returned no text", "err", err)
		return &model.Answer{
			Answer:    "An error occurred while generating the answer: " + err.Error(),
			Documents: docs,
		}, nil
	}

	return &model.Answer{
		Answer:    strings.TrimSpace(reply),
		Documents: docs,
	}, nil
}

func buildPrompt(query string, docs []*model.Note) string {
	var sb strings.Builder
	sb.WriteString(answerPromptRaw)
	sb.WriteString("\nQUESTION: ")
	sb.WriteString(query)
	sb.WriteString("\n\nRELEVANT NOTES:\n")
	for i, doc := range docs {
		fmt.Fprintf(&sb, "\nNOTE %d:\n%s\nTags: %s\n", i+1, doc.Content, strings.Join(doc.Tags, ", "))
	}
	sb.WriteString("\nPlease provide a comprehensive answer to the question based on the information in the notes.\n")
	return sb.String()
}

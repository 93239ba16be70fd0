// Package extract derives an open-schema set of fields, a type label and
// tag candidates from free-form note text via the generative model.
package extract

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/notelet/pkg/adapter"
	"github.com/m-mizutani/notelet/pkg/model"
	"github.com/m-mizutani/notelet/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/extract.md
var extractPromptRaw string

// Extractor sends note text to the generative model and parses the
// JSON-shaped reply. Extraction is best-effort enrichment: service errors
// and malformed replies degrade to the default result, never an error.
type Extractor struct {
	gemini adapter.Gemini
}

// New creates an Extractor. A nil gemini means no credential is
// configured; Extract then returns the default result without calling out.
func New(gemini adapter.Gemini) *Extractor {
	return &Extractor{gemini: gemini}
}

func defaultExtraction() *model.Extraction {
	return &model.Extraction{
		StructuredData: map[string]any{},
		StructureType:  "unknown",
		SuggestedTags:  []string{},
		Confidence:     0.0,
	}
}

func buildPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(extractPromptRaw)
	sb.WriteString("\nNote to analyze:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nReturn only valid JSON without explanation or other text.\n")
	return sb.String()
}

// Extract runs structure extraction over text.
func (x *Extractor) Extract(ctx context.Context, text string) (*model.Extraction, error) {
	if x.gemini == nil {
		logging.From(ctx).Warn("generative model credential not configured, skipping structure extraction")
		return defaultExtraction(), nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(text), genai.RoleUser),
	}

	resp, err := x.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		logging.From(ctx).Error("structure extraction request failed", "err", err)
		return defaultExtraction(), nil
	}

	reply, err := adapter.ResponseText(resp)
	if err != nil {
		logging.From(ctx).Error("structure extraction returned no text", "err", err)
		return defaultExtraction(), nil
	}

	return parseReply(ctx, reply), nil
}

// parseReply locates the first '{' and the last '}' in the reply and
// decodes the substring. Anything undecodable degrades to the default
// result.
func parseReply(ctx context.Context, reply string) *model.Extraction {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		logging.From(ctx).Warn("no JSON object found in extraction reply")
		return defaultExtraction()
	}

	var payload struct {
		Type       string         `json:"type"`
		Data       map[string]any `json:"data"`
		Tags       []string       `json:"tags"`
		Confidence float64        `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		logging.From(ctx).Error("failed to parse extraction reply", "err", err)
		return defaultExtraction()
	}

	result := &model.Extraction{
		StructuredData: payload.Data,
		StructureType:  payload.Type,
		SuggestedTags:  payload.Tags,
		Confidence:     payload.Confidence,
	}
	if result.StructureType == "" {
		result.StructureType = "unknown"
	}
	if result.StructuredData == nil {
		result.StructuredData = map[string]any{}
	}
	if result.SuggestedTags == nil {
		result.SuggestedTags = []string{}
	}
	return result
}

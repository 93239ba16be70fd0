package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Gemini is the interface for the generative and embedding model service.
// Callers hold a nil Gemini when no credential is configured; LLM-backed
// features must degrade to their fixed fallbacks in that case.
type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error)
}

// Embedder is the embedding-only subset of Gemini, consumed by components
// that never generate text.
type Embedder interface {
	Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string

	apiKey   string
	project  string
	location string
}

type GeminiOption func(*GeminiClient)

// WithAPIKey uses the Gemini API backend with an API key instead of Vertex AI.
func WithAPIKey(apiKey string) GeminiOption {
	return func(g *GeminiClient) {
		g.apiKey = apiKey
	}
}

// WithVertex uses the Vertex AI backend with a Google Cloud project.
func WithVertex(project, location string) GeminiOption {
	return func(g *GeminiClient) {
		g.project = project
		g.location = location
	}
}

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

func NewGemini(ctx context.Context, opts ...GeminiOption) (*GeminiClient, error) {
	g := &GeminiClient{
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		location:        "us-central1",
	}

	for _, opt := range opts {
		opt(g)
	}

	var cfg *genai.ClientConfig
	switch {
	case g.apiKey != "":
		cfg = &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
	case g.project != "":
		cfg = &genai.ClientConfig{
			Project:  g.project,
			Location: g.location,
			Backend:  genai.BackendVertexAI,
		}
	default:
		return nil, goerr.New("either API key or project is required for Gemini client")
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	g.client = client

	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content")
	}
	return resp, nil
}

func (g *GeminiClient) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}
	return resp, nil
}

// ResponseText extracts the text of the first candidate in a generation
// response.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil ||
		len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("empty generation response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// EmbeddingVector extracts the vector of the first embedding in an
// embedding response.
func EmbeddingVector(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

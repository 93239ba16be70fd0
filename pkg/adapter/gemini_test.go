package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/notelet/pkg/adapter"
	"google.golang.org/genai"
)

func TestNewGeminiRequiresCredential(t *testing.T) {
	_, err := adapter.NewGemini(context.Background())
	gt.Error(t, err)
}

func TestResponseText(t *testing.T) {
	testCases := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: true,
		},
		{
			name: "text candidate",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{
						Content: &genai.Content{
							Parts: []*genai.Part{{Text: "hello"}},
						},
					},
				},
			},
			want: "hello",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := adapter.ResponseText(tc.resp)
			if tc.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.V(t, text).Equal(tc.want)
		})
	}
}

func TestEmbeddingVector(t *testing.T) {
	_, err := adapter.EmbeddingVector(nil)
	gt.Error(t, err)

	_, err = adapter.EmbeddingVector(&genai.EmbedContentResponse{})
	gt.Error(t, err)

	vec, err := adapter.EmbeddingVector(&genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{0.1, 0.2, 0.3}},
		},
	})
	gt.NoError(t, err)
	gt.A(t, vec).Length(3)
}

func TestGenerateContent(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, adapter.WithVertex(projectID, "us-central1"))
	gt.NoError(t, err)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Hello, what is the capital of France?"},
			},
		},
	}

	resp, err := client.GenerateContent(ctx, contents, nil)
	gt.NoError(t, err)

	text, err := adapter.ResponseText(resp)
	gt.NoError(t, err)
	gt.S(t, text).Contains("Paris")
}

func TestEmbedding(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, adapter.WithVertex(projectID, "us-central1"))
	gt.NoError(t, err)

	resp, err := client.Embedding(ctx, "dentist appointment on Monday")
	gt.NoError(t, err)

	vec, err := adapter.EmbeddingVector(resp)
	gt.NoError(t, err)
	gt.N(t, len(vec)).Greater(0)
}

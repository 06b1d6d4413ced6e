package vector

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiEmbedder is the other first-party option: Google's official Gemini
// SDK, selected when GEMINI_API_KEY is set instead of OPENAI_API_KEY.
// Grounded on the teacher's internal/llm/gemini_client.go client
// construction (genai.NewClient with BackendGeminiAPI).
type geminiEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

func newGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*geminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiEmbedder{client: client, model: model, dims: dims}, nil
}

func (e *geminiEmbedder) Provider() string { return "gemini" }
func (e *geminiEmbedder) Model() string     { return e.model }
func (e *geminiEmbedder) Dimensions() int   { return e.dims }

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *geminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.Text(t)[0]
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vecs[i] = emb.Values
	}
	return vecs, nil
}

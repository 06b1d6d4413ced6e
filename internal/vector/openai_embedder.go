package vector

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIEmbedder is the first-party tier reached when CV_EMBEDDING_AGGREGATOR_KEY
// is unset but OPENAI_API_KEY is present, using the official SDK directly
// against api.openai.com.
type openAIEmbedder struct {
	client openai.Client
	model  string
	dims   int
}

func newOpenAIEmbedder(apiKey, model string, dims int) *openAIEmbedder {
	return &openAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dims:   dims,
	}
}

func (e *openAIEmbedder) Provider() string { return "openai" }
func (e *openAIEmbedder) Model() string     { return e.model }
func (e *openAIEmbedder) Dimensions() int   { return e.dims }

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}

	vecs := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		vecs[d.Index] = vec
	}
	return vecs, nil
}

package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// aggregatorEmbedder is the first tier of the fallback chain: an
// OpenAI-API-compatible router (e.g. OpenRouter) reached through
// github.com/sashabaranov/go-openai pointed at a configurable base URL,
// grounded on the teacher's internal/llm/client.go provider-selection-by-key
// pattern and go.mod's inclusion of this SDK.
type aggregatorEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

func newAggregatorEmbedder(baseURL, apiKey, model string, dims int) *aggregatorEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &aggregatorEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dims:   dims,
	}
}

func (e *aggregatorEmbedder) Provider() string { return "aggregator" }
func (e *aggregatorEmbedder) Model() string     { return e.model }
func (e *aggregatorEmbedder) Dimensions() int   { return e.dims }

func (e *aggregatorEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *aggregatorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("aggregator embedding request failed: %w", err)
	}

	vecs := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// isPermissionError recognizes the substrings OpenAI-compatible APIs put in
// 401/403 error bodies, since the SDK surfaces these as plain errors rather
// than a typed sentinel.
func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid_api_key") ||
		strings.Contains(msg, "permission") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "401")
}

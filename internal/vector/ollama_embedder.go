package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ollamaEmbedder is the local tier: a plain net/http client against a local
// Ollama server. spec.md §6 is explicit that the engine has no direct SDK
// dependency on the local provider ("the engine does not care" whether it's
// remote or local), so this tier is hand-rolled HTTP rather than an
// imported client — the one Embedder tier not grounded in a third-party
// dependency, justified in DESIGN.md.
type ollamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	http    *http.Client
}

func newOllamaEmbedder(baseURL, model string, dims int, timeout time.Duration) *ollamaEmbedder {
	return &ollamaEmbedder{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		http:    &http.Client{Timeout: timeout},
	}
}

func (e *ollamaEmbedder) Provider() string { return "ollama" }
func (e *ollamaEmbedder) Model() string     { return e.model }
func (e *ollamaEmbedder) Dimensions() int   { return e.dims }

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: ollama returned %d", ErrPermissionDenied, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embedding request returned status %d", resp.StatusCode)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	return parsed.Embedding, nil
}

// EmbedBatch issues one request per text: Ollama's /api/embeddings endpoint
// takes a single input, so batching here is sequential rather than a single
// round trip — pacing still applies at the Writer level.
func (e *ollamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

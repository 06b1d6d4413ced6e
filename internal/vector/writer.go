package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/time/rate"
)

// maxBatchSize caps embedding and upsert batches at 100 inputs, per
// spec.md §4.5.
const maxBatchSize = 100

// Point is one chunk's vector plus its searchable payload, addressed by the
// caller's original string id (HashID maps it to Qdrant's numeric point id
// on the wire).
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchResult is one k-NN match.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// ScrollPage is one page of a collection scroll, with the offset to pass to
// the next call (empty when exhausted).
type ScrollPage struct {
	Points     []Point
	NextOffset string
}

// Writer is the Vector Writer's operation set, matching spec.md §4.5:
// ensure_collection, embed, embed_batch, upsert, upsert_batch, search,
// scroll, delete, clear.
type Writer struct {
	client   *Client
	embedder Embedder
	limiter  *rate.Limiter
}

// NewWriter builds a Writer pacing embedding requests at ratePerSec (the
// writer, not the provider, owns pacing per spec.md §4.5).
func NewWriter(client *Client, embedder Embedder, ratePerSec int) *Writer {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	return &Writer{
		client:   client,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Provider, Model and Dimensions report the embedder tier this Writer is
// currently backed by, for stamping manifest.Embedding on export.
func (w *Writer) Provider() string { return w.embedder.Provider() }
func (w *Writer) Model() string     { return w.embedder.Model() }
func (w *Writer) Dimensions() int   { return w.embedder.Dimensions() }

// EnsureCollection creates collectionName with the given dimensionality and
// cosine distance if it doesn't already exist. Per invariant 3, callers
// must rebuild (delete + recreate) rather than call this again when the
// embedding provider's dimensionality changes.
func (w *Writer) EnsureCollection(ctx context.Context, collectionName string, dims int) error {
	exists, err := w.client.raw.CollectionExists(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("check collection %s existence: %w", collectionName, err)
	}
	if exists {
		return nil
	}

	err = w.client.raw.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collectionName, err)
	}
	return nil
}

// Embed embeds a single text through the writer's configured provider,
// applying pacing.
func (w *Writer) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return w.embedder.Embed(ctx, text)
}

// EmbedBatch embeds texts in groups of at most maxBatchSize, pacing each
// group through the rate limiter.
func (w *Writer) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
		vecs, err := w.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}
	return all, nil
}

// Upsert writes a single point into collectionName.
func (w *Writer) Upsert(ctx context.Context, collectionName string, p Point) error {
	return w.UpsertBatch(ctx, collectionName, []Point{p})
}

// UpsertBatch writes points in groups of at most maxBatchSize.
func (w *Writer) UpsertBatch(ctx context.Context, collectionName string, points []Point) error {
	for start := 0; start < len(points); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		qPoints := make([]*qdrant.PointStruct, len(batch))
		for i, p := range batch {
			payload := make(map[string]any, len(p.Payload)+1)
			for k, v := range p.Payload {
				payload[k] = v
			}
			payload[originalIDPayloadKey] = p.ID

			qPoints[i] = &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(HashID(p.ID))),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		_, err := w.client.raw.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collectionName,
			Points:         qPoints,
		})
		if err != nil {
			return fmt.Errorf("upsert batch into %s: %w", collectionName, err)
		}
	}
	return nil
}

// Search runs a k-NN query against collectionName, embedding queryText
// through the writer's provider first.
func (w *Writer) Search(ctx context.Context, collectionName, queryText string, k uint64, filter *qdrant.Filter) ([]SearchResult, error) {
	vec, err := w.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed search query: %w", err)
	}

	resp, err := w.client.raw.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &k,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collectionName, err)
	}

	results := make([]SearchResult, 0, len(resp))
	for _, point := range resp {
		payload := payloadToMap(point.Payload)
		results = append(results, SearchResult{
			ID:      originalOrHashedID(payload, point.Id),
			Score:   point.Score,
			Payload: payload,
		})
	}
	return results, nil
}

// Scroll pages through collectionName in batches of limit, starting at
// offset (empty for the first page).
func (w *Writer) Scroll(ctx context.Context, collectionName string, limit uint32, offset string) (ScrollPage, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: collectionName,
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if offset != "" {
		if id, err := parseUint64(offset); err == nil {
			req.Offset = qdrant.NewIDNum(id)
		}
	}

	resp, err := w.client.raw.Scroll(ctx, req)
	if err != nil {
		return ScrollPage{}, fmt.Errorf("scroll %s: %w", collectionName, err)
	}

	page := ScrollPage{Points: make([]Point, 0, len(resp))}
	for _, retrieved := range resp {
		payload := payloadToMap(retrieved.Payload)
		page.Points = append(page.Points, Point{
			ID:      originalOrHashedID(payload, retrieved.Id),
			Vector:  vectorsToFloat32(retrieved.Vectors),
			Payload: payload,
		})
	}
	if len(resp) == int(limit) && limit > 0 {
		page.NextOffset = fmt.Sprintf("%d", retrievedLastID(resp))
	}
	return page, nil
}

// Delete removes a single point by its original string id.
func (w *Writer) Delete(ctx context.Context, collectionName, id string) error {
	_, err := w.client.raw.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDNum(uint64(HashID(id)))),
	})
	if err != nil {
		return fmt.Errorf("delete point %s from %s: %w", id, collectionName, err)
	}
	return nil
}

// Clear drops collectionName entirely (spec.md's clear(collection)).
func (w *Writer) Clear(ctx context.Context, collectionName string) error {
	if err := w.client.raw.DeleteCollection(ctx, collectionName); err != nil {
		return fmt.Errorf("clear collection %s: %w", collectionName, err)
	}
	return nil
}

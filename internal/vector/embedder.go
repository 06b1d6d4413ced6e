// Package vector implements the Vector Writer (spec.md §4.5): chunking,
// batched embedding through a three-tier provider fallback chain, and
// idempotent upsert/search/scroll against Qdrant.
package vector

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by an Embedder when the active provider
// rejects the request for an authorization reason (bad/expired key,
// insufficient scope) — the signal that tells the fallback chain to try
// the next tier, per spec.md §4.5.
var ErrPermissionDenied = errors.New("embedding provider denied the request")

// Embedder is the provider-agnostic interface every tier of the fallback
// chain implements, matching spec.md §6's embedding provider interface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Provider() string
	Model() string
	Dimensions() int
}

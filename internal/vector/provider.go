package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/controlvector/cv-engine/internal/config"
)

// fallbackEmbedder tries each tier in order, falling through to the next on
// ErrPermissionDenied (spec.md §4.5: "If an API call fails with a
// permissions error, fall through the fallback chain"). last tracks which
// tier most recently succeeded, so Provider/Model/Dimensions report the tier
// actually used rather than always the first — scenario S4 requires a
// fallback's manifest to record the dimensionality of the tier that served
// the request. The Writer calls this sequentially within one sync, so no
// synchronization is needed.
type fallbackEmbedder struct {
	tiers  []Embedder
	logger *logrus.Logger
	last   int
}

// NewEmbedder builds the three-tier fallback chain described in spec.md
// §4.5 from whichever credentials are configured: aggregator, then
// first-party (OpenAI or Gemini, whichever key is set), then local Ollama.
// At least the local tier is always present, since it requires no key.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *logrus.Logger) (Embedder, error) {
	var tiers []Embedder

	if cfg.AggregatorKey != "" {
		model := cfg.AggregatorModel
		if model == "" {
			model = "text-embedding-3-small"
		}
		tiers = append(tiers, newAggregatorEmbedder(cfg.AggregatorURL, cfg.AggregatorKey, model, cfg.Dimensions))
	}

	if cfg.OpenAIKey != "" {
		tiers = append(tiers, newOpenAIEmbedder(cfg.OpenAIKey, cfg.OpenAIModel, cfg.Dimensions))
	} else if cfg.GeminiKey != "" {
		gem, err := newGeminiEmbedder(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.Dimensions)
		if err != nil {
			logger.WithError(err).Warn("gemini embedder unavailable, skipping first-party tier")
		} else {
			tiers = append(tiers, gem)
		}
	}

	tiers = append(tiers, newOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel, cfg.Dimensions, cfg.RequestTimeout))

	return &fallbackEmbedder{tiers: tiers, logger: logger}, nil
}

func (f *fallbackEmbedder) Provider() string {
	return f.tiers[f.last].Provider()
}

func (f *fallbackEmbedder) Model() string {
	return f.tiers[f.last].Model()
}

func (f *fallbackEmbedder) Dimensions() int {
	return f.tiers[f.last].Dimensions()
}

func (f *fallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return runWithFallback(f.tiers, f.logger, &f.last, func(e Embedder) ([]float32, error) {
		return e.Embed(ctx, text)
	})
}

func (f *fallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return runWithFallback(f.tiers, f.logger, &f.last, func(e Embedder) ([][]float32, error) {
		return e.EmbedBatch(ctx, texts)
	})
}

// runWithFallback applies call against each tier in order, moving to the
// next tier only when the tier reports ErrPermissionDenied; any other error
// is returned immediately (spec.md §4.5 only names permission errors as the
// fallback trigger). On success, *last is set to the tier that served the
// request.
func runWithFallback[T any](tiers []Embedder, logger *logrus.Logger, last *int, call func(Embedder) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i, tier := range tiers {
		result, err := call(tier)
		if err == nil {
			*last = i
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, ErrPermissionDenied) {
			return zero, err
		}
		logger.WithFields(logrus.Fields{"tier": i, "model": tier.Model()}).
			Warn("embedding provider denied request, falling through to next tier")
	}
	return zero, fmt.Errorf("all embedding provider tiers exhausted: %w", lastErr)
}

package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
)

// Client wraps the official Qdrant gRPC client, following the teacher's
// client-wrapper idiom (graph.Client, cache.Client: a struct holding the
// raw client plus a logger, a constructor that fails fast on an
// unreachable back-end).
type Client struct {
	raw    *qdrant.Client
	logger *logrus.Logger
}

// NewClient parses rawURL (host:port, scheme optional) and connects to
// Qdrant, verifying reachability with a health probe before returning.
func NewClient(ctx context.Context, rawURL, apiKey string) (*Client, error) {
	host, port, useTLS, err := parseQdrantURL(rawURL)
	if err != nil {
		return nil, err
	}

	raw, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := raw.HealthCheck(probeCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", rawURL, err)
	}

	logger := logrus.StandardLogger()
	logger.WithField("addr", rawURL).Info("qdrant client connected")

	return &Client{raw: raw, logger: logger}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.raw.Close()
}

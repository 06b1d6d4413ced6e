// Package app wires the engine's backends (graph, vector, cache) from a
// loaded config.Config, the same way the teacher's internal/database package
// hands every crisk-* command a ready-to-use *sql.DB — rebuilt here around
// cv-engine's Neo4j/Qdrant/bbolt stack so cmd/cv-sync, cmd/cv-hydrate,
// cmd/cv-export and cmd/cv-hooks don't each reimplement connection setup.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/controlvector/cv-engine/internal/cache"
	"github.com/controlvector/cv-engine/internal/config"
	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/identity"
	"github.com/controlvector/cv-engine/internal/vector"
)

// Backends holds every live connection a sync/hydrate/export run needs.
// VectorWriter is nil when no embedding provider key and no local Ollama URL
// are configured — callers treat that as a warning, not a failure, per
// spec.md §4.9's failure-semantics table.
type Backends struct {
	RepoID       string
	GraphClient  *graph.Client
	GraphWriter  graph.Writer
	VectorClient *vector.Client
	VectorWriter *vector.Writer
	Cache        *cache.Manager
}

// Open resolves repoID from root, then connects to Neo4j, Qdrant, and the
// local cache in turn, logging each step the way crisk-sync's runSync does
// with its "[N/M] Connecting to..." progress lines.
func Open(ctx context.Context, root string, cfg *config.Config, logger *logrus.Logger) (*Backends, error) {
	repoID, err := identity.RepoID(root)
	if err != nil {
		return nil, fmt.Errorf("derive repository identity: %w", err)
	}
	logger.Infof("repository identity: %s", repoID)

	logger.Info("[1/3] connecting to graph store...")
	graphClient, err := graph.NewClient(ctx, cfg.Graph.URL, cfg.Graph.Username, cfg.Graph.Password, identity.GraphDatabaseName(repoID))
	if err != nil {
		return nil, fmt.Errorf("connect to graph store: %w", err)
	}
	graphWriter := graph.NewNeo4jWriter(graphClient)
	logger.Info("  connected")

	logger.Info("[2/3] connecting to vector store...")
	var vectorWriter *vector.Writer
	var vectorClient *vector.Client
	if cfg.Vector.URL != "" {
		vectorClient, err = vector.NewClient(ctx, cfg.Vector.URL, cfg.Vector.APIKey)
		if err != nil {
			logger.WithError(err).Warn("vector store unavailable, continuing without it")
		} else {
			embedder, err := vector.NewEmbedder(ctx, cfg.Embedding, logger)
			if err != nil {
				logger.WithError(err).Warn("embedding provider chain unavailable, continuing without vector store")
			} else {
				ratePerSec := cfg.Embedding.RateLimitPerSec
				if ratePerSec <= 0 {
					ratePerSec = 5
				}
				vectorWriter = vector.NewWriter(vectorClient, embedder, ratePerSec)
			}
		}
	}
	if vectorWriter != nil {
		logger.Info("  connected")
	} else {
		logger.Warn("  no vector store configured")
	}

	logger.Info("[3/3] opening local cache...")
	cacheManager, err := cache.NewManager(ctx, cfg, repoID, logger)
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	logger.Info("  ready")

	return &Backends{
		RepoID:       repoID,
		GraphClient:  graphClient,
		GraphWriter:  graphWriter,
		VectorClient: vectorClient,
		VectorWriter: vectorWriter,
		Cache:        cacheManager,
	}, nil
}

// Close releases every connection Open acquired, logging but not failing on
// individual close errors, since by the time Close runs the command's real
// work is already done.
func (b *Backends) Close() {
	if b.Cache != nil {
		b.Cache.Close()
	}
	if b.VectorClient != nil {
		b.VectorClient.Close()
	}
	if b.GraphClient != nil {
		b.GraphClient.Close(context.Background())
	}
}

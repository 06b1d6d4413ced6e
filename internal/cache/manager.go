package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/controlvector/cv-engine/internal/config"
	"github.com/controlvector/cv-engine/internal/parser"
)

var (
	parseCacheBucket     = []byte("parse")
	embeddingCacheBucket = []byte("embeddings")
)

// Manager owns the engine's two local caches — parsed-file results keyed by
// git blob hash, and embedding vectors keyed by content hash — plus an
// optional shared Redis tier for the embedding cache, mirroring the
// teacher's three-tier memory/disk/shared cache shape.
type Manager struct {
	config   *config.Config
	logger   *logrus.Logger
	mem      *cache.Cache
	db       *bolt.DB
	shared   *Client // nil unless CacheConfig.SharedCacheURL is set
	repoID   string
}

// NewManager opens the local bbolt store under cfg.Cache.Directory and, if
// cfg.Cache.SharedCacheURL is set, connects to the shared Redis cache.
func NewManager(ctx context.Context, cfg *config.Config, repoID string, logger *logrus.Logger) (*Manager, error) {
	if err := os.MkdirAll(cfg.Cache.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Cache.Directory, "cache.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %s: %w", dbPath, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(parseCacheBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(embeddingCacheBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache buckets: %w", err)
	}

	m := &Manager{
		config: cfg,
		logger: logger,
		mem:    cache.New(5*time.Minute, 10*time.Minute),
		db:     db,
		repoID: repoID,
	}

	if cfg.Cache.SharedCacheURL != "" {
		shared, err := NewClient(ctx, cfg.Cache.SharedCacheURL, 6379, "")
		if err != nil {
			logger.WithError(err).Warn("shared cache unavailable, continuing with local cache only")
		} else {
			m.shared = shared
		}
	}

	return m, nil
}

// GetParsedFile returns the cached ParsedFile for blobHash, if present.
// Content is never cached (it's the file's own bytes, already in hand), so
// callers that need it should set pf.Content themselves after a hit.
func (m *Manager) GetParsedFile(blobHash string) (*parser.ParsedFile, bool) {
	if cached, found := m.mem.Get("parse:" + blobHash); found {
		pf := cached.(parser.ParsedFile)
		return &pf, true
	}

	var pf parser.ParsedFile
	found := false
	_ = m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(parseCacheBucket).Get([]byte(blobHash))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &pf); err != nil {
			return err
		}
		found = true
		return nil
	})
	if found {
		m.mem.Set("parse:"+blobHash, pf, cache.DefaultExpiration)
	}
	return &pf, found
}

// PutParsedFile caches pf under blobHash, the content-addressed key that
// makes this cache self-invalidating: a changed file gets a new hash, so
// there is no separate staleness check.
func (m *Manager) PutParsedFile(blobHash string, pf *parser.ParsedFile) error {
	data, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("failed to marshal parsed file: %w", err)
	}
	if err := m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(parseCacheBucket).Put([]byte(blobHash), data)
	}); err != nil {
		return fmt.Errorf("failed to write parse cache entry: %w", err)
	}
	m.mem.Set("parse:"+blobHash, *pf, cache.DefaultExpiration)
	return nil
}

// GetEmbedding returns a previously computed embedding for contentHash,
// checking the shared cache (if configured) before falling back to local.
func (m *Manager) GetEmbedding(ctx context.Context, contentHash string) ([]float32, bool) {
	if cached, found := m.mem.Get("emb:" + contentHash); found {
		return cached.([]float32), true
	}

	if m.shared != nil {
		var vec []float32
		key := EmbeddingCacheKey(m.repoID, contentHash)
		if found, err := m.shared.Get(ctx, key, &vec); err == nil && found {
			m.mem.Set("emb:"+contentHash, vec, cache.DefaultExpiration)
			return vec, true
		}
	}

	var vec []float32
	found := false
	_ = m.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(embeddingCacheBucket).Get([]byte(contentHash))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &vec); err != nil {
			return err
		}
		found = true
		return nil
	})
	if found {
		m.mem.Set("emb:"+contentHash, vec, cache.DefaultExpiration)
	}
	return vec, found
}

// PutEmbedding caches vec under contentHash locally, and in the shared
// cache too if one is configured — so a teammate's sync against the same
// repo avoids re-paying for an unchanged chunk's embedding.
func (m *Manager) PutEmbedding(ctx context.Context, contentHash string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	if err := m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(embeddingCacheBucket).Put([]byte(contentHash), data)
	}); err != nil {
		return fmt.Errorf("failed to write embedding cache entry: %w", err)
	}
	m.mem.Set("emb:"+contentHash, vec, cache.DefaultExpiration)

	if m.shared != nil {
		key := EmbeddingCacheKey(m.repoID, contentHash)
		if err := m.shared.SetWithTTL(ctx, key, vec, m.config.Cache.TTL); err != nil {
			m.logger.WithError(err).Warn("failed to write embedding to shared cache")
		}
	}
	return nil
}

// Clear removes every local cache entry (parse and embedding). The shared
// cache, if any, is left untouched since other machines may still depend on
// it.
func (m *Manager) Clear() error {
	return m.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(parseCacheBucket); err != nil {
			return err
		}
		if err := tx.DeleteBucket(embeddingCacheBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(parseCacheBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(embeddingCacheBucket)
		return err
	})
}

// Close releases the local database handle and, if connected, the shared
// cache client.
func (m *Manager) Close() error {
	if m.shared != nil {
		_ = m.shared.Close()
	}
	return m.db.Close()
}

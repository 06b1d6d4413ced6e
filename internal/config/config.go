// Package config implements the engine's layered configuration: built-in
// defaults, overridden by a cv.yaml file, overridden in turn by environment
// variables — the same three-tier precedence the teacher's config.go uses,
// rebuilt around this engine's graph/vector/embedding backends instead of
// GitHub/risk-scoring settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the engine's components read at startup.
type Config struct {
	Graph     GraphConfig     `yaml:"graph"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Sync      SyncConfig      `yaml:"sync"`
}

// GraphConfig configures the Neo4j connection the Graph Writer uses.
type GraphConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// VectorConfig configures the Qdrant connection the Vector Writer uses.
type VectorConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig configures the three-tier embedding provider fallback
// chain (spec.md §4.5): aggregator, first-party, local.
type EmbeddingConfig struct {
	AggregatorURL   string `yaml:"aggregator_url"`
	AggregatorKey   string `yaml:"aggregator_key"`
	AggregatorModel string `yaml:"aggregator_model"`

	OpenAIKey   string `yaml:"openai_key"`
	OpenAIModel string `yaml:"openai_model"`

	GeminiKey   string `yaml:"gemini_key"`
	GeminiModel string `yaml:"gemini_model"`

	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	Dimensions      int           `yaml:"dimensions"`
	BatchSize       int           `yaml:"batch_size"`
	RateLimitPerSec int           `yaml:"rate_limit_per_sec"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// CacheConfig configures the local parse/embedding caches and the optional
// shared Redis cache teams can point multiple machines at.
type CacheConfig struct {
	Directory      string        `yaml:"directory"`
	TTL            time.Duration `yaml:"ttl"`
	MaxSize        int64         `yaml:"max_size"`
	SharedCacheURL string        `yaml:"shared_cache_url"`
}

// SyncConfig configures which files the Sync Driver's enumeration step
// includes or excludes, beyond the engine's built-in exclusion rules.
type SyncConfig struct {
	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
	InstallHooks    bool     `yaml:"install_hooks"`
}

// Default returns the engine's built-in configuration: localhost backends,
// a repo-local cache directory, and conservative embedding batch/rate
// limits.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			URL:      "bolt://localhost:7687",
			Username: "neo4j",
		},
		Vector: VectorConfig{
			URL: "localhost:6334",
		},
		Embedding: EmbeddingConfig{
			OpenAIModel:     "text-embedding-3-small",
			GeminiModel:     "text-embedding-004",
			OllamaURL:       "http://localhost:11434",
			OllamaModel:     "nomic-embed-text",
			Dimensions:      1536,
			BatchSize:       100,
			RateLimitPerSec: 20,
			RequestTimeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			Directory: filepath.Join(".cv", "cache"),
			TTL:       24 * time.Hour,
			MaxSize:   2 * 1024 * 1024 * 1024,
		},
		Sync: SyncConfig{
			InstallHooks: false,
		},
	}
}

// Load reads configuration from defaults, then a cv.yaml file (explicit
// path, or discovered in ".", "~/.cv", or the repo root), then CV_-prefixed
// environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("vector", cfg.Vector)
	v.SetDefault("embedding", cfg.Embedding)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("sync", cfg.Sync)

	v.SetEnvPrefix("CV")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cv")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".cv"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the engine's named environment variables on top
// of whatever defaults/config-file values Load already resolved. These are
// read directly (rather than relying solely on viper.AutomaticEnv) so that
// nested struct fields with underscores in their yaml tags map predictably.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("CV_NEO4J_URL"); url != "" {
		cfg.Graph.URL = url
	}
	if user := os.Getenv("CV_NEO4J_USER"); user != "" {
		cfg.Graph.Username = user
	}
	if pass := os.Getenv("CV_NEO4J_PASSWORD"); pass != "" {
		cfg.Graph.Password = pass
	}

	if url := os.Getenv("CV_QDRANT_URL"); url != "" {
		cfg.Vector.URL = url
	}
	if key := os.Getenv("CV_QDRANT_API_KEY"); key != "" {
		cfg.Vector.APIKey = key
	}

	if url := os.Getenv("CV_EMBEDDING_AGGREGATOR_URL"); url != "" {
		cfg.Embedding.AggregatorURL = url
	}
	if key := os.Getenv("CV_EMBEDDING_AGGREGATOR_KEY"); key != "" {
		cfg.Embedding.AggregatorKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.OpenAIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Embedding.GeminiKey = key
	}
	if url := os.Getenv("CV_OLLAMA_URL"); url != "" {
		cfg.Embedding.OllamaURL = url
	}

	if dir := os.Getenv("CV_CACHE_DIRECTORY"); dir != "" {
		cfg.Cache.Directory = expandPath(dir)
	}
	if url := os.Getenv("CV_SHARED_CACHE_URL"); url != "" {
		cfg.Cache.SharedCacheURL = url
	}
	if size := os.Getenv("CV_CACHE_MAX_SIZE"); size != "" {
		if sizeInt, err := strconv.ParseInt(size, 10, 64); err == nil {
			cfg.Cache.MaxSize = sizeInt
		}
	}

	if patterns := os.Getenv("CV_SYNC_EXCLUDE"); patterns != "" {
		cfg.Sync.ExcludePatterns = append(cfg.Sync.ExcludePatterns, strings.Split(patterns, ",")...)
	}
	if patterns := os.Getenv("CV_SYNC_INCLUDE"); patterns != "" {
		cfg.Sync.IncludePatterns = append(cfg.Sync.IncludePatterns, strings.Split(patterns, ",")...)
	}
	if hooks := os.Getenv("CV_SYNC_INSTALL_HOOKS"); hooks != "" {
		cfg.Sync.InstallHooks = hooks == "true"
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration to a cv.yaml file at path.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("graph", c.Graph)
	v.Set("vector", c.Vector)
	v.Set("embedding", c.Embedding)
	v.Set("cache", c.Cache)
	v.Set("sync", c.Sync)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

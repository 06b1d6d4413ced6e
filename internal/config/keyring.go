package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name credentials are filed under in
	// the OS keychain.
	KeyringService = "cv-engine"

	// Credential item names. Each corresponds to one embedding provider
	// tier (spec.md §4.5) or backend secret.
	ItemEmbeddingAggregatorKey = "embedding-aggregator-key"
	ItemOpenAIKey              = "openai-api-key"
	ItemGeminiKey              = "gemini-api-key"
	ItemNeo4jPassword          = "neo4j-password"
	ItemQdrantAPIKey           = "qdrant-api-key"
)

// KeyringManager handles secure credential storage in the OS keychain via
// github.com/zalando/go-keyring, which talks to Keychain Access on macOS,
// Credential Manager on Windows, and the Secret Service (libsecret) on
// Linux.
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager.
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{logger: slog.Default().With("component", "keyring")}
}

// SetSecret stores a named credential in the OS keychain.
func (km *KeyringManager) SetSecret(item, value string) error {
	if value == "" {
		return fmt.Errorf("%s: value cannot be empty", item)
	}
	if err := keyring.Set(KeyringService, item, value); err != nil {
		km.logger.Error("failed to save secret to keychain", "item", item, "error", err)
		return fmt.Errorf("failed to save %s to OS keychain: %w", item, err)
	}
	km.logger.Info("secret saved to keychain", "item", item)
	return nil
}

// GetSecret retrieves a named credential from the OS keychain. A missing
// item is not an error: it returns "" so callers can fall through to the
// next precedence tier.
func (km *KeyringManager) GetSecret(item string) (string, error) {
	value, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to read secret from keychain", "item", item, "error", err)
		return "", fmt.Errorf("failed to read %s from OS keychain: %w", item, err)
	}
	return value, nil
}

// DeleteSecret removes a named credential from the OS keychain.
func (km *KeyringManager) DeleteSecret(item string) error {
	err := keyring.Delete(KeyringService, item)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete secret from keychain", "item", item, "error", err)
		return fmt.Errorf("failed to delete %s from OS keychain: %w", item, err)
	}
	km.logger.Info("secret deleted from keychain", "item", item)
	return nil
}

// IsAvailable probes whether an OS keychain backend is reachable (false on
// headless CI systems without a Secret Service daemon).
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}
	return true
}

// SecretSourceInfo describes where a resolved credential came from.
type SecretSourceInfo struct {
	Source      string // "env", "keychain", "config", "none"
	Secure      bool
	Recommended string
}

// ResolveSecret implements the engine's credential precedence: environment
// variable, then OS keychain, then config file, matching the teacher's
// GetAPIKeySource precedence (env > keychain > config).
func (km *KeyringManager) ResolveSecret(envVar, item, configValue string) (string, SecretSourceInfo) {
	if v := os.Getenv(envVar); v != "" {
		return v, SecretSourceInfo{Source: "env", Secure: true, Recommended: "using environment variable"}
	}
	if v, _ := km.GetSecret(item); v != "" {
		return v, SecretSourceInfo{Source: "keychain", Secure: true, Recommended: "stored securely in OS keychain"}
	}
	if configValue != "" {
		return configValue, SecretSourceInfo{Source: "config", Secure: false, Recommended: "plaintext in config file; consider the OS keychain"}
	}
	return "", SecretSourceInfo{Source: "none", Secure: false, Recommended: "not configured"}
}

// MaskSecret masks a credential for display: first 7 and last 4 characters,
// "***" for anything shorter.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:7], secret[len(secret)-4:])
}

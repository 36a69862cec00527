// Package secrets resolves credentials from Azure Key Vault or the process
// environment.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSecretNotFound is returned when a secret has no value in its source
var ErrSecretNotFound = errors.New("secret not found")

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto uses the vault outside development
	SourceAuto SecretSource = "auto"
)

// Backend fetches a single secret by name
type Backend interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// envBackend reads secrets from environment variables named after the secret
type envBackend struct{}

func (envBackend) GetSecret(_ context.Context, secretName string) (string, error) {
	value := os.Getenv(EnvName(secretName))
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, EnvName(secretName))
	}
	return value, nil
}

// EnvName maps a Key Vault style name such as "jwt-secret" to JWT_SECRET
func EnvName(secretName string) string {
	return strings.ToUpper(strings.ReplaceAll(secretName, "-", "_"))
}

// Provider resolves secrets, letting explicitly set environment variables win
type Provider struct {
	source  SecretSource
	backend Backend
	logger  *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string // development, staging or production
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResolveSource turns SourceAuto into a concrete source for environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	var backend Backend
	switch source {
	case SourceEnvironment:
		backend = envBackend{}
	case SourceVault:
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		vaultClient, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		backend = vaultClient
	default:
		return nil, fmt.Errorf("unknown secret source: %s", source)
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)

	return NewProviderWithBackend(source, backend, logger), nil
}

// NewProviderWithBackend creates a provider on an existing backend
func NewProviderWithBackend(source SecretSource, backend Backend, logger *zap.Logger) *Provider {
	return &Provider{
		source:  source,
		backend: backend,
		logger:  logger,
	}
}

// GetSecret retrieves a secret by name from the configured source
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	return p.backend.GetSecret(ctx, secretName)
}

// GetSecretOrEnv returns envName when it is set, otherwise the secret from the
// configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override",
			zap.String("env_name", envName),
		)
		return envValue, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Source returns the current secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

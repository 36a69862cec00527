package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a stored object does not exist
var ErrNotFound = errors.New("stored object not found")

// Storage defines the interface for document storage operations. Paths are
// forward-slash separated and relative to the store root.
type Storage interface {
	Upload(ctx context.Context, prefix, filename, contentType string, data io.Reader) (string, int64, error)
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
}

// NewStorage creates a new storage instance based on configuration.
// "local" stores on the filesystem, "cloud"/"azure" in Azure Blob Storage.
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// DossierPrefix is the storage prefix for a dossier's documents
func DossierPrefix(dossierID uuid.UUID) string {
	return "dossiers/" + dossierID.String()
}

// objectName builds "<prefix>/<uuid><ext>" keeping the original extension
func objectName(prefix, filename string) string {
	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// cleanPath rejects paths escaping the store root
func cleanPath(storagePath string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(storagePath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage path %q", storagePath)
	}
	return cleaned, nil
}

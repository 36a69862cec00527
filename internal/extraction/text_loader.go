package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/storage"
)

// maxTextBytes caps the text sent to the extractor for one document
const maxTextBytes = 512 * 1024

// ErrUnsupportedDocument is returned for documents the loader cannot turn into text
var ErrUnsupportedDocument = errors.New("unsupported document type")

// TextLoader returns the plain text of an uploaded document
type TextLoader interface {
	LoadText(ctx context.Context, doc *domain.DossierDocument) (string, error)
}

// StorageTextLoader reads text documents straight from the document store.
// Binary formats need the external conversion service and are rejected.
type StorageTextLoader struct {
	store storage.Storage
}

// NewStorageTextLoader creates a loader on top of store
func NewStorageTextLoader(store storage.Storage) *StorageTextLoader {
	return &StorageTextLoader{store: store}
}

// IsTextDocument reports whether a document can be loaded without conversion
func IsTextDocument(filename, contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".csv":
		return true
	}
	return false
}

// LoadText reads the document and returns its text, truncated to maxTextBytes
func (l *StorageTextLoader) LoadText(ctx context.Context, doc *domain.DossierDocument) (string, error) {
	if !IsTextDocument(doc.Filename, doc.ContentType) {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedDocument, doc.Filename, doc.ContentType)
	}

	rc, err := l.store.Download(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), ""))
	}
	return string(data), nil
}

package extraction_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/extraction"
	"github.com/straye-as/dossier-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageTextLoader_LoadText(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	path, _, err := store.Upload(context.Background(), storage.DossierPrefix(uuid.New()), "akte.txt", "text/plain", strings.NewReader("Verkoper: P. de Vries"))
	require.NoError(t, err)

	loader := extraction.NewStorageTextLoader(store)
	text, err := loader.LoadText(context.Background(), &domain.DossierDocument{
		Filename:    "akte.txt",
		ContentType: "text/plain; charset=utf-8",
		StoragePath: path,
	})

	require.NoError(t, err)
	assert.Equal(t, "Verkoper: P. de Vries", text)
}

func TestStorageTextLoader_RejectsBinary(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	loader := extraction.NewStorageTextLoader(store)
	_, err = loader.LoadText(context.Background(), &domain.DossierDocument{
		Filename:    "akte.pdf",
		ContentType: "application/pdf",
		StoragePath: "dossiers/x/akte.pdf",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, extraction.ErrUnsupportedDocument))
}

func TestStorageTextLoader_MissingFile(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	loader := extraction.NewStorageTextLoader(store)
	_, err = loader.LoadText(context.Background(), &domain.DossierDocument{
		Filename:    "notes.md",
		StoragePath: "dossiers/x/gone.md",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestIsTextDocument(t *testing.T) {
	assert.True(t, extraction.IsTextDocument("a.bin", "text/plain"))
	assert.True(t, extraction.IsTextDocument("a.MD", ""))
	assert.True(t, extraction.IsTextDocument("a.csv", "application/octet-stream"))
	assert.False(t, extraction.IsTextDocument("a.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
}

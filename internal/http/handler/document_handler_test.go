package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/service"
	"github.com/straye-as/dossier-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadRequest(t *testing.T, dossierID, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, writer.WriteField("note", "no file"))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", dossierID)
	return req.WithContext(context.WithValue(testutil.UserContext(), chi.RouteCtxKey, rctx))
}

func TestDocumentHandler_UploadAndAnalyse(t *testing.T) {
	h := setupHandlers(t)
	dossier := testutil.CreateTestDossier(t, h.db, "Documenten")
	template := testutil.CreateTestTemplate(t, h.db, "Koop", "Verkoper: [[naam_verkoper]]")
	_, err := h.versions.CreateAgreement(testutil.UserContext(), dossier.ID, &template.ID, "")
	require.NoError(t, err)
	dossierID := dossier.ID.String()
	h.extracted["naam_verkoper"] = "A. de Vries"

	rr := httptest.NewRecorder()
	h.documents.Upload(rr, newUploadRequest(t, dossierID, "notes.txt", "Verkoper: A. de Vries"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var doc domain.DossierDocumentDTO
	decodeBody(t, rr, &doc)
	assert.Equal(t, "notes.txt", doc.Filename)
	assert.Equal(t, domain.AnalysisStatusPending, doc.AnalysisStatus)

	rr = httptest.NewRecorder()
	h.documents.StartAnalysis(rr, newRequest(t, http.MethodPost, "/analysis", nil, "id", dossierID))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var scheduled []domain.DossierDocumentDTO
	decodeBody(t, rr, &scheduled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, doc.ID, scheduled[0].ID)

	rr = httptest.NewRecorder()
	h.documents.AnalysisStatus(rr, newRequest(t, http.MethodGet, "/analysis", nil, "id", dossierID))
	require.Equal(t, http.StatusOK, rr.Code)
	var status domain.AnalysisStatusDTO
	decodeBody(t, rr, &status)
	assert.True(t, status.Completed)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Processed)
	assert.Equal(t, service.EventAnalysisCompleted, status.LastEvent)

	rr = httptest.NewRecorder()
	h.documents.List(rr, newRequest(t, http.MethodGet, "/documents", nil, "id", dossierID))
	require.Equal(t, http.StatusOK, rr.Code)
	var docs []domain.DossierDocumentDTO
	decodeBody(t, rr, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.AnalysisStatusDone, docs[0].AnalysisStatus)

	values, err := h.masterData.MasterValues(context.Background(), dossier.ID)
	require.NoError(t, err)
	assert.Equal(t, "A. de Vries", values["naam_verkoper"])

	// Nothing is left to analyse
	rr = httptest.NewRecorder()
	h.documents.StartAnalysis(rr, newRequest(t, http.MethodPost, "/analysis", nil, "id", dossierID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDocumentHandler_UploadErrors(t *testing.T) {
	h := setupHandlers(t)
	dossier := testutil.CreateTestDossier(t, h.db, "Fouten")

	t.Run("missing file field", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.documents.Upload(rr, newUploadRequest(t, dossier.ID.String(), "", ""))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("file too large", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.documents.Upload(rr, newUploadRequest(t, dossier.ID.String(), "groot.txt", strings.Repeat("x", 2<<20)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})

	t.Run("unknown dossier", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.documents.Upload(rr, newUploadRequest(t, uuid.New().String(), "notes.txt", "x"))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unknown document id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.documents.StartAnalysis(rr, newRequest(t, http.MethodPost, "/analysis",
			domain.StartAnalysisRequest{DocumentIDs: []uuid.UUID{uuid.New()}}, "id", dossier.ID.String()))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

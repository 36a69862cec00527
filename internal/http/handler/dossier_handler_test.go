package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDossierHandler_Create(t *testing.T) {
	h := setupHandlers(t)

	t.Run("create dossier", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/dossiers", domain.CreateDossierRequest{
			Name:      "Kerkstraat 12",
			Reference: "D-2026-001",
			Address:   "Kerkstraat 12, Utrecht",
		})
		rr := httptest.NewRecorder()
		h.dossiers.Create(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var dto domain.DossierDTO
		decodeBody(t, rr, &dto)
		assert.Equal(t, "Kerkstraat 12", dto.Name)
		assert.Equal(t, "Test User", dto.CreatedBy)
		assert.Equal(t, "/api/v1/dossiers/"+dto.ID.String(), rr.Header().Get("Location"))
	})

	t.Run("missing name", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/dossiers", map[string]string{"reference": "x"})
		rr := httptest.NewRecorder()
		h.dossiers.Create(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		var apiErr domain.APIError
		decodeBody(t, rr, &apiErr)
		assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
		assert.Contains(t, apiErr.Errors, "name")
	})

	t.Run("invalid json", func(t *testing.T) {
		req := newRequest(t, http.MethodPost, "/dossiers", "not an object")
		rr := httptest.NewRecorder()
		h.dossiers.Create(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDossierHandler_ListAndGet(t *testing.T) {
	h := setupHandlers(t)
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		rr := httptest.NewRecorder()
		h.dossiers.Create(rr, newRequest(t, http.MethodPost, "/dossiers", domain.CreateDossierRequest{Name: name}))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("paginated list", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.dossiers.List(rr, newRequest(t, http.MethodGet, "/dossiers?page=1&pageSize=2", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var result domain.PaginatedResponse
		decodeBody(t, rr, &result)
		assert.Equal(t, int64(3), result.Total)
		assert.Equal(t, 2, result.PageSize)
		assert.Equal(t, 2, result.TotalPages)
	})

	t.Run("search", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.dossiers.List(rr, newRequest(t, http.MethodGet, "/dossiers?search=Beta", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var result domain.PaginatedResponse
		decodeBody(t, rr, &result)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("get with agreements", func(t *testing.T) {
		var dossier domain.Dossier
		require.NoError(t, h.db.Where("name = ?", "Alpha").First(&dossier).Error)
		_, err := h.versions.CreateAgreement(newRequest(t, http.MethodGet, "/", nil).Context(), dossier.ID, nil, "Koop")
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		h.dossiers.Get(rr, newRequest(t, http.MethodGet, "/dossiers/"+dossier.ID.String(), nil, "id", dossier.ID.String()))

		require.Equal(t, http.StatusOK, rr.Code)
		var dto domain.DossierDTO
		decodeBody(t, rr, &dto)
		require.Len(t, dto.Agreements, 1)
		require.Len(t, dto.Agreements[0].Versions, 1)
		assert.Equal(t, "1.0", dto.Agreements[0].Versions[0].VersionNumber)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		rr := httptest.NewRecorder()
		h.dossiers.Get(rr, newRequest(t, http.MethodGet, "/dossiers/"+id, nil, "id", id))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.dossiers.Get(rr, newRequest(t, http.MethodGet, "/dossiers/abc", nil, "id", "abc"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDossierHandler_ListEvents(t *testing.T) {
	h := setupHandlers(t)
	rr := httptest.NewRecorder()
	h.dossiers.Create(rr, newRequest(t, http.MethodPost, "/dossiers", domain.CreateDossierRequest{Name: "Tijdlijn"}))
	require.Equal(t, http.StatusCreated, rr.Code)
	var dossier domain.DossierDTO
	decodeBody(t, rr, &dossier)

	rr = httptest.NewRecorder()
	h.dossiers.ListEvents(rr, newRequest(t, http.MethodGet, "/events", nil, "id", dossier.ID.String()))

	require.Equal(t, http.StatusOK, rr.Code)
	var events []domain.DossierEventDTO
	decodeBody(t, rr, &events)
	require.Len(t, events, 1)
	assert.Equal(t, service.EventDossierCreated, events[0].Title)
	assert.Equal(t, "Test User", events[0].Actor)
}

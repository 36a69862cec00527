package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHandler_CreateAndReplaceSections(t *testing.T) {
	h := setupHandlers(t)

	rr := httptest.NewRecorder()
	h.templates.Create(rr, newRequest(t, http.MethodPost, "/templates",
		domain.CreateTemplateRequest{Name: "Huurovereenkomst", Description: "Standaard"}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var template domain.TemplateDTO
	decodeBody(t, rr, &template)
	templateID := template.ID.String()

	t.Run("replace sections", func(t *testing.T) {
		body := domain.ReplaceSectionsRequest{Sections: []domain.SectionInput{
			{Order: 1, Title: "Partijen", ContentTemplate: "Huurder [[naam_huurder]]"},
			{Order: 2, Title: "Huurprijs", ContentTemplate: "Huur: [[huurprijs]]", Placeholders: []domain.SectionLinkInput{
				{Key: "huurprijs", Label: "Huurprijs per maand", ValueType: domain.ValueTypeNumber},
			}},
		}}
		rr := httptest.NewRecorder()
		h.templates.ReplaceSections(rr, newRequest(t, http.MethodPut, "/sections", body, "id", templateID))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var sections []domain.TemplateSectionDTO
		decodeBody(t, rr, &sections)
		require.Len(t, sections, 2)
		assert.Equal(t, "Partijen", sections[0].Title)
		require.Len(t, sections[1].Placeholders, 1)
		assert.Equal(t, "huurprijs", sections[1].Placeholders[0].Key)
		assert.Equal(t, "Huurprijs per maand", sections[1].Placeholders[0].Label)
	})

	t.Run("invalid value type", func(t *testing.T) {
		body := domain.ReplaceSectionsRequest{Sections: []domain.SectionInput{
			{Order: 1, Title: "Partijen", Placeholders: []domain.SectionLinkInput{{Key: "x", ValueType: "money"}}},
		}}
		rr := httptest.NewRecorder()
		h.templates.ReplaceSections(rr, newRequest(t, http.MethodPut, "/sections", body, "id", templateID))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("get template", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.templates.Get(rr, newRequest(t, http.MethodGet, "/templates", nil, "id", templateID))

		require.Equal(t, http.StatusOK, rr.Code)
		var dto domain.TemplateDTO
		decodeBody(t, rr, &dto)
		assert.Len(t, dto.Sections, 2)
	})

	t.Run("list templates", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.templates.List(rr, newRequest(t, http.MethodGet, "/templates", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var templates []domain.TemplateDTO
		decodeBody(t, rr, &templates)
		assert.Len(t, templates, 1)
	})
}

func TestTemplateHandler_DeleteSection(t *testing.T) {
	h := setupHandlers(t)
	dossier := testutil.CreateTestDossier(t, h.db, "Sectie")
	template := testutil.CreateTestTemplate(t, h.db, "Koop", "Artikel een", "Artikel twee")
	_, err := h.versions.CreateAgreement(testutil.UserContext(), dossier.ID, &template.ID, "")
	require.NoError(t, err)

	t.Run("section in use", func(t *testing.T) {
		id := template.Sections[0].ID.String()
		rr := httptest.NewRecorder()
		h.templates.DeleteSection(rr, newRequest(t, http.MethodDelete, "/sections", nil, "sectionId", id))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("unknown section", func(t *testing.T) {
		id := uuid.New().String()
		rr := httptest.NewRecorder()
		h.templates.DeleteSection(rr, newRequest(t, http.MethodDelete, "/sections", nil, "sectionId", id))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("delete template", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.templates.Delete(rr, newRequest(t, http.MethodDelete, "/templates", nil, "id", template.ID.String()))
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = httptest.NewRecorder()
		h.templates.Get(rr, newRequest(t, http.MethodGet, "/templates", nil, "id", template.ID.String()))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

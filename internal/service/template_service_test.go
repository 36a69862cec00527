package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/service"
	"github.com/straye-as/dossier-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SectionPlaceholderRefs(t *testing.T) {
	def := &domain.PlaceholderDefinition{Key: "naam_koper"}
	section := &domain.TemplateSection{
		ContentTemplate: "[[naam_koper]] koopt [[adres_eigendom]] voor [[koopsom]]",
		Links: []domain.SectionPlaceholderLink{
			{PlaceholderDefinition: def, Label: "Koper"},
			{PlaceholderDefinition: def},
			{},
		},
	}

	refs := service.SectionPlaceholderRefs(section)
	require.Len(t, refs, 3)
	assert.Equal(t, "naam_koper", refs[0].Key)
	assert.Equal(t, "Koper", refs[0].Label)
	assert.Same(t, def, refs[0].Definition)
	assert.Equal(t, "adres_eigendom", refs[1].Key)
	assert.Nil(t, refs[1].Definition)
	assert.Equal(t, "koopsom", refs[2].Key)
}

func TestTemplateService_Create(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	template, err := s.templates.Create(ctx, &domain.CreateTemplateRequest{Name: " Koopovereenkomst "})
	require.NoError(t, err)
	assert.Equal(t, "Koopovereenkomst", template.Name)

	_, err = s.templates.Create(ctx, &domain.CreateTemplateRequest{Name: " "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = s.templates.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrTemplateNotFound)
}

func TestTemplateService_ReplaceSections_InsertUpdateDelete(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	template, err := s.templates.Create(ctx, &domain.CreateTemplateRequest{Name: "Koop"})
	require.NoError(t, err)

	sections, err := s.templates.ReplaceSections(ctx, template.ID, []domain.SectionInput{
		{Order: 1, Title: "Partijen", ContentTemplate: "Koper: [[naam_koper]]"},
		{Order: 2, Title: "Prijs", ContentTemplate: "Koopsom: [[koopsom]]", Placeholders: []domain.SectionLinkInput{
			{Key: "koopsom", Label: "Koopsom", ValueType: domain.ValueTypeNumber},
		}},
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Len(t, sections[1].Links, 1)
	assert.Equal(t, "Koopsom", sections[1].Links[0].Label)
	assert.Equal(t, domain.ValueTypeNumber, sections[1].Links[0].PlaceholderDefinition.ValueType)

	// Update the first, drop the second, add a third
	keep := sections[0].ID
	sections, err = s.templates.ReplaceSections(ctx, template.ID, []domain.SectionInput{
		{ID: &keep, Order: 1, Title: "Partijen", ContentTemplate: "Koper: [[naam_koper]], verkoper: [[naam_verkoper]]"},
		{Order: 2, Title: "Levering", ContentTemplate: "Op [[leverdatum]]"},
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, keep, sections[0].ID)
	assert.Len(t, sections[0].Links, 2)
	assert.Equal(t, "Levering", sections[1].Title)

	var stored int64
	require.NoError(t, s.db.Model(&domain.TemplateSection{}).Where("template_id = ?", template.ID).Count(&stored).Error)
	assert.Equal(t, int64(2), stored)
}

func TestTemplateService_ReplaceSections_RejectsInvalidInput(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	template, err := s.templates.Create(ctx, &domain.CreateTemplateRequest{Name: "Koop"})
	require.NoError(t, err)

	foreign := uuid.New()
	_, err = s.templates.ReplaceSections(ctx, template.ID, []domain.SectionInput{
		{ID: &foreign, Title: "Onbekend"},
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = s.templates.ReplaceSections(ctx, template.ID, []domain.SectionInput{{Title: " "}})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// Nothing was written by the failed calls
	sections, err := s.templates.ListSections(ctx, template.ID)
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestTemplateService_ReplaceSections_RetiresReferencedSections(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Retire")
	template := testutil.CreateTestTemplate(t, s.db, "Koop", "Koper: [[naam_koper]]", "Prijs: [[koopsom]]")

	agreement, err := s.versions.CreateAgreement(ctx, dossier.ID, &template.ID, "")
	require.NoError(t, err)

	keep := template.Sections[0].ID
	live, err := s.templates.ReplaceSections(ctx, template.ID, []domain.SectionInput{
		{ID: &keep, Order: 1, Title: "Partijen", ContentTemplate: "Koper: [[naam_koper]]"},
	})
	require.NoError(t, err)
	require.Len(t, live, 1)

	// The dropped section is still referenced by the agreement, so it is retired
	var retired domain.TemplateSection
	require.NoError(t, s.db.First(&retired, "id = ?", template.Sections[1].ID).Error)
	assert.NotNil(t, retired.RetiredAt)

	// Nothing to clean up while the reference exists
	removed, err := s.templates.CleanupRetiredSections(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = s.versions.DeleteVersion(ctx, agreement.Versions[0].ID)
	require.NoError(t, err)

	removed, err = s.templates.CleanupRetiredSections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Error(t, s.db.First(&domain.TemplateSection{}, "id = ?", template.Sections[1].ID).Error)
}

func TestTemplateService_DeleteSection(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Delete section")
	template := testutil.CreateTestTemplate(t, s.db, "Koop", "Koper: [[naam_koper]]", "Vrij")

	_, err := s.versions.CreateAgreement(ctx, dossier.ID, &template.ID, "")
	require.NoError(t, err)

	err = s.templates.DeleteSection(ctx, template.Sections[0].ID)
	assert.ErrorIs(t, err, service.ErrSectionInUse)

	err = s.templates.DeleteSection(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTemplateService_Delete_KeepsAgreements(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Delete template")
	template := testutil.CreateTestTemplate(t, s.db, "Koop", "Koper: [[naam_koper]]")

	agreement, err := s.versions.CreateAgreement(ctx, dossier.ID, &template.ID, "")
	require.NoError(t, err)

	require.NoError(t, s.templates.Delete(ctx, template.ID))

	_, err = s.templates.GetByID(ctx, template.ID)
	assert.ErrorIs(t, err, service.ErrTemplateNotFound)

	got, err := s.versions.GetAgreement(ctx, agreement.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TemplateID)

	version, err := s.versions.GetVersion(ctx, agreement.Versions[0].ID)
	require.NoError(t, err)
	require.Len(t, version.Sections, 1)
	assert.Equal(t, "Koper: [[naam_koper]]", version.Sections[0].Content)
}

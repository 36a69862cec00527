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

// placeholderFixture is a dossier with one templated agreement in two versions
type placeholderFixture struct {
	dossier    *domain.Dossier
	superseded *domain.Version
	current    *domain.Version
}

func setupPlaceholderFixture(t *testing.T, s *services) placeholderFixture {
	t.Helper()
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Placeholders")
	template := testutil.CreateTestTemplate(t, s.db, "Koop", "Koper: [[naam_koper]], koopsom [[koopsom]]")
	require.NoError(t, s.db.Model(&domain.PlaceholderDefinition{}).
		Where("key = ?", "koopsom").
		Update("value_type", domain.ValueTypeNumber).Error)

	agreement, err := s.versions.CreateAgreement(ctx, dossier.ID, &template.ID, "")
	require.NoError(t, err)
	superseded, err := s.versions.GetVersion(ctx, agreement.Versions[0].ID)
	require.NoError(t, err)
	duplicated, err := s.versions.DuplicateLatest(ctx, agreement.ID)
	require.NoError(t, err)
	current, err := s.versions.GetVersion(ctx, duplicated.ID)
	require.NoError(t, err)

	return placeholderFixture{dossier: dossier, superseded: superseded, current: current}
}

func placeholderOf(t *testing.T, version *domain.Version, key string) domain.PlaceholderInstance {
	t.Helper()
	for _, p := range version.Sections[0].Placeholders {
		if p.PlaceholderDefinition.Key == key {
			return p
		}
	}
	t.Fatalf("placeholder %q not found", key)
	return domain.PlaceholderInstance{}
}

func TestPlaceholderService_EditCurrentVersionPropagates(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	f := setupPlaceholderFixture(t, s)

	instance := placeholderOf(t, f.current, "naam_koper")
	updated, err := s.placeholders.UpdateInstanceValue(ctx, instance.ID, "K. Smit")
	require.NoError(t, err)
	assert.Equal(t, "K. Smit", updated.Value)

	values, err := s.masterData.MasterValues(ctx, f.dossier.ID)
	require.NoError(t, err)
	assert.Equal(t, "K. Smit", values["naam_koper"])
	assert.Equal(t, "", sectionValue(t, s, f.superseded.ID, "naam_koper"))

	events, err := s.events.List(ctx, f.dossier.ID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, service.EventValueChanged, events[0].Title)
}

func TestPlaceholderService_EditSupersededVersionStaysLocal(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	f := setupPlaceholderFixture(t, s)

	instance := placeholderOf(t, f.superseded, "naam_koper")
	_, err := s.placeholders.UpdateInstanceValue(ctx, instance.ID, "Historisch")
	require.NoError(t, err)

	assert.Equal(t, "Historisch", sectionValue(t, s, f.superseded.ID, "naam_koper"))
	assert.Equal(t, "", sectionValue(t, s, f.current.ID, "naam_koper"))

	values, err := s.masterData.MasterValues(ctx, f.dossier.ID)
	require.NoError(t, err)
	assert.NotContains(t, values, "naam_koper")
}

func TestPlaceholderService_EditValidatesDeclaredType(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	f := setupPlaceholderFixture(t, s)

	instance := placeholderOf(t, f.current, "koopsom")
	_, err := s.placeholders.UpdateInstanceValue(ctx, instance.ID, "veel geld")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// Edits are stored in canonical notation
	updated, err := s.placeholders.UpdateInstanceValue(ctx, instance.ID, "€ 425.000,00")
	require.NoError(t, err)
	assert.Equal(t, "425000", updated.Value)
	assert.Equal(t, "425000", sectionValue(t, s, f.current.ID, "koopsom"))

	values, err := s.masterData.MasterValues(ctx, f.dossier.ID)
	require.NoError(t, err)
	assert.Equal(t, "425000", values["koopsom"])

	_, err = s.placeholders.UpdateInstanceValue(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, service.ErrInstanceNotFound)
}

func TestPlaceholderService_Validation(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	f := setupPlaceholderFixture(t, s)

	instance := placeholderOf(t, f.current, "naam_koper")
	approved, err := s.placeholders.SetPlaceholderValidation(ctx, instance.ID, domain.ValidationStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.ValidationStatusApproved, approved.ValidationStatus)

	_, err = s.placeholders.SetPlaceholderValidation(ctx, instance.ID, domain.ValidationStatus("rejected"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	section, err := s.placeholders.SetSectionValidation(ctx, f.current.Sections[0].ID, domain.ValidationStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.ValidationStatusApproved, section.ValidationStatus)

	_, err = s.placeholders.SetSectionValidation(ctx, uuid.New(), domain.ValidationStatusApproved)
	assert.ErrorIs(t, err, service.ErrInstanceNotFound)
}

func TestPlaceholderService_UpdateSectionContentLeavesTemplate(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	f := setupPlaceholderFixture(t, s)

	section, err := s.placeholders.UpdateSectionContent(ctx, f.current.Sections[0].ID, "Aangepast: [[naam_koper]]")
	require.NoError(t, err)
	assert.Equal(t, "Aangepast: [[naam_koper]]", section.Content)

	var templateSection domain.TemplateSection
	require.NoError(t, s.db.First(&templateSection, "id = ?", *section.TemplateSectionID).Error)
	assert.Equal(t, "Koper: [[naam_koper]], koopsom [[koopsom]]", templateSection.ContentTemplate)
}

func TestPlaceholderService_RenderSection(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	f := setupPlaceholderFixture(t, s)

	require.NoError(t, s.masterData.RecordValue(ctx, f.dossier.ID, "naam_koper", "M. de Wit"))

	rendered, err := s.placeholders.RenderSection(ctx, f.current.Sections[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Koper: M. de Wit, koopsom [[koopsom]]", rendered)

	// Superseded versions fall back to master values for empty placeholders
	rendered, err = s.placeholders.RenderSection(ctx, f.superseded.Sections[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Koper: M. de Wit, koopsom [[koopsom]]", rendered)
}

package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/jobs"
	"github.com/straye-as/dossier-api/internal/service"
	"github.com/straye-as/dossier-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadText(t *testing.T, s *services, dossierID uuid.UUID, filename, text string) *domain.DossierDocument {
	t.Helper()
	doc, err := s.analysis.UploadDocument(testutil.UserContext(), dossierID, filename, "text/plain", strings.NewReader(text))
	require.NoError(t, err)
	return doc
}

func documentStatus(t *testing.T, s *services, dossierID, docID uuid.UUID) domain.DossierDocument {
	t.Helper()
	docs, err := s.analysis.ListDocuments(context.Background(), dossierID)
	require.NoError(t, err)
	for _, doc := range docs {
		if doc.ID == docID {
			return doc
		}
	}
	t.Fatalf("document %s not found", docID)
	return domain.DossierDocument{}
}

func TestAnalysisService_UploadDocument(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Upload")

	doc := uploadText(t, s, dossier.ID, "notes.txt", "Koper: Jan")
	assert.Equal(t, domain.AnalysisStatusPending, doc.AnalysisStatus)
	assert.Equal(t, int64(len("Koper: Jan")), doc.Size)
	assert.Equal(t, "Test User", doc.UploadedBy)

	_, err := s.analysis.UploadDocument(ctx, dossier.ID, " ", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = s.analysis.UploadDocument(ctx, uuid.New(), "notes.txt", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, service.ErrDossierNotFound)

	events, err := s.events.List(ctx, dossier.ID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, service.EventDocumentUploaded, events[0].Title)
}

func TestAnalysisService_RunRecordsValues(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Analyse")
	template := testutil.CreateTestTemplate(t, s.db, "Koop", "Koper: [[naam_koper]]")
	agreement, err := s.versions.CreateAgreement(ctx, dossier.ID, &template.ID, "")
	require.NoError(t, err)

	doc := uploadText(t, s, dossier.ID, "notes.txt", "De koper is Jan Jansen.")
	s.extractor.values = map[string]string{"naam_koper": "Jan Jansen", "onbekend_veld": "x"}

	docs, err := s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{
		ContextHints:       []string{"koopovereenkomst"},
		CustomInstructions: "Gebruik volledige namen",
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"analysis:" + dossier.ID.String()}, s.tasks.submitted)

	require.Len(t, s.extractor.requests, 1)
	req := s.extractor.requests[0]
	assert.Equal(t, "De koper is Jan Jansen.", req.Text)
	assert.Contains(t, req.FieldKeys, "naam_koper")
	assert.Equal(t, []string{"koopovereenkomst"}, req.ContextHints)
	assert.Equal(t, "Gebruik volledige namen", req.CustomInstructions)

	assert.Equal(t, domain.AnalysisStatusDone, documentStatus(t, s, dossier.ID, doc.ID).AnalysisStatus)
	assert.Equal(t, "Jan Jansen", sectionValue(t, s, agreement.Versions[0].ID, "naam_koper"))

	status, err := s.analysis.Status(ctx, dossier.ID)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.True(t, status.Completed)
	assert.Equal(t, 1, status.Documents)
	assert.Equal(t, 1, status.Processed)
	assert.Equal(t, service.EventAnalysisCompleted, status.LastEvent)

	completed, err := s.events.HasCompletedAnalysis(ctx, dossier.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	// Done documents are not picked up again by default
	_, err = s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAnalysisService_ExtractorFailureFailsRun(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Mislukt")
	doc := uploadText(t, s, dossier.ID, "notes.txt", "tekst")
	s.extractor.err = errors.New("extraction service unavailable")

	_, err := s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{})
	require.NoError(t, err)

	stored := documentStatus(t, s, dossier.ID, doc.ID)
	assert.Equal(t, domain.AnalysisStatusFailed, stored.AnalysisStatus)
	assert.Contains(t, stored.AnalysisError, "extraction service unavailable")

	status, err := s.analysis.Status(ctx, dossier.ID)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.False(t, status.Completed)
	assert.Equal(t, service.EventAnalysisFailed, status.LastEvent)

	// Failed documents are retried by a new run
	s.extractor.err = nil
	docs, err := s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.AnalysisStatusDone, documentStatus(t, s, dossier.ID, doc.ID).AnalysisStatus)
}

func TestAnalysisService_UnsupportedDocumentFails(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Binair")

	doc, err := s.analysis.UploadDocument(ctx, dossier.ID, "scan.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	_, err = s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{DocumentIDs: []uuid.UUID{doc.ID}})
	require.NoError(t, err)

	assert.Empty(t, s.extractor.requests)
	stored := documentStatus(t, s, dossier.ID, doc.ID)
	assert.Equal(t, domain.AnalysisStatusFailed, stored.AnalysisStatus)
	assert.Contains(t, stored.AnalysisError, "unsupported document type")
}

func TestAnalysisService_StartAnalysisErrors(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Fouten")

	_, err := s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = s.analysis.StartAnalysis(ctx, uuid.New(), &domain.StartAnalysisRequest{})
	assert.ErrorIs(t, err, service.ErrDossierNotFound)

	uploadText(t, s, dossier.ID, "notes.txt", "tekst")
	_, err = s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{DocumentIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)

	// Documents of another dossier are not selectable
	other := testutil.CreateTestDossier(t, s.db, "Ander")
	foreign := uploadText(t, s, other.ID, "notes.txt", "tekst")
	_, err = s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{DocumentIDs: []uuid.UUID{foreign.ID}})
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
}

func TestAnalysisService_QueueFull(t *testing.T) {
	s := setupServices(t)
	ctx := testutil.UserContext()
	dossier := testutil.CreateTestDossier(t, s.db, "Vol")
	doc := uploadText(t, s, dossier.ID, "notes.txt", "tekst")
	s.tasks.err = jobs.ErrQueueFull

	_, err := s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{})
	assert.ErrorIs(t, err, service.ErrAnalysisQueueFull)
	assert.ErrorIs(t, err, service.ErrConflict)

	assert.Equal(t, domain.AnalysisStatusPending, documentStatus(t, s, dossier.ID, doc.ID).AnalysisStatus)
	status, err := s.analysis.Status(ctx, dossier.ID)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, service.EventAnalysisFailed, status.LastEvent)

	// The dossier is not left marked as running
	s.tasks.err = nil
	_, err = s.analysis.StartAnalysis(ctx, dossier.ID, &domain.StartAnalysisRequest{})
	require.NoError(t, err)
}

func TestAnalysisService_FailStuckAnalyses(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	dossier := testutil.CreateTestDossier(t, s.db, "Vast")
	stuck := uploadText(t, s, dossier.ID, "oud.txt", "tekst")
	fresh := uploadText(t, s, dossier.ID, "nieuw.txt", "tekst")

	require.NoError(t, s.db.Model(&domain.DossierDocument{}).
		Where("id = ?", stuck.ID).
		Updates(map[string]interface{}{
			"analysis_status": domain.AnalysisStatusProcessing,
			"updated_at":      time.Now().UTC().Add(-2 * time.Hour),
		}).Error)
	require.NoError(t, s.db.Model(&domain.DossierDocument{}).
		Where("id = ?", fresh.ID).
		Updates(map[string]interface{}{
			"analysis_status": domain.AnalysisStatusProcessing,
			"updated_at":      time.Now().UTC(),
		}).Error)

	count, err := s.analysis.FailStuckAnalyses(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	old := documentStatus(t, s, dossier.ID, stuck.ID)
	assert.Equal(t, domain.AnalysisStatusFailed, old.AnalysisStatus)
	assert.Equal(t, "analysis interrupted before completion", old.AnalysisError)
	assert.Equal(t, domain.AnalysisStatusProcessing, documentStatus(t, s, dossier.ID, fresh.ID).AnalysisStatus)
}

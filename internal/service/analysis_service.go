package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/extraction"
	"github.com/straye-as/dossier-api/internal/jobs"
	"github.com/straye-as/dossier-api/internal/logger"
	"github.com/straye-as/dossier-api/internal/repository"
	"github.com/straye-as/dossier-api/internal/storage"
	"go.uber.org/zap"
)

const stuckAnalysisReason = "analysis interrupted before completion"

// TaskSubmitter queues background work. jobs.WorkerPool implements it.
type TaskSubmitter interface {
	Submit(name string, task jobs.Task) error
}

// AnalysisService stores uploaded documents and runs extraction over them in
// the background, feeding the results to the master-data synchronizer
type AnalysisService struct {
	dossierRepo  *repository.DossierRepository
	documentRepo *repository.DocumentRepository
	registry     *PlaceholderRegistryService
	masterData   *MasterDataService
	events       *EventService
	store        storage.Storage
	loader       extraction.TextLoader
	extractor    extraction.Extractor
	tasks        TaskSubmitter
	logger       *zap.Logger

	mu      sync.Mutex
	running map[uuid.UUID]bool
}

// NewAnalysisService creates a new analysis service instance
func NewAnalysisService(
	dossierRepo *repository.DossierRepository,
	documentRepo *repository.DocumentRepository,
	registry *PlaceholderRegistryService,
	masterData *MasterDataService,
	events *EventService,
	store storage.Storage,
	loader extraction.TextLoader,
	extractor extraction.Extractor,
	tasks TaskSubmitter,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		dossierRepo:  dossierRepo,
		documentRepo: documentRepo,
		registry:     registry,
		masterData:   masterData,
		events:       events,
		store:        store,
		loader:       loader,
		extractor:    extractor,
		tasks:        tasks,
		logger:       logger,
		running:      make(map[uuid.UUID]bool),
	}
}

// UploadDocument stores a document for a dossier and registers it as pending analysis
func (s *AnalysisService) UploadDocument(ctx context.Context, dossierID uuid.UUID, filename, contentType string, data io.Reader) (*domain.DossierDocument, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if err := s.requireDossier(ctx, dossierID); err != nil {
		return nil, err
	}

	storagePath, size, err := s.store.Upload(ctx, storage.DossierPrefix(dossierID), filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	actor := auth.ActorFromContext(ctx)
	doc := &domain.DossierDocument{
		DossierID:      dossierID,
		Filename:       filename,
		ContentType:    contentType,
		Size:           size,
		StoragePath:    storagePath,
		AnalysisStatus: domain.AnalysisStatusPending,
		UploadedBy:     actor,
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to remove orphaned document",
				zap.String("storage_path", storagePath),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	logger.WithDossier(s.logger, dossierID.String()).Info("document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("filename", filename),
		zap.Int64("size", size),
	)
	s.events.recordQuietly(ctx, dossierID, EventDocumentUploaded,
		fmt.Sprintf("Document '%s' geüpload", filename), actor)

	return doc, nil
}

// ListDocuments returns a dossier's documents in upload order
func (s *AnalysisService) ListDocuments(ctx context.Context, dossierID uuid.UUID) ([]domain.DossierDocument, error) {
	if err := s.requireDossier(ctx, dossierID); err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.ListByDossier(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// StartAnalysis schedules an extraction run and returns the documents it covers.
// Without document IDs the run covers every pending or failed document. The
// call returns once the run is queued; progress shows up on the event timeline.
func (s *AnalysisService) StartAnalysis(ctx context.Context, dossierID uuid.UUID, req *domain.StartAnalysisRequest) ([]domain.DossierDocument, error) {
	if err := s.requireDossier(ctx, dossierID); err != nil {
		return nil, err
	}

	docs, err := s.selectDocuments(ctx, dossierID, req.DocumentIDs)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to analyse", ErrInvalidInput)
	}

	if !s.markRunning(dossierID) {
		return nil, fmt.Errorf("%w: an analysis is already running for this dossier", ErrConflict)
	}

	actor := auth.ActorFromContext(ctx)
	if err := s.events.Record(ctx, dossierID, EventAnalysisStarted,
		fmt.Sprintf("Analyse van %d document(en) gestart", len(docs)), actor); err != nil {
		s.clearRunning(dossierID)
		return nil, err
	}

	run := analysisRun{
		dossierID:          dossierID,
		documents:          docs,
		contextHints:       req.ContextHints,
		customInstructions: req.CustomInstructions,
		actor:              actor,
	}
	err = s.tasks.Submit("analysis:"+dossierID.String(), func(taskCtx context.Context) {
		defer s.clearRunning(dossierID)
		s.runAnalysis(taskCtx, run)
	})
	if err != nil {
		s.clearRunning(dossierID)
		s.events.recordQuietly(ctx, dossierID, EventAnalysisFailed,
			"Analyse kon niet worden ingepland: "+err.Error(), actor)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, ErrAnalysisQueueFull
		}
		return nil, fmt.Errorf("failed to schedule analysis: %w", err)
	}

	logger.WithDossier(s.logger, dossierID.String()).Info("analysis scheduled",
		zap.Int("documents", len(docs)),
		zap.String("actor", actor),
	)
	return docs, nil
}

// Status summarizes the latest analysis run for polling clients
func (s *AnalysisService) Status(ctx context.Context, dossierID uuid.UUID) (*domain.AnalysisStatusDTO, error) {
	if err := s.requireDossier(ctx, dossierID); err != nil {
		return nil, err
	}

	run, err := s.events.LatestAnalysisRun(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.ListByDossier(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	status := &domain.AnalysisStatusDTO{
		DossierID: dossierID,
		Running:   run.Running() || s.isRunning(dossierID),
		Completed: run.Completed,
		Documents: len(docs),
	}
	for _, doc := range docs {
		if doc.AnalysisStatus == domain.AnalysisStatusDone {
			status.Processed++
		}
	}
	latest, err := s.events.List(ctx, dossierID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) > 0 {
		status.LastEvent = latest[0].Title
	}
	return status, nil
}

// FailStuckAnalyses marks documents processing for longer than maxAge as failed
func (s *AnalysisService) FailStuckAnalyses(ctx context.Context, maxAge time.Duration) (int64, error) {
	count, err := s.documentRepo.FailStuck(ctx, time.Now().UTC().Add(-maxAge), stuckAnalysisReason)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stuck analyses: %w", err)
	}
	return count, nil
}

type analysisRun struct {
	dossierID          uuid.UUID
	documents          []domain.DossierDocument
	contextHints       []string
	customInstructions string
	actor              string
}

// runAnalysis processes the run's documents in order. The first failure is
// recorded and ends the run; values applied for earlier documents stay.
func (s *AnalysisService) runAnalysis(ctx context.Context, run analysisRun) {
	log := logger.WithDossier(s.logger, run.dossierID.String())
	start := time.Now()

	fieldKeys, err := s.fieldKeys(ctx)
	if err != nil {
		s.failRun(ctx, run, nil, err)
		return
	}

	applied := 0
	for i := range run.documents {
		doc := &run.documents[i]
		n, err := s.analyseDocument(ctx, run, doc, fieldKeys)
		if err != nil {
			s.failRun(ctx, run, doc, err)
			return
		}
		applied += n
	}

	log.Info("analysis completed",
		zap.Int("documents", len(run.documents)),
		zap.Int("values_applied", applied),
		zap.Duration("duration", time.Since(start)),
	)
	s.events.recordQuietly(ctx, run.dossierID, EventAnalysisCompleted,
		fmt.Sprintf("%d document(en) geanalyseerd, %d velden bijgewerkt", len(run.documents), applied), run.actor)
}

// analyseDocument extracts one document and commits its values before the
// per-document event is recorded
func (s *AnalysisService) analyseDocument(ctx context.Context, run analysisRun, doc *domain.DossierDocument, fieldKeys []string) (int, error) {
	if err := s.documentRepo.SetStatus(ctx, doc.ID, domain.AnalysisStatusProcessing, ""); err != nil {
		return 0, fmt.Errorf("failed to mark document processing: %w", err)
	}

	text, err := s.loader.LoadText(ctx, doc)
	if err != nil {
		return 0, err
	}

	values, err := s.extractor.Extract(ctx, extraction.Request{
		Text:               text,
		FieldKeys:          fieldKeys,
		ContextHints:       run.contextHints,
		CustomInstructions: run.customInstructions,
	})
	if err != nil {
		return 0, err
	}

	applied, err := s.masterData.RecordValues(ctx, run.dossierID, values)
	if err != nil {
		return applied, err
	}

	if err := s.documentRepo.SetStatus(ctx, doc.ID, domain.AnalysisStatusDone, ""); err != nil {
		return applied, fmt.Errorf("failed to mark document done: %w", err)
	}
	s.events.recordQuietly(ctx, run.dossierID, EventDocumentAnalysisComplete,
		fmt.Sprintf("Document '%s' geanalyseerd: %d velden gevonden", doc.Filename, len(values)), run.actor)
	return applied, nil
}

func (s *AnalysisService) failRun(ctx context.Context, run analysisRun, doc *domain.DossierDocument, cause error) {
	description := "Analyse mislukt: " + cause.Error()
	if doc != nil {
		description = fmt.Sprintf("Analyse van '%s' mislukt: %s", doc.Filename, cause.Error())
		if err := s.documentRepo.SetStatus(ctx, doc.ID, domain.AnalysisStatusFailed, cause.Error()); err != nil {
			s.logger.Warn("failed to mark document failed",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err))
		}
	}

	logger.WithDossier(s.logger, run.dossierID.String()).Error("analysis failed", zap.Error(cause))
	s.events.recordQuietly(ctx, run.dossierID, EventAnalysisFailed, description, run.actor)
}

func (s *AnalysisService) fieldKeys(ctx context.Context) ([]string, error) {
	defs, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(defs))
	for _, def := range defs {
		keys = append(keys, def.Key)
	}
	return keys, nil
}

func (s *AnalysisService) selectDocuments(ctx context.Context, dossierID uuid.UUID, ids []uuid.UUID) ([]domain.DossierDocument, error) {
	if len(ids) > 0 {
		unique := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			unique[id] = true
		}
		docs, err := s.documentRepo.ListByIDs(ctx, dossierID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		if len(docs) != len(unique) {
			return nil, ErrDocumentNotFound
		}
		return docs, nil
	}

	all, err := s.documentRepo.ListByDossier(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	docs := make([]domain.DossierDocument, 0, len(all))
	for _, doc := range all {
		if doc.AnalysisStatus == domain.AnalysisStatusPending || doc.AnalysisStatus == domain.AnalysisStatusFailed {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *AnalysisService) requireDossier(ctx context.Context, dossierID uuid.UUID) error {
	exists, err := s.dossierRepo.Exists(ctx, dossierID)
	if err != nil {
		return fmt.Errorf("failed to check dossier: %w", err)
	}
	if !exists {
		return ErrDossierNotFound
	}
	return nil
}

func (s *AnalysisService) markRunning(dossierID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[dossierID] {
		return false
	}
	s.running[dossierID] = true
	return true
}

func (s *AnalysisService) clearRunning(dossierID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, dossierID)
}

func (s *AnalysisService) isRunning(dossierID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[dossierID]
}

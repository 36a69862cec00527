package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dossier timeline titles. Clients poll on these exact strings.
const (
	EventAnalysisStarted          = "AI-analyse gestart"
	EventAnalysisCompleted        = "AI-analyse voltooid"
	EventAnalysisFailed           = "AI-analyse mislukt"
	EventDocumentAnalysisComplete = "Document geanalyseerd"
	EventDocumentUploaded         = "Document geüpload"
	EventDossierCreated           = "Dossier aangemaakt"
	EventAgreementCreated         = "Overeenkomst aangemaakt"
	EventVersionCreated           = "Versie aangemaakt"
	EventVersionDeleted           = "Versie verwijderd"
	EventVersionPromoted          = "Versie actief gemaakt"
	EventVersionRenamed           = "Versie hernoemd"
	EventValueChanged             = "Waarde gewijzigd"
)

// EventService appends to and reads the dossier timeline
type EventService struct {
	eventRepo *repository.EventRepository
	logger    *zap.Logger
}

// NewEventService creates a new event service instance
func NewEventService(eventRepo *repository.EventRepository, logger *zap.Logger) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Record appends an event to the dossier timeline
func (s *EventService) Record(ctx context.Context, dossierID uuid.UUID, title, description, actor string) error {
	event := &domain.DossierEvent{
		DossierID:   dossierID,
		Title:       title,
		Description: description,
		Actor:       actor,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// recordQuietly records an event; failures are logged, never returned
func (s *EventService) recordQuietly(ctx context.Context, dossierID uuid.UUID, title, description, actor string) {
	if s == nil {
		return
	}
	if err := s.Record(ctx, dossierID, title, description, actor); err != nil {
		s.logger.Warn("failed to record dossier event",
			zap.String("dossier_id", dossierID.String()),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

// List returns the newest events of a dossier first
func (s *EventService) List(ctx context.Context, dossierID uuid.UUID, limit int) ([]domain.DossierEvent, error) {
	events, err := s.eventRepo.ListByDossier(ctx, dossierID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// AnalysisRun summarizes the latest analysis run on a dossier timeline
type AnalysisRun struct {
	Started   bool
	Completed bool
	Failed    bool
	StartedAt time.Time
}

// Running reports whether the run has started and reached neither outcome
func (r AnalysisRun) Running() bool {
	return r.Started && !r.Completed && !r.Failed
}

// LatestAnalysisRun reads the outcome of the newest analysis run from the
// events recorded at or after its start event
func (s *EventService) LatestAnalysisRun(ctx context.Context, dossierID uuid.UUID) (AnalysisRun, error) {
	started, err := s.eventRepo.GetLatestByTitle(ctx, dossierID, EventAnalysisStarted)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AnalysisRun{}, nil
	}
	if err != nil {
		return AnalysisRun{}, fmt.Errorf("failed to get analysis start: %w", err)
	}

	run := AnalysisRun{Started: true, StartedAt: started.OccurredAt}
	completed, err := s.eventRepo.CountByTitleSince(ctx, dossierID, EventAnalysisCompleted, started)
	if err != nil {
		return run, fmt.Errorf("failed to count analysis completions: %w", err)
	}
	failed, err := s.eventRepo.CountByTitleSince(ctx, dossierID, EventAnalysisFailed, started)
	if err != nil {
		return run, fmt.Errorf("failed to count analysis failures: %w", err)
	}
	run.Completed = completed > 0
	run.Failed = failed > 0
	return run, nil
}

// HasCompletedAnalysis reports whether the latest analysis run of the dossier
// has reached its completion event
func (s *EventService) HasCompletedAnalysis(ctx context.Context, dossierID uuid.UUID) (bool, error) {
	run, err := s.LatestAnalysisRun(ctx, dossierID)
	if err != nil {
		return false, err
	}
	return run.Completed, nil
}

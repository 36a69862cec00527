package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
)

// DossierService handles business logic for dossiers
type DossierService struct {
	dossierRepo *repository.DossierRepository
	events      *EventService
	logger      *zap.Logger
}

// NewDossierService creates a new dossier service instance
func NewDossierService(dossierRepo *repository.DossierRepository, events *EventService, logger *zap.Logger) *DossierService {
	return &DossierService{
		dossierRepo: dossierRepo,
		events:      events,
		logger:      logger,
	}
}

// Create creates a new dossier
func (s *DossierService) Create(ctx context.Context, req *domain.CreateDossierRequest) (*domain.Dossier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	actor := auth.ActorFromContext(ctx)
	dossier := &domain.Dossier{
		Name:      name,
		Reference: strings.TrimSpace(req.Reference),
		Address:   strings.TrimSpace(req.Address),
		CreatedBy: actor,
	}
	if err := s.dossierRepo.Create(ctx, dossier); err != nil {
		return nil, fmt.Errorf("failed to create dossier: %w", err)
	}

	s.logger.Info("dossier created",
		zap.String("dossier_id", dossier.ID.String()),
		zap.String("reference", dossier.Reference),
	)
	s.events.recordQuietly(ctx, dossier.ID, EventDossierCreated,
		fmt.Sprintf("Dossier '%s' aangemaakt", dossier.Name), actor)

	return dossier, nil
}

// GetByID returns a dossier with its agreements and their versions
func (s *DossierService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dossier, error) {
	dossier, err := s.dossierRepo.GetWithAgreements(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrDossierNotFound, "failed to get dossier")
	}
	return dossier, nil
}

// List returns a page of dossiers
func (s *DossierService) List(ctx context.Context, page, pageSize int, search string, sort repository.SortConfig) ([]domain.Dossier, int64, error) {
	dossiers, total, err := s.dossierRepo.List(ctx, page, pageSize, strings.TrimSpace(search), sort)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dossiers: %w", err)
	}
	return dossiers, total, nil
}

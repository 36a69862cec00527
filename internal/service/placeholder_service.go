package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/logger"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
)

// PlaceholderService handles manual edits and reviews of section and
// placeholder instances
type PlaceholderService struct {
	sectionRepo  *repository.SectionInstanceRepository
	instanceRepo *repository.PlaceholderInstanceRepository
	masterData   *MasterDataService
	events       *EventService
	logger       *zap.Logger
}

// NewPlaceholderService creates a new placeholder service instance
func NewPlaceholderService(
	sectionRepo *repository.SectionInstanceRepository,
	instanceRepo *repository.PlaceholderInstanceRepository,
	masterData *MasterDataService,
	events *EventService,
	logger *zap.Logger,
) *PlaceholderService {
	return &PlaceholderService{
		sectionRepo:  sectionRepo,
		instanceRepo: instanceRepo,
		masterData:   masterData,
		events:       events,
		logger:       logger,
	}
}

// UpdateInstanceValue sets a value typed in by a user. Edits of a master
// instance or of an instance in a current version go through RecordValue and
// reach every current version; edits of a superseded version stay local.
func (s *PlaceholderService) UpdateInstanceValue(ctx context.Context, instanceID uuid.UUID, value string) (*domain.PlaceholderInstance, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		return nil, notFoundOr(err, ErrInstanceNotFound, "failed to get placeholder instance")
	}
	def := instance.PlaceholderDefinition
	if def == nil {
		return nil, fmt.Errorf("placeholder instance %s has no definition", instanceID)
	}

	typed, err := domain.ParseValue(def.ValueType, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	value = typed.Format()

	propagate := instance.IsMaster()
	if !propagate {
		propagate, err = s.sectionRepo.IsInCurrentVersion(ctx, *instance.SectionInstanceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check version: %w", err)
		}
	}

	if propagate {
		if err := s.masterData.RecordValue(ctx, instance.DossierID, def.Key, value); err != nil {
			return nil, err
		}
	} else if err := s.instanceRepo.UpdateValue(ctx, instanceID, value); err != nil {
		return nil, fmt.Errorf("failed to update placeholder value: %w", err)
	}

	logger.WithActor(s.logger, auth.ActorFromContext(ctx)).Info("placeholder value edited",
		zap.String("instance_id", instanceID.String()),
		zap.String("key", def.Key),
		zap.Bool("propagated", propagate),
	)
	s.events.recordQuietly(ctx, instance.DossierID, EventValueChanged,
		fmt.Sprintf("Veld '%s' gewijzigd", labelOrKey(def)), auth.ActorFromContext(ctx))

	return s.instanceRepo.GetByID(ctx, instanceID)
}

// SetPlaceholderValidation records a review decision on a placeholder instance
func (s *PlaceholderService) SetPlaceholderValidation(ctx context.Context, instanceID uuid.UUID, status domain.ValidationStatus) (*domain.PlaceholderInstance, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown validation status %q", ErrInvalidInput, status)
	}
	if _, err := s.instanceRepo.GetByID(ctx, instanceID); err != nil {
		return nil, notFoundOr(err, ErrInstanceNotFound, "failed to get placeholder instance")
	}
	if err := s.instanceRepo.UpdateValidationStatus(ctx, instanceID, status); err != nil {
		return nil, fmt.Errorf("failed to update validation status: %w", err)
	}
	return s.instanceRepo.GetByID(ctx, instanceID)
}

// SetSectionValidation records a review decision on a section instance
func (s *PlaceholderService) SetSectionValidation(ctx context.Context, sectionID uuid.UUID, status domain.ValidationStatus) (*domain.SectionInstance, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown validation status %q", ErrInvalidInput, status)
	}
	if _, err := s.sectionRepo.GetByID(ctx, sectionID); err != nil {
		return nil, notFoundOr(err, ErrInstanceNotFound, "failed to get section instance")
	}
	if err := s.sectionRepo.UpdateValidationStatus(ctx, sectionID, status); err != nil {
		return nil, fmt.Errorf("failed to update validation status: %w", err)
	}
	return s.sectionRepo.GetWithPlaceholders(ctx, sectionID)
}

// UpdateSectionContent replaces the text of one section instance. The template
// section is not affected.
func (s *PlaceholderService) UpdateSectionContent(ctx context.Context, sectionID uuid.UUID, content string) (*domain.SectionInstance, error) {
	if _, err := s.sectionRepo.GetByID(ctx, sectionID); err != nil {
		return nil, notFoundOr(err, ErrInstanceNotFound, "failed to get section instance")
	}
	if err := s.sectionRepo.UpdateContent(ctx, sectionID, content); err != nil {
		return nil, fmt.Errorf("failed to update section content: %w", err)
	}
	return s.sectionRepo.GetWithPlaceholders(ctx, sectionID)
}

// GetSection returns a section instance with its placeholders
func (s *PlaceholderService) GetSection(ctx context.Context, sectionID uuid.UUID) (*domain.SectionInstance, error) {
	section, err := s.sectionRepo.GetWithPlaceholders(ctx, sectionID)
	if err != nil {
		return nil, notFoundOr(err, ErrInstanceNotFound, "failed to get section instance")
	}
	return section, nil
}

// RenderSection substitutes the section's [[key]] markers with its placeholder
// values, falling back to the dossier's master values for keys the section
// holds no value for
func (s *PlaceholderService) RenderSection(ctx context.Context, sectionID uuid.UUID) (string, error) {
	section, err := s.sectionRepo.GetWithPlaceholders(ctx, sectionID)
	if err != nil {
		return "", notFoundOr(err, ErrInstanceNotFound, "failed to get section instance")
	}
	dossierID, err := s.sectionRepo.DossierIDOf(ctx, sectionID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve dossier: %w", err)
	}
	values, err := s.masterData.MasterValues(ctx, dossierID)
	if err != nil {
		return "", err
	}
	return domain.RenderContent(section.Content, section.Values(values)), nil
}

func labelOrKey(def *domain.PlaceholderDefinition) string {
	if def.Label != "" {
		return def.Label
	}
	return def.Key
}

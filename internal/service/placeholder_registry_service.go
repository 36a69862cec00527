package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlaceholderRegistryService owns the catalog of placeholder definitions.
// Definitions are created lazily the first time a key is referenced.
type PlaceholderRegistryService struct {
	definitionRepo *repository.PlaceholderDefinitionRepository
	logger         *zap.Logger
}

// NewPlaceholderRegistryService creates a new registry service instance
func NewPlaceholderRegistryService(definitionRepo *repository.PlaceholderDefinitionRepository, logger *zap.Logger) *PlaceholderRegistryService {
	return &PlaceholderRegistryService{
		definitionRepo: definitionRepo,
		logger:         logger,
	}
}

// ResolveOrCreate returns the definition for key, creating it when absent.
// valueType defaults to text and label to the key itself. An existing
// definition is returned unchanged even when valueType or label differ.
func (s *PlaceholderRegistryService) ResolveOrCreate(ctx context.Context, key string, valueType domain.ValueType, label string) (*domain.PlaceholderDefinition, error) {
	return s.resolveOrCreate(ctx, s.definitionRepo, key, valueType, label)
}

func (s *PlaceholderRegistryService) resolveOrCreate(ctx context.Context, repo *repository.PlaceholderDefinitionRepository, key string, valueType domain.ValueType, label string) (*domain.PlaceholderDefinition, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: placeholder key is required", ErrInvalidInput)
	}
	if valueType == "" {
		valueType = domain.ValueTypeText
	}
	if !valueType.IsValid() {
		return nil, fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, valueType)
	}
	if label == "" {
		label = key
	}

	def, err := repo.FindOrCreate(ctx, &domain.PlaceholderDefinition{
		Key:       key,
		ValueType: valueType,
		Label:     label,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve placeholder definition %q: %w", key, err)
	}
	return def, nil
}

// Lookup returns the definition for key without creating it
func (s *PlaceholderRegistryService) Lookup(ctx context.Context, key string) (*domain.PlaceholderDefinition, error) {
	def, err := s.definitionRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, notFoundOr(err, ErrDefinitionNotFound, "failed to get placeholder definition")
	}
	return def, nil
}

// UpdateDefinition corrects the label and/or value type of a definition.
// The key is immutable.
func (s *PlaceholderRegistryService) UpdateDefinition(ctx context.Context, key string, label *string, valueType *domain.ValueType) (*domain.PlaceholderDefinition, error) {
	def, err := s.definitionRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, notFoundOr(err, ErrDefinitionNotFound, "failed to get placeholder definition")
	}

	updates := map[string]interface{}{}
	if label != nil {
		updates["label"] = *label
		def.Label = *label
	}
	if valueType != nil {
		if !valueType.IsValid() {
			return nil, fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, *valueType)
		}
		updates["value_type"] = *valueType
		def.ValueType = *valueType
	}

	if err := s.definitionRepo.UpdateLabelAndType(ctx, def.ID, updates); err != nil {
		return nil, fmt.Errorf("failed to update placeholder definition: %w", err)
	}

	s.logger.Info("placeholder definition updated",
		zap.String("key", def.Key),
		zap.String("label", def.Label),
		zap.String("value_type", string(def.ValueType)),
	)
	return def, nil
}

// List returns the whole catalog ordered by key
func (s *PlaceholderRegistryService) List(ctx context.Context) ([]domain.PlaceholderDefinition, error) {
	defs, err := s.definitionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list placeholder definitions: %w", err)
	}
	return defs, nil
}

// lookupOptional returns nil without error when key has no definition
func lookupOptional(ctx context.Context, repo *repository.PlaceholderDefinitionRepository, key string) (*domain.PlaceholderDefinition, error) {
	def, err := repo.GetByKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get placeholder definition %q: %w", key, err)
	}
	return def, nil
}

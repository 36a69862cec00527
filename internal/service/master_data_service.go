package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MasterDataService keeps a dossier's placeholder values in sync. A value lands
// on the dossier-wide master instance and is fanned out into every current
// version of every agreement in the dossier. Non-current versions keep the
// values they had when they were superseded.
type MasterDataService struct {
	db             *gorm.DB
	dossierRepo    *repository.DossierRepository
	definitionRepo *repository.PlaceholderDefinitionRepository
	instanceRepo   *repository.PlaceholderInstanceRepository
	logger         *zap.Logger
}

// NewMasterDataService creates a new master data service instance
func NewMasterDataService(
	db *gorm.DB,
	dossierRepo *repository.DossierRepository,
	definitionRepo *repository.PlaceholderDefinitionRepository,
	instanceRepo *repository.PlaceholderInstanceRepository,
	logger *zap.Logger,
) *MasterDataService {
	return &MasterDataService{
		db:             db,
		dossierRepo:    dossierRepo,
		definitionRepo: definitionRepo,
		instanceRepo:   instanceRepo,
		logger:         logger,
	}
}

// RecordValue stores value for key in the dossier. Keys without a definition
// are skipped silently. Values of address keys also update the dossier's
// address summary, unless empty.
func (s *MasterDataService) RecordValue(ctx context.Context, dossierID uuid.UUID, key, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.recordValueTx(ctx, tx, dossierID, key, value)
	})
}

func (s *MasterDataService) recordValueTx(ctx context.Context, tx *gorm.DB, dossierID uuid.UUID, key, value string) error {
	dossierRepo := s.dossierRepo.WithTx(tx)
	definitionRepo := s.definitionRepo.WithTx(tx)
	instanceRepo := s.instanceRepo.WithTx(tx)

	exists, err := dossierRepo.Exists(ctx, dossierID)
	if err != nil {
		return fmt.Errorf("failed to check dossier: %w", err)
	}
	if !exists {
		return ErrDossierNotFound
	}

	var def *domain.PlaceholderDefinition
	master, err := instanceRepo.GetMasterByKey(ctx, dossierID, key)
	switch {
	case err == nil:
		if err := instanceRepo.UpdateValue(ctx, master.ID, value); err != nil {
			return fmt.Errorf("failed to update master value: %w", err)
		}
		def = master.PlaceholderDefinition
	case errors.Is(err, gorm.ErrRecordNotFound):
		def, err = lookupOptional(ctx, definitionRepo, key)
		if err != nil {
			return err
		}
		if def == nil {
			s.logger.Debug("skipping value for unknown placeholder key",
				zap.String("dossier_id", dossierID.String()),
				zap.String("key", key),
			)
			return nil
		}
		if err := instanceRepo.UpsertMaster(ctx, &domain.PlaceholderInstance{
			DossierID:               dossierID,
			PlaceholderDefinitionID: def.ID,
			Value:                   value,
			ValidationStatus:        domain.ValidationStatusPending,
		}); err != nil {
			return fmt.Errorf("failed to store master value: %w", err)
		}
	default:
		return fmt.Errorf("failed to get master value: %w", err)
	}

	if def == nil {
		if def, err = definitionRepo.GetByID(ctx, master.PlaceholderDefinitionID); err != nil {
			return fmt.Errorf("failed to get placeholder definition: %w", err)
		}
	}

	typed, err := domain.ParseValue(def.ValueType, value)
	if err != nil {
		s.logger.Warn("value does not match declared type, storing as given",
			zap.String("dossier_id", dossierID.String()),
			zap.String("key", key),
			zap.String("value_type", string(def.ValueType)),
			zap.Error(err),
		)
	}

	updated, err := instanceRepo.FanOutValue(ctx, dossierID, def.ID, value)
	if err != nil {
		return fmt.Errorf("failed to propagate value: %w", err)
	}

	if domain.IsAddressField(key) && !typed.IsEmpty() {
		if err := dossierRepo.UpdateAddress(ctx, dossierID, value); err != nil {
			return fmt.Errorf("failed to update dossier address: %w", err)
		}
	}

	s.logger.Debug("value recorded",
		zap.String("dossier_id", dossierID.String()),
		zap.String("key", key),
		zap.Int64("instances_updated", updated),
	)
	return nil
}

// RecordValues applies a whole extraction result. Each field commits in its own
// transaction, in key order; the first failure stops the batch and earlier
// fields stay committed. It returns the number of fields applied.
func (s *MasterDataService) RecordValues(ctx context.Context, dossierID uuid.UUID, values map[string]string) (int, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	applied := 0
	for _, key := range keys {
		if err := s.RecordValue(ctx, dossierID, key, values[key]); err != nil {
			return applied, fmt.Errorf("failed to record %q: %w", key, err)
		}
		applied++
	}
	return applied, nil
}

// SeedValue returns the value a new placeholder instance of key should start
// with: the non-empty master value, else the most recently created non-empty
// instance anywhere in the dossier, else "".
func (s *MasterDataService) SeedValue(ctx context.Context, dossierID uuid.UUID, key string) (string, error) {
	return s.seedValueTx(ctx, s.db, dossierID, key)
}

func (s *MasterDataService) seedValueTx(ctx context.Context, tx *gorm.DB, dossierID uuid.UUID, key string) (string, error) {
	instanceRepo := s.instanceRepo.WithTx(tx)

	master, err := instanceRepo.GetMasterByKey(ctx, dossierID, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to get master value: %w", err)
	}
	if master != nil && master.Value != "" {
		return master.Value, nil
	}

	def, err := lookupOptional(ctx, s.definitionRepo.WithTx(tx), key)
	if err != nil || def == nil {
		return "", err
	}

	value, err := instanceRepo.MostRecentNonEmptyValue(ctx, dossierID, def.ID)
	if err != nil {
		return "", fmt.Errorf("failed to find seed value: %w", err)
	}
	return value, nil
}

// MasterValues returns the dossier's master values keyed by placeholder key
func (s *MasterDataService) MasterValues(ctx context.Context, dossierID uuid.UUID) (map[string]string, error) {
	masters, err := s.instanceRepo.ListMasters(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list master values: %w", err)
	}
	values := make(map[string]string, len(masters))
	for _, m := range masters {
		if m.PlaceholderDefinition != nil {
			values[m.PlaceholderDefinition.Key] = m.Value
		}
	}
	return values, nil
}

// ListMasters returns the dossier-wide instances with their definitions
func (s *MasterDataService) ListMasters(ctx context.Context, dossierID uuid.UUID) ([]domain.PlaceholderInstance, error) {
	exists, err := s.dossierRepo.Exists(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dossier: %w", err)
	}
	if !exists {
		return nil, ErrDossierNotFound
	}
	masters, err := s.instanceRepo.ListMasters(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list master values: %w", err)
	}
	return masters, nil
}

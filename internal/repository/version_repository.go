package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

type VersionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *VersionRepository) WithTx(tx *gorm.DB) *VersionRepository {
	return &VersionRepository{db: tx}
}

func (r *VersionRepository) Create(ctx context.Context, version *domain.Version) error {
	return r.db.WithContext(ctx).Omit("Sections").Create(version).Error
}

func (r *VersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
	var version domain.Version
	err := r.db.WithContext(ctx).First(&version, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetWithContent loads a version with its section instances and their placeholders
func (r *VersionRepository) GetWithContent(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
	var version domain.Version
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, created_at ASC") }).
		Preload("Sections.Placeholders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Sections.Placeholders.PlaceholderDefinition").
		First(&version, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// ListByAgreement returns versions in lineage order
func (r *VersionRepository) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]domain.Version, error) {
	var versions []domain.Version
	err := r.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).
		Order("major ASC, minor ASC").
		Find(&versions).Error
	return versions, err
}

// GetLatest returns the highest (major, minor) version of an agreement
func (r *VersionRepository) GetLatest(ctx context.Context, agreementID uuid.UUID) (*domain.Version, error) {
	var version domain.Version
	err := r.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).
		Order("major DESC, minor DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetMostRecentlyCreated returns the newest remaining version of an agreement
func (r *VersionRepository) GetMostRecentlyCreated(ctx context.Context, agreementID uuid.UUID) (*domain.Version, error) {
	var version domain.Version
	err := r.db.WithContext(ctx).
		Where("agreement_id = ?", agreementID).
		Order("created_at DESC, major DESC, minor DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *VersionRepository) CountByAgreement(ctx context.Context, agreementID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Version{}).
		Where("agreement_id = ?", agreementID).
		Count(&count).Error
	return count, err
}

// SetCurrent clears the current flag on every sibling and sets it on versionID
func (r *VersionRepository) SetCurrent(ctx context.Context, agreementID, versionID uuid.UUID) error {
	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).
		Model(&domain.Version{}).
		Where("agreement_id = ? AND id <> ?", agreementID, versionID).
		Updates(map[string]interface{}{"is_current": false, "updated_at": now}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&domain.Version{}).
		Where("id = ?", versionID).
		Updates(map[string]interface{}{"is_current": true, "updated_at": now}).Error
}

// ClearCurrent clears the current flag on every version of the agreement
func (r *VersionRepository) ClearCurrent(ctx context.Context, agreementID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.Version{}).
		Where("agreement_id = ?", agreementID).
		Update("is_current", false).Error
}

// UpdateLabel overwrites the display version number
func (r *VersionRepository) UpdateLabel(ctx context.Context, id uuid.UUID, label string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Version{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"version_number": label, "updated_at": time.Now().UTC()}).Error
}

// DeleteCascade removes a version with its section instances and their
// placeholder instances. Master instances are never touched.
func (r *VersionRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	sectionIDs := r.db.Model(&domain.SectionInstance{}).Select("id").Where("version_id = ?", id)

	if err := r.db.WithContext(ctx).
		Where("section_instance_id IN (?)", sectionIDs).
		Delete(&domain.PlaceholderInstance{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("version_id = ?", id).
		Delete(&domain.SectionInstance{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&domain.Version{}, "id = ?", id).Error
}

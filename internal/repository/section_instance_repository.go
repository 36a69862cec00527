package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

type SectionInstanceRepository struct {
	db *gorm.DB
}

func NewSectionInstanceRepository(db *gorm.DB) *SectionInstanceRepository {
	return &SectionInstanceRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *SectionInstanceRepository) WithTx(tx *gorm.DB) *SectionInstanceRepository {
	return &SectionInstanceRepository{db: tx}
}

func (r *SectionInstanceRepository) Create(ctx context.Context, section *domain.SectionInstance) error {
	return r.db.WithContext(ctx).Omit("Placeholders").Create(section).Error
}

func (r *SectionInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SectionInstance, error) {
	var section domain.SectionInstance
	err := r.db.WithContext(ctx).First(&section, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// GetWithPlaceholders loads a section instance with its placeholder instances and definitions
func (r *SectionInstanceRepository) GetWithPlaceholders(ctx context.Context, id uuid.UUID) (*domain.SectionInstance, error) {
	var section domain.SectionInstance
	err := r.db.WithContext(ctx).
		Preload("Placeholders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Placeholders.PlaceholderDefinition").
		First(&section, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// ListByVersion returns a version's section instances with placeholders, in order
func (r *SectionInstanceRepository) ListByVersion(ctx context.Context, versionID uuid.UUID) ([]domain.SectionInstance, error) {
	var sections []domain.SectionInstance
	err := r.db.WithContext(ctx).
		Preload("Placeholders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("version_id = ?", versionID).
		Order("sort_order ASC, created_at ASC").
		Find(&sections).Error
	return sections, err
}

func (r *SectionInstanceRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	return r.db.WithContext(ctx).
		Model(&domain.SectionInstance{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "updated_at": time.Now().UTC()}).Error
}

func (r *SectionInstanceRepository) UpdateValidationStatus(ctx context.Context, id uuid.UUID, status domain.ValidationStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.SectionInstance{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"validation_status": status, "updated_at": time.Now().UTC()}).Error
}

// IsInCurrentVersion reports whether the section instance belongs to a current version
func (r *SectionInstanceRepository) IsInCurrentVersion(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("section_instances AS si").
		Joins("JOIN versions v ON v.id = si.version_id").
		Where("si.id = ? AND v.is_current = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

// DossierIDOf resolves the dossier owning a section instance
func (r *SectionInstanceRepository) DossierIDOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var row struct {
		DossierID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Table("section_instances AS si").
		Select("a.dossier_id AS dossier_id").
		Joins("JOIN versions v ON v.id = si.version_id").
		Joins("JOIN agreements a ON a.id = v.agreement_id").
		Where("si.id = ?", id).
		Take(&row).Error
	return row.DossierID, err
}

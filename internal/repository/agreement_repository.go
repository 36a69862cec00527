package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

type AgreementRepository struct {
	db *gorm.DB
}

func NewAgreementRepository(db *gorm.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *AgreementRepository) WithTx(tx *gorm.DB) *AgreementRepository {
	return &AgreementRepository{db: tx}
}

func (r *AgreementRepository) Create(ctx context.Context, agreement *domain.Agreement) error {
	return r.db.WithContext(ctx).Omit("Versions").Create(agreement).Error
}

func (r *AgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agreement, error) {
	var agreement domain.Agreement
	err := r.db.WithContext(ctx).First(&agreement, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

// GetWithVersions loads an agreement with its versions in lineage order
func (r *AgreementRepository) GetWithVersions(ctx context.Context, id uuid.UUID) (*domain.Agreement, error) {
	var agreement domain.Agreement
	err := r.db.WithContext(ctx).
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("major ASC, minor ASC") }).
		First(&agreement, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *AgreementRepository) ListByDossier(ctx context.Context, dossierID uuid.UUID) ([]domain.Agreement, error) {
	var agreements []domain.Agreement
	err := r.db.WithContext(ctx).
		Where("dossier_id = ?", dossierID).
		Order("agreement_index ASC").
		Find(&agreements).Error
	return agreements, err
}

// CountByDossier counts the agreements ever kept for a dossier
func (r *AgreementRepository) CountByDossier(ctx context.Context, dossierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Agreement{}).
		Where("dossier_id = ?", dossierID).
		Count(&count).Error
	return count, err
}

func (r *AgreementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Agreement{}, "id = ?", id).Error
}

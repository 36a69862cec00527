package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

type DossierRepository struct {
	db *gorm.DB
}

func NewDossierRepository(db *gorm.DB) *DossierRepository {
	return &DossierRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *DossierRepository) WithTx(tx *gorm.DB) *DossierRepository {
	return &DossierRepository{db: tx}
}

func (r *DossierRepository) Create(ctx context.Context, dossier *domain.Dossier) error {
	return r.db.WithContext(ctx).Omit("Agreements").Create(dossier).Error
}

func (r *DossierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dossier, error) {
	var dossier domain.Dossier
	err := r.db.WithContext(ctx).First(&dossier, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dossier, nil
}

// GetWithAgreements loads a dossier with its agreements and their versions
func (r *DossierRepository) GetWithAgreements(ctx context.Context, id uuid.UUID) (*domain.Dossier, error) {
	var dossier domain.Dossier
	err := r.db.WithContext(ctx).
		Preload("Agreements", func(db *gorm.DB) *gorm.DB { return db.Order("agreement_index ASC") }).
		Preload("Agreements.Versions", func(db *gorm.DB) *gorm.DB { return db.Order("major ASC, minor ASC") }).
		First(&dossier, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dossier, nil
}

// Exists reports whether a dossier row exists
func (r *DossierRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Dossier{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

var dossierSortFields = map[string]string{
	"name":      "name",
	"reference": "reference",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// List returns a page of dossiers, optionally filtered by a name or reference search
func (r *DossierRepository) List(ctx context.Context, page, pageSize int, search string, sort SortConfig) ([]domain.Dossier, int64, error) {
	var dossiers []domain.Dossier
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Dossier{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(reference) LIKE LOWER(?)", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := Paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, dossierSortFields, "updated_at")).
		Find(&dossiers).Error

	return dossiers, total, err
}

// UpdateAddress sets the dossier summary address
func (r *DossierRepository) UpdateAddress(ctx context.Context, id uuid.UUID, address string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Dossier{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"address":    address,
			"updated_at": time.Now().UTC(),
		}).Error
}

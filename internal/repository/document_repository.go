package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles uploaded dossier documents
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.DossierDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DossierDocument, error) {
	var doc domain.DossierDocument
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByDossier(ctx context.Context, dossierID uuid.UUID) ([]domain.DossierDocument, error) {
	var docs []domain.DossierDocument
	err := r.db.WithContext(ctx).
		Where("dossier_id = ?", dossierID).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// ListByIDs returns the dossier's documents among ids, in upload order
func (r *DocumentRepository) ListByIDs(ctx context.Context, dossierID uuid.UUID, ids []uuid.UUID) ([]domain.DossierDocument, error) {
	var docs []domain.DossierDocument
	if len(ids) == 0 {
		return docs, nil
	}
	err := r.db.WithContext(ctx).
		Where("dossier_id = ? AND id IN ?", dossierID, ids).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// SetStatus moves a document to a new analysis status with an optional error message
func (r *DocumentRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.AnalysisStatus, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&domain.DossierDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"analysis_status": status,
			"analysis_error":  errMsg,
			"updated_at":      time.Now().UTC(),
		}).Error
}

// CountByStatus counts a dossier's documents in the given status
func (r *DocumentRepository) CountByStatus(ctx context.Context, dossierID uuid.UUID, status domain.AnalysisStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.DossierDocument{}).
		Where("dossier_id = ? AND analysis_status = ?", dossierID, status).
		Count(&count).Error
	return count, err
}

// FailStuck marks documents processing since before cutoff as failed and
// returns how many rows changed.
func (r *DocumentRepository) FailStuck(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.DossierDocument{}).
		Where("analysis_status = ? AND updated_at < ?", domain.AnalysisStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"analysis_status": domain.AnalysisStatusFailed,
			"analysis_error":  reason,
			"updated_at":      time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

// EventRepository is the append-only dossier timeline
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.DossierEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByDossier returns the newest events first
func (r *EventRepository) ListByDossier(ctx context.Context, dossierID uuid.UUID, limit int) ([]domain.DossierEvent, error) {
	var events []domain.DossierEvent
	query := r.db.WithContext(ctx).
		Where("dossier_id = ?", dossierID).
		Order("occurred_at DESC, created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

// GetLatestByTitle returns the newest event of the dossier with the given title
func (r *EventRepository) GetLatestByTitle(ctx context.Context, dossierID uuid.UUID, title string) (*domain.DossierEvent, error) {
	var event domain.DossierEvent
	err := r.db.WithContext(ctx).
		Where("dossier_id = ? AND title = ?", dossierID, title).
		Order("occurred_at DESC, created_at DESC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CountByTitleSince counts events of a title at or after the given event's time
func (r *EventRepository) CountByTitleSince(ctx context.Context, dossierID uuid.UUID, title string, since *domain.DossierEvent) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&domain.DossierEvent{}).
		Where("dossier_id = ? AND title = ?", dossierID, title)
	if since != nil {
		query = query.Where("occurred_at >= ?", since.OccurredAt)
	}
	err := query.Count(&count).Error
	return count, err
}

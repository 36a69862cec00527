package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaceholderDefinitionRepository handles the field-key catalog
type PlaceholderDefinitionRepository struct {
	db *gorm.DB
}

// NewPlaceholderDefinitionRepository creates a new PlaceholderDefinitionRepository
func NewPlaceholderDefinitionRepository(db *gorm.DB) *PlaceholderDefinitionRepository {
	return &PlaceholderDefinitionRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PlaceholderDefinitionRepository) WithTx(tx *gorm.DB) *PlaceholderDefinitionRepository {
	return &PlaceholderDefinitionRepository{db: tx}
}

func (r *PlaceholderDefinitionRepository) GetByKey(ctx context.Context, key string) (*domain.PlaceholderDefinition, error) {
	var def domain.PlaceholderDefinition
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&def).Error
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *PlaceholderDefinitionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlaceholderDefinition, error) {
	var def domain.PlaceholderDefinition
	err := r.db.WithContext(ctx).First(&def, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// FindOrCreate returns the definition for def.Key, inserting def when no row exists.
// The insert is ON CONFLICT DO NOTHING so concurrent callers converge on one row;
// a duplicate-key error from drivers that ignore the clause is treated the same way.
func (r *PlaceholderDefinitionRepository) FindOrCreate(ctx context.Context, def *domain.PlaceholderDefinition) (*domain.PlaceholderDefinition, error) {
	existing, err := r.GetByKey(ctx, def.Key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(def).Error
	if err != nil && !IsDuplicateKeyError(err) {
		return nil, err
	}

	return r.GetByKey(ctx, def.Key)
}

func (r *PlaceholderDefinitionRepository) List(ctx context.Context) ([]domain.PlaceholderDefinition, error) {
	var defs []domain.PlaceholderDefinition
	err := r.db.WithContext(ctx).Order("key ASC").Find(&defs).Error
	return defs, err
}

// UpdateLabelAndType corrects the mutable columns of a definition; the key never changes
func (r *PlaceholderDefinitionRepository) UpdateLabelAndType(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.PlaceholderDefinition{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// IsDuplicateKeyError reports whether err is a unique-constraint violation on
// PostgreSQL (SQLSTATE 23505) or SQLite.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

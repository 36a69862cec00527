package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlaceholderInstanceRepository struct {
	db *gorm.DB
}

func NewPlaceholderInstanceRepository(db *gorm.DB) *PlaceholderInstanceRepository {
	return &PlaceholderInstanceRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PlaceholderInstanceRepository) WithTx(tx *gorm.DB) *PlaceholderInstanceRepository {
	return &PlaceholderInstanceRepository{db: tx}
}

// CreateBatch inserts several instances in one statement
func (r *PlaceholderInstanceRepository) CreateBatch(ctx context.Context, instances []domain.PlaceholderInstance) error {
	if len(instances) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("PlaceholderDefinition").Create(&instances).Error
}

func (r *PlaceholderInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlaceholderInstance, error) {
	var instance domain.PlaceholderInstance
	err := r.db.WithContext(ctx).
		Preload("PlaceholderDefinition").
		First(&instance, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// GetMasterByKey returns the dossier-scoped instance for a definition key
func (r *PlaceholderInstanceRepository) GetMasterByKey(ctx context.Context, dossierID uuid.UUID, key string) (*domain.PlaceholderInstance, error) {
	var instance domain.PlaceholderInstance
	definitionIDs := r.db.Model(&domain.PlaceholderDefinition{}).Select("id").Where("key = ?", key)
	err := r.db.WithContext(ctx).
		Preload("PlaceholderDefinition").
		Where("dossier_id = ? AND section_instance_id IS NULL", dossierID).
		Where("placeholder_definition_id IN (?)", definitionIDs).
		First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListMasters returns every dossier-scoped instance of a dossier
func (r *PlaceholderInstanceRepository) ListMasters(ctx context.Context, dossierID uuid.UUID) ([]domain.PlaceholderInstance, error) {
	var instances []domain.PlaceholderInstance
	err := r.db.WithContext(ctx).
		Preload("PlaceholderDefinition").
		Where("dossier_id = ? AND section_instance_id IS NULL", dossierID).
		Order("created_at ASC").
		Find(&instances).Error
	return instances, err
}

func (r *PlaceholderInstanceRepository) UpdateValue(ctx context.Context, id uuid.UUID, value string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PlaceholderInstance{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"value": value, "updated_at": time.Now().UTC()}).Error
}

// UpsertMaster inserts the dossier-scoped instance of a definition, or
// overwrites the value of the one that already exists
func (r *PlaceholderInstanceRepository) UpsertMaster(ctx context.Context, instance *domain.PlaceholderInstance) error {
	return r.db.WithContext(ctx).
		Omit("PlaceholderDefinition").
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "dossier_id"}, {Name: "placeholder_definition_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "section_instance_id IS NULL"}}},
			DoUpdates:   clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(instance).Error
}

func (r *PlaceholderInstanceRepository) UpdateValidationStatus(ctx context.Context, id uuid.UUID, status domain.ValidationStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.PlaceholderInstance{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"validation_status": status, "updated_at": time.Now().UTC()}).Error
}

// FanOutValue writes value into every section-scoped instance of the definition
// whose section belongs to a current version of any agreement in the dossier.
// It returns the number of rows updated.
func (r *PlaceholderInstanceRepository) FanOutValue(ctx context.Context, dossierID, definitionID uuid.UUID, value string) (int64, error) {
	currentSections := r.db.
		Table("section_instances AS si").
		Select("si.id").
		Joins("JOIN versions v ON v.id = si.version_id").
		Joins("JOIN agreements a ON a.id = v.agreement_id").
		Where("a.dossier_id = ? AND v.is_current = ?", dossierID, true)

	result := r.db.WithContext(ctx).
		Model(&domain.PlaceholderInstance{}).
		Where("placeholder_definition_id = ?", definitionID).
		Where("section_instance_id IN (?)", currentSections).
		Updates(map[string]interface{}{"value": value, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

// MostRecentNonEmptyValue returns the newest non-empty value of the definition
// anywhere in the dossier, or "" when there is none.
func (r *PlaceholderInstanceRepository) MostRecentNonEmptyValue(ctx context.Context, dossierID, definitionID uuid.UUID) (string, error) {
	var instances []domain.PlaceholderInstance
	err := r.db.WithContext(ctx).
		Select("value").
		Where("dossier_id = ? AND placeholder_definition_id = ? AND value <> ''", dossierID, definitionID).
		Order("created_at DESC").
		Limit(1).
		Find(&instances).Error
	if err != nil || len(instances) == 0 {
		return "", err
	}
	return instances[0].Value, nil
}

// ListBySectionInstance returns the placeholders of one section instance
func (r *PlaceholderInstanceRepository) ListBySectionInstance(ctx context.Context, sectionInstanceID uuid.UUID) ([]domain.PlaceholderInstance, error) {
	var instances []domain.PlaceholderInstance
	err := r.db.WithContext(ctx).
		Preload("PlaceholderDefinition").
		Where("section_instance_id = ?", sectionInstanceID).
		Order("created_at ASC").
		Find(&instances).Error
	return instances, err
}

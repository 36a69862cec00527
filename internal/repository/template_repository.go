package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"gorm.io/gorm"
)

// TemplateRepository handles templates, their sections and section placeholder links
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *TemplateRepository) WithTx(tx *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: tx}
}

func (r *TemplateRepository) Create(ctx context.Context, template *domain.Template) error {
	return r.db.WithContext(ctx).Omit("Sections").Create(template).Error
}

func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	var template domain.Template
	err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]domain.Template, error) {
	var templates []domain.Template
	err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error
	return templates, err
}

// Delete removes a template. Agreements created from it keep their section
// copies and lose the template reference.
func (r *TemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.Agreement{}).
		Where("template_id = ?", id).
		Update("template_id", nil).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&domain.Template{}, "id = ?", id).Error
}

// ListSections returns the template's sections ordered by position, links and
// their definitions preloaded. Retired sections are excluded unless includeRetired.
func (r *TemplateRepository) ListSections(ctx context.Context, templateID uuid.UUID, includeRetired bool) ([]domain.TemplateSection, error) {
	var sections []domain.TemplateSection
	query := r.db.WithContext(ctx).
		Preload("Links", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Links.PlaceholderDefinition").
		Where("template_id = ?", templateID)
	if !includeRetired {
		query = query.Where("retired_at IS NULL")
	}
	err := query.Order("sort_order ASC").Order("created_at ASC").Find(&sections).Error
	return sections, err
}

func (r *TemplateRepository) GetSection(ctx context.Context, id uuid.UUID) (*domain.TemplateSection, error) {
	var section domain.TemplateSection
	err := r.db.WithContext(ctx).
		Preload("Links.PlaceholderDefinition").
		First(&section, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *TemplateRepository) CreateSection(ctx context.Context, section *domain.TemplateSection) error {
	return r.db.WithContext(ctx).Omit("Links").Create(section).Error
}

// UpdateSection writes position, title and content, and clears any retired flag
func (r *TemplateRepository) UpdateSection(ctx context.Context, section *domain.TemplateSection) error {
	return r.db.WithContext(ctx).
		Model(&domain.TemplateSection{}).
		Where("id = ?", section.ID).
		Updates(map[string]interface{}{
			"sort_order":       section.Order,
			"title":            section.Title,
			"content_template": section.ContentTemplate,
			"retired_at":       nil,
			"updated_at":       time.Now().UTC(),
		}).Error
}

// CountSectionReferences counts section instances copied from the template section
func (r *TemplateRepository) CountSectionReferences(ctx context.Context, sectionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.SectionInstance{}).
		Where("template_section_id = ?", sectionID).
		Count(&count).Error
	return count, err
}

// DeleteSection removes a template section together with its links
func (r *TemplateRepository) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("template_section_id = ?", sectionID).
		Delete(&domain.SectionPlaceholderLink{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&domain.TemplateSection{}, "id = ?", sectionID).Error
}

// RetireSection flags a section whose delete was blocked by live references
func (r *TemplateRepository) RetireSection(ctx context.Context, sectionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.TemplateSection{}).
		Where("id = ? AND retired_at IS NULL", sectionID).
		Update("retired_at", time.Now().UTC()).Error
}

// ListUnreferencedRetiredSections returns retired sections no section instance points at
func (r *TemplateRepository) ListUnreferencedRetiredSections(ctx context.Context) ([]domain.TemplateSection, error) {
	var sections []domain.TemplateSection
	err := r.db.WithContext(ctx).
		Where("retired_at IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM section_instances si WHERE si.template_section_id = template_sections.id)").
		Find(&sections).Error
	return sections, err
}

// ReplaceLinks clears every link of the section and inserts the given ones
func (r *TemplateRepository) ReplaceLinks(ctx context.Context, sectionID uuid.UUID, links []domain.SectionPlaceholderLink) error {
	if err := r.db.WithContext(ctx).
		Where("template_section_id = ?", sectionID).
		Delete(&domain.SectionPlaceholderLink{}).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].TemplateSectionID = sectionID
	}
	return r.db.WithContext(ctx).Omit("PlaceholderDefinition").Create(&links).Error
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TemplateService manages templates and their versionless sections
type TemplateService struct {
	db             *gorm.DB
	templateRepo   *repository.TemplateRepository
	definitionRepo *repository.PlaceholderDefinitionRepository
	registry       *PlaceholderRegistryService
	logger         *zap.Logger
}

// NewTemplateService creates a new template service instance
func NewTemplateService(
	db *gorm.DB,
	templateRepo *repository.TemplateRepository,
	definitionRepo *repository.PlaceholderDefinitionRepository,
	registry *PlaceholderRegistryService,
	logger *zap.Logger,
) *TemplateService {
	return &TemplateService{
		db:             db,
		templateRepo:   templateRepo,
		definitionRepo: definitionRepo,
		registry:       registry,
		logger:         logger,
	}
}

// PlaceholderRef is one key a template section refers to, with the
// definition when it is already linked
type PlaceholderRef struct {
	Key        string
	Label      string
	Definition *domain.PlaceholderDefinition
}

// SectionPlaceholderRefs returns the keys of a section: its links first, then
// any [[key]] marker in the content that has no link
func SectionPlaceholderRefs(section *domain.TemplateSection) []PlaceholderRef {
	refs := make([]PlaceholderRef, 0, len(section.Links))
	seen := map[string]bool{}
	for _, link := range section.Links {
		if link.PlaceholderDefinition == nil || seen[link.PlaceholderDefinition.Key] {
			continue
		}
		seen[link.PlaceholderDefinition.Key] = true
		refs = append(refs, PlaceholderRef{
			Key:        link.PlaceholderDefinition.Key,
			Label:      link.Label,
			Definition: link.PlaceholderDefinition,
		})
	}
	for _, key := range domain.ExtractMarkerKeys(section.ContentTemplate) {
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, PlaceholderRef{Key: key})
	}
	return refs
}

// Create creates an empty template
func (s *TemplateService) Create(ctx context.Context, req *domain.CreateTemplateRequest) (*domain.Template, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	template := &domain.Template{Name: name, Description: req.Description}
	if err := s.templateRepo.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	s.logger.Info("template created", zap.String("template_id", template.ID.String()), zap.String("name", name))
	return template, nil
}

// GetByID returns a template with its live sections
func (s *TemplateService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrTemplateNotFound, "failed to get template")
	}
	sections, err := s.templateRepo.ListSections(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list template sections: %w", err)
	}
	template.Sections = sections
	return template, nil
}

func (s *TemplateService) List(ctx context.Context) ([]domain.Template, error) {
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Delete removes a template. Sections still referenced by agreements are retired instead.
func (s *TemplateService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.templateRepo.GetByID(ctx, id); err != nil {
		return notFoundOr(err, ErrTemplateNotFound, "failed to get template")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		templateRepo := s.templateRepo.WithTx(tx)
		sections, err := templateRepo.ListSections(ctx, id, true)
		if err != nil {
			return fmt.Errorf("failed to list template sections: %w", err)
		}
		for _, section := range sections {
			if _, err := s.removeOrRetire(ctx, templateRepo, section.ID); err != nil {
				return err
			}
		}
		if err := templateRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete template: %w", err)
		}
		s.logger.Info("template deleted", zap.String("template_id", id.String()))
		return nil
	})
}

// ListSections returns the template's live sections ordered by position
func (s *TemplateService) ListSections(ctx context.Context, templateID uuid.UUID) ([]domain.TemplateSection, error) {
	if _, err := s.templateRepo.GetByID(ctx, templateID); err != nil {
		return nil, notFoundOr(err, ErrTemplateNotFound, "failed to get template")
	}
	sections, err := s.templateRepo.ListSections(ctx, templateID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list template sections: %w", err)
	}
	return sections, nil
}

// ReplaceSections reconciles the template's sections with inputs in one
// transaction. Inputs with a known id are updated, inputs without id are
// inserted, and stored sections missing from inputs are deleted unless a
// section instance still refers to them, in which case they are retired.
// Links of every supplied section are cleared and re-created from its
// placeholder inputs and [[key]] markers; link labels not supplied again are lost.
func (s *TemplateService) ReplaceSections(ctx context.Context, templateID uuid.UUID, inputs []domain.SectionInput) ([]domain.TemplateSection, error) {
	if _, err := s.templateRepo.GetByID(ctx, templateID); err != nil {
		return nil, notFoundOr(err, ErrTemplateNotFound, "failed to get template")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		templateRepo := s.templateRepo.WithTx(tx)
		definitionRepo := s.definitionRepo.WithTx(tx)

		existing, err := templateRepo.ListSections(ctx, templateID, true)
		if err != nil {
			return fmt.Errorf("failed to list template sections: %w", err)
		}
		stored := make(map[uuid.UUID]bool, len(existing))
		for _, section := range existing {
			stored[section.ID] = true
		}

		kept := make(map[uuid.UUID]bool, len(inputs))
		for _, input := range inputs {
			section := &domain.TemplateSection{
				TemplateID:      templateID,
				Order:           input.Order,
				Title:           strings.TrimSpace(input.Title),
				ContentTemplate: input.ContentTemplate,
			}
			if section.Title == "" {
				return fmt.Errorf("%w: section title is required", ErrInvalidInput)
			}

			if input.ID != nil {
				if !stored[*input.ID] {
					return fmt.Errorf("%w: section %s does not belong to template", ErrInvalidInput, input.ID)
				}
				if kept[*input.ID] {
					return fmt.Errorf("%w: section %s supplied twice", ErrInvalidInput, input.ID)
				}
				section.ID = *input.ID
				if err := templateRepo.UpdateSection(ctx, section); err != nil {
					return fmt.Errorf("failed to update section: %w", err)
				}
			} else if err := templateRepo.CreateSection(ctx, section); err != nil {
				return fmt.Errorf("failed to create section: %w", err)
			}
			kept[section.ID] = true

			links, err := s.resolveLinks(ctx, definitionRepo, input)
			if err != nil {
				return err
			}
			if err := templateRepo.ReplaceLinks(ctx, section.ID, links); err != nil {
				return fmt.Errorf("failed to replace section links: %w", err)
			}
		}

		for _, section := range existing {
			if kept[section.ID] {
				continue
			}
			if _, err := s.removeOrRetire(ctx, templateRepo, section.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("template sections replaced",
		zap.String("template_id", templateID.String()),
		zap.Int("sections", len(inputs)),
	)
	return s.templateRepo.ListSections(ctx, templateID, false)
}

// resolveLinks turns a section input's placeholder entries and markers into links
func (s *TemplateService) resolveLinks(ctx context.Context, definitionRepo *repository.PlaceholderDefinitionRepository, input domain.SectionInput) ([]domain.SectionPlaceholderLink, error) {
	links := make([]domain.SectionPlaceholderLink, 0, len(input.Placeholders))
	seen := map[string]bool{}

	add := func(key, label string, valueType domain.ValueType) error {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			return nil
		}
		seen[key] = true
		def, err := s.registry.resolveOrCreate(ctx, definitionRepo, key, valueType, label)
		if err != nil {
			return err
		}
		links = append(links, domain.SectionPlaceholderLink{
			PlaceholderDefinitionID: def.ID,
			Label:                   label,
		})
		return nil
	}

	for _, p := range input.Placeholders {
		if err := add(p.Key, p.Label, p.ValueType); err != nil {
			return nil, err
		}
	}
	for _, key := range domain.ExtractMarkerKeys(input.ContentTemplate) {
		if err := add(key, "", ""); err != nil {
			return nil, err
		}
	}
	return links, nil
}

// removeOrRetire deletes an unreferenced section, or retires it. It reports
// whether the section was deleted.
func (s *TemplateService) removeOrRetire(ctx context.Context, templateRepo *repository.TemplateRepository, sectionID uuid.UUID) (bool, error) {
	refs, err := templateRepo.CountSectionReferences(ctx, sectionID)
	if err != nil {
		return false, fmt.Errorf("failed to count section references: %w", err)
	}
	if refs > 0 {
		s.logger.Warn("template section still in use, retiring instead of deleting",
			zap.String("section_id", sectionID.String()),
			zap.Int64("references", refs),
		)
		if err := templateRepo.RetireSection(ctx, sectionID); err != nil {
			return false, fmt.Errorf("failed to retire section: %w", err)
		}
		return false, nil
	}
	if err := templateRepo.DeleteSection(ctx, sectionID); err != nil {
		return false, fmt.Errorf("failed to delete section: %w", err)
	}
	return true, nil
}

// DeleteSection deletes a single template section. It fails with
// ErrSectionInUse while section instances still refer to it.
func (s *TemplateService) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	if _, err := s.templateRepo.GetSection(ctx, sectionID); err != nil {
		return notFoundOr(err, fmt.Errorf("template section %w", ErrNotFound), "failed to get template section")
	}
	refs, err := s.templateRepo.CountSectionReferences(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("failed to count section references: %w", err)
	}
	if refs > 0 {
		return ErrSectionInUse
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.templateRepo.WithTx(tx).DeleteSection(ctx, sectionID)
	})
}

// CleanupRetiredSections deletes retired sections that lost their last
// reference and returns how many were removed
func (s *TemplateService) CleanupRetiredSections(ctx context.Context) (int, error) {
	sections, err := s.templateRepo.ListUnreferencedRetiredSections(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list retired sections: %w", err)
	}

	removed := 0
	for _, section := range sections {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			deleted, err := s.removeOrRetire(ctx, s.templateRepo.WithTx(tx), section.ID)
			if deleted {
				removed++
			}
			return err
		})
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

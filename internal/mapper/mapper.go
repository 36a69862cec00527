package mapper

import (
	"time"

	"github.com/straye-as/dossier-api/internal/domain"
)

const timestampLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ToDossierDTO converts a Dossier, with any loaded agreements, to its DTO
func ToDossierDTO(dossier *domain.Dossier) domain.DossierDTO {
	dto := domain.DossierDTO{
		ID:        dossier.ID,
		Name:      dossier.Name,
		Reference: dossier.Reference,
		Address:   dossier.Address,
		CreatedBy: dossier.CreatedBy,
		CreatedAt: formatTime(dossier.CreatedAt),
		UpdatedAt: formatTime(dossier.UpdatedAt),
	}
	if len(dossier.Agreements) > 0 {
		dto.Agreements = make([]domain.AgreementDTO, 0, len(dossier.Agreements))
		for i := range dossier.Agreements {
			dto.Agreements = append(dto.Agreements, ToAgreementDTO(&dossier.Agreements[i]))
		}
	}
	return dto
}

// ToDossierDTOs converts a page of dossiers without their agreements
func ToDossierDTOs(dossiers []domain.Dossier) []domain.DossierDTO {
	dtos := make([]domain.DossierDTO, 0, len(dossiers))
	for i := range dossiers {
		d := dossiers[i]
		d.Agreements = nil
		dtos = append(dtos, ToDossierDTO(&d))
	}
	return dtos
}

// ToAgreementDTO converts an Agreement with its version headers
func ToAgreementDTO(agreement *domain.Agreement) domain.AgreementDTO {
	dto := domain.AgreementDTO{
		ID:         agreement.ID,
		DossierID:  agreement.DossierID,
		TemplateID: agreement.TemplateID,
		Index:      agreement.Index,
		Title:      agreement.Title,
		CreatedAt:  formatTime(agreement.CreatedAt),
	}
	if len(agreement.Versions) > 0 {
		dto.Versions = make([]domain.VersionDTO, 0, len(agreement.Versions))
		for i := range agreement.Versions {
			dto.Versions = append(dto.Versions, ToVersionHeaderDTO(&agreement.Versions[i]))
		}
	}
	return dto
}

// ToVersionHeaderDTO converts a Version without its content
func ToVersionHeaderDTO(version *domain.Version) domain.VersionDTO {
	return domain.VersionDTO{
		ID:            version.ID,
		AgreementID:   version.AgreementID,
		VersionNumber: version.VersionNumber,
		Renamed:       version.IsRenamed(),
		Major:         version.Major,
		Minor:         version.Minor,
		Source:        version.Source,
		IsCurrent:     version.IsCurrent,
		FilePath:      version.FilePath,
		CreatedAt:     formatTime(version.CreatedAt),
	}
}

// ToVersionDTO converts a Version with its sections, rendering each section's
// markers against its own values and then masterValues
func ToVersionDTO(version *domain.Version, masterValues map[string]string) domain.VersionDTO {
	dto := ToVersionHeaderDTO(version)
	dto.Sections = make([]domain.SectionInstanceDTO, 0, len(version.Sections))
	for i := range version.Sections {
		dto.Sections = append(dto.Sections, ToSectionInstanceDTO(&version.Sections[i], masterValues))
	}
	return dto
}

// ToSectionInstanceDTO converts a SectionInstance with its placeholders
func ToSectionInstanceDTO(section *domain.SectionInstance, masterValues map[string]string) domain.SectionInstanceDTO {
	dto := domain.SectionInstanceDTO{
		ID:                section.ID,
		VersionID:         section.VersionID,
		TemplateSectionID: section.TemplateSectionID,
		Order:             section.Order,
		Title:             section.Title,
		Content:           section.Content,
		RenderedContent:   domain.RenderContent(section.Content, section.Values(masterValues)),
		ValidationStatus:  section.ValidationStatus,
		Placeholders:      make([]domain.PlaceholderInstanceDTO, 0, len(section.Placeholders)),
	}
	for i := range section.Placeholders {
		dto.Placeholders = append(dto.Placeholders, ToPlaceholderInstanceDTO(&section.Placeholders[i]))
	}
	return dto
}

// ToPlaceholderInstanceDTO converts a PlaceholderInstance; key, label and type
// come from its definition when loaded
func ToPlaceholderInstanceDTO(instance *domain.PlaceholderInstance) domain.PlaceholderInstanceDTO {
	dto := domain.PlaceholderInstanceDTO{
		ID:                instance.ID,
		Value:             instance.Value,
		ConfidenceScore:   instance.ConfidenceScore,
		ValidationStatus:  instance.ValidationStatus,
		SectionInstanceID: instance.SectionInstanceID,
		IsMaster:          instance.IsMaster(),
		ValueType:         domain.ValueTypeText,
	}
	if def := instance.PlaceholderDefinition; def != nil {
		dto.Key = def.Key
		dto.Label = def.Label
		dto.ValueType = def.ValueType
	}
	return dto
}

// ToPlaceholderDefinitionDTO converts a registry entry
func ToPlaceholderDefinitionDTO(def *domain.PlaceholderDefinition) domain.PlaceholderDefinitionDTO {
	return domain.PlaceholderDefinitionDTO{
		ID:        def.ID,
		Key:       def.Key,
		ValueType: def.ValueType,
		Label:     def.Label,
	}
}

// ToTemplateDTO converts a Template with any loaded sections
func ToTemplateDTO(template *domain.Template) domain.TemplateDTO {
	dto := domain.TemplateDTO{
		ID:          template.ID,
		Name:        template.Name,
		Description: template.Description,
		CreatedAt:   formatTime(template.CreatedAt),
	}
	if len(template.Sections) > 0 {
		dto.Sections = ToTemplateSectionDTOs(template.Sections)
	}
	return dto
}

// ToTemplateSectionDTOs converts template sections with their links
func ToTemplateSectionDTOs(sections []domain.TemplateSection) []domain.TemplateSectionDTO {
	dtos := make([]domain.TemplateSectionDTO, 0, len(sections))
	for i := range sections {
		dtos = append(dtos, ToTemplateSectionDTO(&sections[i]))
	}
	return dtos
}

// ToTemplateSectionDTO converts a template section; links without a loaded
// definition are skipped
func ToTemplateSectionDTO(section *domain.TemplateSection) domain.TemplateSectionDTO {
	dto := domain.TemplateSectionDTO{
		ID:              section.ID,
		TemplateID:      section.TemplateID,
		Order:           section.Order,
		Title:           section.Title,
		ContentTemplate: section.ContentTemplate,
		Retired:         section.RetiredAt != nil,
	}
	for _, link := range section.Links {
		if link.PlaceholderDefinition == nil {
			continue
		}
		label := link.Label
		if label == "" {
			label = link.PlaceholderDefinition.Label
		}
		dto.Placeholders = append(dto.Placeholders, domain.SectionLinkDTO{
			Key:   link.PlaceholderDefinition.Key,
			Label: label,
		})
	}
	return dto
}

// ToDocumentDTO converts an uploaded document
func ToDocumentDTO(doc *domain.DossierDocument) domain.DossierDocumentDTO {
	return domain.DossierDocumentDTO{
		ID:             doc.ID,
		DossierID:      doc.DossierID,
		Filename:       doc.Filename,
		ContentType:    doc.ContentType,
		Size:           doc.Size,
		AnalysisStatus: doc.AnalysisStatus,
		AnalysisError:  doc.AnalysisError,
		CreatedAt:      formatTime(doc.CreatedAt),
	}
}

// ToDocumentDTOs converts a list of documents
func ToDocumentDTOs(docs []domain.DossierDocument) []domain.DossierDocumentDTO {
	dtos := make([]domain.DossierDocumentDTO, 0, len(docs))
	for i := range docs {
		dtos = append(dtos, ToDocumentDTO(&docs[i]))
	}
	return dtos
}

// ToEventDTOs converts timeline events
func ToEventDTOs(events []domain.DossierEvent) []domain.DossierEventDTO {
	dtos := make([]domain.DossierEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, domain.DossierEventDTO{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Actor:       e.Actor,
			OccurredAt:  formatTime(e.OccurredAt),
		})
	}
	return dtos
}

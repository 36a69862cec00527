package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a UUID when the caller did not set one. IDs are generated
// in Go so the same models work on PostgreSQL and SQLite.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ValueType is the declared type of a placeholder value
type ValueType string

const (
	ValueTypeText    ValueType = "text"
	ValueTypeNumber  ValueType = "number"
	ValueTypeDate    ValueType = "date"
	ValueTypeAddress ValueType = "address"
)

// IsValid checks if the ValueType is a valid enum value
func (vt ValueType) IsValid() bool {
	switch vt {
	case ValueTypeText, ValueTypeNumber, ValueTypeDate, ValueTypeAddress:
		return true
	}
	return false
}

// VersionSource records how a version came into existence
type VersionSource string

const (
	VersionSourceAI     VersionSource = "ai"
	VersionSourceUpload VersionSource = "upload"
	VersionSourceManual VersionSource = "manual"
)

// IsValid checks if the VersionSource is a valid enum value
func (vs VersionSource) IsValid() bool {
	switch vs {
	case VersionSourceAI, VersionSourceUpload, VersionSourceManual:
		return true
	}
	return false
}

// ValidationStatus is the review state of a section or placeholder instance
type ValidationStatus string

const (
	ValidationStatusPending  ValidationStatus = "pending"
	ValidationStatusApproved ValidationStatus = "approved"
)

// IsValid checks if the ValidationStatus is a valid enum value
func (vs ValidationStatus) IsValid() bool {
	switch vs {
	case ValidationStatusPending, ValidationStatusApproved:
		return true
	}
	return false
}

// AnalysisStatus tracks the extraction state of an uploaded document
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusDone       AnalysisStatus = "done"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// PlaceholderDefinition is a catalog entry for a field key that templates and
// extraction results refer to. The key is stable; only label and type may be corrected.
type PlaceholderDefinition struct {
	BaseModel
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_placeholder_definitions_key"`
	ValueType ValueType `gorm:"type:varchar(20);not null;default:'text';column:value_type"`
	Label     string    `gorm:"type:varchar(200)"`
}

// Template is a named set of sections that seeds new agreements
type Template struct {
	BaseModel
	Name        string            `gorm:"type:varchar(200);not null"`
	Description string            `gorm:"type:text"`
	Sections    []TemplateSection `gorm:"foreignKey:TemplateID"`
}

// TemplateSection is a versionless master content block. ContentTemplate holds
// inline [[key]] markers.
type TemplateSection struct {
	BaseModel
	TemplateID      uuid.UUID                `gorm:"type:uuid;not null;index;column:template_id"`
	Order           int                      `gorm:"not null;default:0;column:sort_order"`
	Title           string                   `gorm:"type:varchar(300);not null"`
	ContentTemplate string                   `gorm:"type:text;column:content_template"`
	RetiredAt       *time.Time               `gorm:"column:retired_at;index"`
	Links           []SectionPlaceholderLink `gorm:"foreignKey:TemplateSectionID"`
}

// SectionPlaceholderLink connects a template section to a definition it references
type SectionPlaceholderLink struct {
	ID                      uuid.UUID              `gorm:"type:uuid;primary_key"`
	TemplateSectionID       uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_section_placeholder_links_pair;column:template_section_id"`
	PlaceholderDefinitionID uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_section_placeholder_links_pair;column:placeholder_definition_id"`
	PlaceholderDefinition   *PlaceholderDefinition `gorm:"foreignKey:PlaceholderDefinitionID"`
	Label                   string                 `gorm:"type:varchar(200)"`
	CreatedAt               time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns the link ID
func (l *SectionPlaceholderLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Dossier is a real-estate case, the top-level unit of work
type Dossier struct {
	BaseModel
	Name       string      `gorm:"type:varchar(200);not null"`
	Reference  string      `gorm:"type:varchar(100);index"`
	Address    string      `gorm:"type:varchar(500)"`
	CreatedBy  string      `gorm:"type:varchar(200);column:created_by"`
	Agreements []Agreement `gorm:"foreignKey:DossierID"`
}

// Agreement is one drafting effort within a dossier. TemplateID becomes nil when
// the template is removed; the agreement keeps its own section copies.
type Agreement struct {
	BaseModel
	DossierID  uuid.UUID  `gorm:"type:uuid;not null;index;column:dossier_id"`
	TemplateID *uuid.UUID `gorm:"type:uuid;column:template_id"`
	Index      int        `gorm:"not null;column:agreement_index"`
	Title      string     `gorm:"type:varchar(300)"`
	Versions   []Version  `gorm:"foreignKey:AgreementID"`
}

// Version is a snapshot of an agreement's content. Major and Minor drive the
// lineage; VersionNumber is the display label and may be renamed freely.
type Version struct {
	BaseModel
	AgreementID   uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_versions_lineage;column:agreement_id"`
	VersionNumber string            `gorm:"type:varchar(100);not null;column:version_number"`
	Major         int               `gorm:"not null;uniqueIndex:idx_versions_lineage"`
	Minor         int               `gorm:"not null;uniqueIndex:idx_versions_lineage"`
	Source        VersionSource     `gorm:"type:varchar(20);not null;default:'manual'"`
	IsCurrent     bool              `gorm:"not null;default:false;index;column:is_current"`
	FilePath      *string           `gorm:"type:varchar(1000);column:file_path"`
	Sections      []SectionInstance `gorm:"foreignKey:VersionID"`
}

// SectionInstance is the per-version mutable copy of a template section
type SectionInstance struct {
	BaseModel
	VersionID         uuid.UUID             `gorm:"type:uuid;not null;index;column:version_id"`
	TemplateSectionID *uuid.UUID            `gorm:"type:uuid;index;column:template_section_id"`
	Order             int                   `gorm:"not null;default:0;column:sort_order"`
	Title             string                `gorm:"type:varchar(300)"`
	Content           string                `gorm:"type:text"`
	ValidationStatus  ValidationStatus      `gorm:"type:varchar(20);not null;default:'pending';column:validation_status"`
	Placeholders      []PlaceholderInstance `gorm:"foreignKey:SectionInstanceID"`
}

// PlaceholderInstance holds a field value. With SectionInstanceID nil it is the
// dossier-wide master instance for its definition.
type PlaceholderInstance struct {
	BaseModel
	DossierID               uuid.UUID              `gorm:"type:uuid;not null;index;uniqueIndex:idx_placeholder_instances_master,where:section_instance_id IS NULL;column:dossier_id"`
	PlaceholderDefinitionID uuid.UUID              `gorm:"type:uuid;not null;index;uniqueIndex:idx_placeholder_instances_master,where:section_instance_id IS NULL;uniqueIndex:idx_placeholder_instances_section;column:placeholder_definition_id"`
	PlaceholderDefinition   *PlaceholderDefinition `gorm:"foreignKey:PlaceholderDefinitionID"`
	SectionInstanceID       *uuid.UUID             `gorm:"type:uuid;uniqueIndex:idx_placeholder_instances_section;column:section_instance_id"`
	Value                   string                 `gorm:"type:text;not null;default:''"`
	ConfidenceScore         *float64               `gorm:"column:confidence_score"`
	ValidationStatus        ValidationStatus       `gorm:"type:varchar(20);not null;default:'pending';column:validation_status"`
}

// IsMaster reports whether the instance is scoped to the dossier rather than a section
func (p *PlaceholderInstance) IsMaster() bool {
	return p.SectionInstanceID == nil
}

// DossierDocument is an uploaded source document awaiting or done with analysis
type DossierDocument struct {
	BaseModel
	DossierID      uuid.UUID      `gorm:"type:uuid;not null;index;column:dossier_id"`
	Filename       string         `gorm:"type:varchar(500);not null"`
	ContentType    string         `gorm:"type:varchar(200);column:content_type"`
	Size           int64          `gorm:"not null;default:0"`
	StoragePath    string         `gorm:"type:varchar(1000);not null;column:storage_path"`
	AnalysisStatus AnalysisStatus `gorm:"type:varchar(20);not null;default:'pending';index;column:analysis_status"`
	AnalysisError  string         `gorm:"type:text;column:analysis_error"`
	UploadedBy     string         `gorm:"type:varchar(200);column:uploaded_by"`
}

// DossierEvent is an append-only timeline entry for a dossier
type DossierEvent struct {
	BaseModel
	DossierID   uuid.UUID `gorm:"type:uuid;not null;index;column:dossier_id"`
	Title       string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:varchar(2000)"`
	Actor       string    `gorm:"type:varchar(200)"`
	OccurredAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:occurred_at"`
}

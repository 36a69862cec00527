package domain

import (
	"github.com/google/uuid"
)

// DTOs for API responses

type DossierDTO struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Reference  string         `json:"reference,omitempty"`
	Address    string         `json:"address,omitempty"`
	CreatedBy  string         `json:"createdBy,omitempty"`
	Agreements []AgreementDTO `json:"agreements,omitempty"`
	CreatedAt  string         `json:"createdAt"` // ISO 8601
	UpdatedAt  string         `json:"updatedAt"` // ISO 8601
}

type AgreementDTO struct {
	ID         uuid.UUID    `json:"id"`
	DossierID  uuid.UUID    `json:"dossierId"`
	TemplateID *uuid.UUID   `json:"templateId,omitempty"`
	Index      int          `json:"index"`
	Title      string       `json:"title,omitempty"`
	Versions   []VersionDTO `json:"versions,omitempty"`
	CreatedAt  string       `json:"createdAt"`
}

type VersionDTO struct {
	ID            uuid.UUID            `json:"id"`
	AgreementID   uuid.UUID            `json:"agreementId"`
	VersionNumber string               `json:"versionNumber"`
	Renamed       bool                 `json:"renamed"`
	Major         int                  `json:"major"`
	Minor         int                  `json:"minor"`
	Source        VersionSource        `json:"source"`
	IsCurrent     bool                 `json:"isCurrent"`
	FilePath      *string              `json:"filePath,omitempty"`
	Sections      []SectionInstanceDTO `json:"sections,omitempty"`
	CreatedAt     string               `json:"createdAt"`
}

type SectionInstanceDTO struct {
	ID                uuid.UUID                `json:"id"`
	VersionID         uuid.UUID                `json:"versionId"`
	TemplateSectionID *uuid.UUID               `json:"templateSectionId,omitempty"`
	Order             int                      `json:"order"`
	Title             string                   `json:"title"`
	Content           string                   `json:"content"`
	RenderedContent   string                   `json:"renderedContent"`
	ValidationStatus  ValidationStatus         `json:"validationStatus"`
	Placeholders      []PlaceholderInstanceDTO `json:"placeholders,omitempty"`
}

type PlaceholderInstanceDTO struct {
	ID                uuid.UUID        `json:"id"`
	Key               string           `json:"key"`
	Label             string           `json:"label,omitempty"`
	ValueType         ValueType        `json:"valueType"`
	Value             string           `json:"value"`
	ConfidenceScore   *float64         `json:"confidenceScore,omitempty"`
	ValidationStatus  ValidationStatus `json:"validationStatus"`
	SectionInstanceID *uuid.UUID       `json:"sectionInstanceId,omitempty"`
	IsMaster          bool             `json:"isMaster"`
}

type PlaceholderDefinitionDTO struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	ValueType ValueType `json:"valueType"`
	Label     string    `json:"label,omitempty"`
}

type TemplateDTO struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Sections    []TemplateSectionDTO `json:"sections,omitempty"`
	CreatedAt   string               `json:"createdAt"`
}

type TemplateSectionDTO struct {
	ID              uuid.UUID        `json:"id"`
	TemplateID      uuid.UUID        `json:"templateId"`
	Order           int              `json:"order"`
	Title           string           `json:"title"`
	ContentTemplate string           `json:"contentTemplate"`
	Retired         bool             `json:"retired,omitempty"`
	Placeholders    []SectionLinkDTO `json:"placeholders,omitempty"`
}

type SectionLinkDTO struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

type DossierDocumentDTO struct {
	ID             uuid.UUID      `json:"id"`
	DossierID      uuid.UUID      `json:"dossierId"`
	Filename       string         `json:"filename"`
	ContentType    string         `json:"contentType,omitempty"`
	Size           int64          `json:"size"`
	AnalysisStatus AnalysisStatus `json:"analysisStatus"`
	AnalysisError  string         `json:"analysisError,omitempty"`
	CreatedAt      string         `json:"createdAt"`
}

type DossierEventDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	OccurredAt  string    `json:"occurredAt"`
}

// AnalysisStatusDTO is returned to clients polling an extraction run
type AnalysisStatusDTO struct {
	DossierID uuid.UUID `json:"dossierId"`
	Running   bool      `json:"running"`
	Completed bool      `json:"completed"`
	LastEvent string    `json:"lastEvent,omitempty"`
	Documents int       `json:"documents"`
	Processed int       `json:"processed"`
}

// PaginatedResponse wraps one page of a list endpoint
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// DeleteVersionResponse tells the client whether the agreement went with its last version
type DeleteVersionResponse struct {
	AgreementDeleted bool `json:"agreementDeleted"`
}

// Requests

type CreateDossierRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Reference string `json:"reference,omitempty" validate:"max=100"`
	Address   string `json:"address,omitempty" validate:"max=500"`
}

type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
}

// SectionInput is one entry of a full template-section replacement. A nil ID
// inserts a new section.
type SectionInput struct {
	ID              *uuid.UUID         `json:"id,omitempty"`
	Order           int                `json:"order" validate:"gte=0"`
	Title           string             `json:"title" validate:"required,max=300"`
	ContentTemplate string             `json:"contentTemplate"`
	Placeholders    []SectionLinkInput `json:"placeholders,omitempty" validate:"dive"`
}

type SectionLinkInput struct {
	Key       string    `json:"key" validate:"required,max=200"`
	Label     string    `json:"label,omitempty" validate:"max=200"`
	ValueType ValueType `json:"valueType,omitempty" validate:"omitempty,oneof=text number date address"`
}

type ReplaceSectionsRequest struct {
	Sections []SectionInput `json:"sections" validate:"dive"`
}

type CreateAgreementRequest struct {
	TemplateID *uuid.UUID `json:"templateId,omitempty"`
	Title      string     `json:"title,omitempty" validate:"max=300"`
}

type CreateUploadVersionRequest struct {
	FilePath string `json:"filePath" validate:"required,max=1000"`
}

type RenameVersionRequest struct {
	VersionNumber string `json:"versionNumber" validate:"required,max=100"`
}

type RecordValueRequest struct {
	Key   string `json:"key" validate:"required,max=200"`
	Value string `json:"value" validate:"max=5000"`
}

type UpdatePlaceholderValueRequest struct {
	Value string `json:"value" validate:"max=5000"`
}

type UpdateDefinitionRequest struct {
	Label     *string    `json:"label,omitempty" validate:"omitempty,max=200"`
	ValueType *ValueType `json:"valueType,omitempty" validate:"omitempty,oneof=text number date address"`
}

type UpdateSectionContentRequest struct {
	Content string `json:"content"`
}

type SetValidationStatusRequest struct {
	Status ValidationStatus `json:"status" validate:"required,oneof=pending approved"`
}

type StartAnalysisRequest struct {
	DocumentIDs        []uuid.UUID `json:"documentIds,omitempty"`
	ContextHints       []string    `json:"contextHints,omitempty"`
	CustomInstructions string      `json:"customInstructions,omitempty" validate:"max=4000"`
}

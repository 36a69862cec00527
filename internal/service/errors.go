package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when the caller is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSectionInUse is returned when a template section still has section instances
	ErrSectionInUse = errors.New("template section is in use")

	// ErrDossierNotFound is returned when a dossier is not found
	ErrDossierNotFound = fmt.Errorf("dossier %w", ErrNotFound)

	// ErrAgreementNotFound is returned when an agreement is not found
	ErrAgreementNotFound = fmt.Errorf("agreement %w", ErrNotFound)

	// ErrVersionNotFound is returned when a version is not found
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)

	// ErrTemplateNotFound is returned when a template is not found
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)

	// ErrDefinitionNotFound is returned when a placeholder definition is not found
	ErrDefinitionNotFound = fmt.Errorf("placeholder definition %w", ErrNotFound)

	// ErrInstanceNotFound is returned when a section or placeholder instance is not found
	ErrInstanceNotFound = fmt.Errorf("instance %w", ErrNotFound)

	// ErrDocumentNotFound is returned when a dossier document is not found
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrNotFound)

	// ErrAnalysisQueueFull is returned when no worker slot is available for an analysis run
	ErrAnalysisQueueFull = fmt.Errorf("analysis queue full: %w", ErrConflict)
)

// notFoundOr maps gorm.ErrRecordNotFound to notFound and wraps anything else
func notFoundOr(err error, notFound error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

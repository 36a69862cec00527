package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/lock"
	"github.com/straye-as/dossier-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VersionService manages agreements and their version lineage. Every mutation
// of an agreement's versions runs in one transaction while holding the
// agreement's writer lock, so exactly one version stays current.
type VersionService struct {
	db             *gorm.DB
	locker         lock.Locker
	dossierRepo    *repository.DossierRepository
	agreementRepo  *repository.AgreementRepository
	versionRepo    *repository.VersionRepository
	sectionRepo    *repository.SectionInstanceRepository
	instanceRepo   *repository.PlaceholderInstanceRepository
	templateRepo   *repository.TemplateRepository
	definitionRepo *repository.PlaceholderDefinitionRepository
	registry       *PlaceholderRegistryService
	masterData     *MasterDataService
	events         *EventService
	logger         *zap.Logger
}

// NewVersionService creates a new version service instance
func NewVersionService(
	db *gorm.DB,
	locker lock.Locker,
	dossierRepo *repository.DossierRepository,
	agreementRepo *repository.AgreementRepository,
	versionRepo *repository.VersionRepository,
	sectionRepo *repository.SectionInstanceRepository,
	instanceRepo *repository.PlaceholderInstanceRepository,
	templateRepo *repository.TemplateRepository,
	definitionRepo *repository.PlaceholderDefinitionRepository,
	registry *PlaceholderRegistryService,
	masterData *MasterDataService,
	events *EventService,
	logger *zap.Logger,
) *VersionService {
	return &VersionService{
		db:             db,
		locker:         locker,
		dossierRepo:    dossierRepo,
		agreementRepo:  agreementRepo,
		versionRepo:    versionRepo,
		sectionRepo:    sectionRepo,
		instanceRepo:   instanceRepo,
		templateRepo:   templateRepo,
		definitionRepo: definitionRepo,
		registry:       registry,
		masterData:     masterData,
		events:         events,
		logger:         logger,
	}
}

// withLock runs fn in a transaction while holding key
func (s *VersionService) withLock(ctx context.Context, key string, fn func(tx *gorm.DB) error) error {
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to acquire %s: %w", key, err)
	}
	defer release()

	return s.db.WithContext(ctx).Transaction(fn)
}

func dossierAgreementsKey(dossierID uuid.UUID) string {
	return "dossier:" + dossierID.String() + ":agreements"
}

// CreateAgreement creates an agreement with its first version. The agreement's
// index is one more than the number of agreements the dossier already has and
// the first version is numbered "<index>.0". With a template, the version gets
// a section instance per live template section, each with placeholder
// instances seeded from values already known in the dossier.
func (s *VersionService) CreateAgreement(ctx context.Context, dossierID uuid.UUID, templateID *uuid.UUID, title string) (*domain.Agreement, error) {
	exists, err := s.dossierRepo.Exists(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dossier: %w", err)
	}
	if !exists {
		return nil, ErrDossierNotFound
	}

	var sections []domain.TemplateSection
	if templateID != nil {
		if _, err := s.templateRepo.GetByID(ctx, *templateID); err != nil {
			return nil, notFoundOr(err, ErrTemplateNotFound, "failed to get template")
		}
		sections, err = s.templateRepo.ListSections(ctx, *templateID, false)
		if err != nil {
			return nil, fmt.Errorf("failed to list template sections: %w", err)
		}
	}

	var agreement *domain.Agreement
	err = s.withLock(ctx, dossierAgreementsKey(dossierID), func(tx *gorm.DB) error {
		agreementRepo := s.agreementRepo.WithTx(tx)

		count, err := agreementRepo.CountByDossier(ctx, dossierID)
		if err != nil {
			return fmt.Errorf("failed to count agreements: %w", err)
		}
		index := int(count) + 1

		agreement = &domain.Agreement{
			DossierID:  dossierID,
			TemplateID: templateID,
			Index:      index,
			Title:      strings.TrimSpace(title),
		}
		if err := agreementRepo.Create(ctx, agreement); err != nil {
			return fmt.Errorf("failed to create agreement: %w", err)
		}

		version := &domain.Version{
			AgreementID:   agreement.ID,
			VersionNumber: domain.FormatVersionNumber(index, 0),
			Major:         index,
			Minor:         0,
			Source:        domain.VersionSourceManual,
			IsCurrent:     true,
		}
		if err := s.versionRepo.WithTx(tx).Create(ctx, version); err != nil {
			return fmt.Errorf("failed to create first version: %w", err)
		}

		for i := range sections {
			if err := s.instantiateSection(ctx, tx, dossierID, version.ID, &sections[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("agreement created",
		zap.String("dossier_id", dossierID.String()),
		zap.String("agreement_id", agreement.ID.String()),
		zap.Int("index", agreement.Index),
		zap.Int("sections", len(sections)),
	)
	s.events.recordQuietly(ctx, dossierID, EventAgreementCreated,
		fmt.Sprintf("Overeenkomst %d aangemaakt met versie %s", agreement.Index, domain.FormatVersionNumber(agreement.Index, 0)),
		auth.ActorFromContext(ctx))

	return s.agreementRepo.GetWithVersions(ctx, agreement.ID)
}

// instantiateSection copies a template section into a version and creates a
// seeded placeholder instance for every key the section references
func (s *VersionService) instantiateSection(ctx context.Context, tx *gorm.DB, dossierID, versionID uuid.UUID, section *domain.TemplateSection) error {
	sectionID := section.ID
	instance := &domain.SectionInstance{
		VersionID:         versionID,
		TemplateSectionID: &sectionID,
		Order:             section.Order,
		Title:             section.Title,
		Content:           section.ContentTemplate,
		ValidationStatus:  domain.ValidationStatusPending,
	}
	if err := s.sectionRepo.WithTx(tx).Create(ctx, instance); err != nil {
		return fmt.Errorf("failed to create section instance: %w", err)
	}

	definitionRepo := s.definitionRepo.WithTx(tx)
	placeholders := make([]domain.PlaceholderInstance, 0, len(section.Links))
	for _, ref := range SectionPlaceholderRefs(section) {
		def := ref.Definition
		if def == nil {
			var err error
			def, err = s.registry.resolveOrCreate(ctx, definitionRepo, ref.Key, "", ref.Label)
			if err != nil {
				return err
			}
		}

		seed, err := s.masterData.seedValueTx(ctx, tx, dossierID, def.Key)
		if err != nil {
			return err
		}

		instanceID := instance.ID
		placeholders = append(placeholders, domain.PlaceholderInstance{
			DossierID:               dossierID,
			PlaceholderDefinitionID: def.ID,
			SectionInstanceID:       &instanceID,
			Value:                   seed,
			ValidationStatus:        domain.ValidationStatusPending,
		})
	}

	if err := s.instanceRepo.WithTx(tx).CreateBatch(ctx, placeholders); err != nil {
		return fmt.Errorf("failed to create placeholder instances: %w", err)
	}
	return nil
}

// DuplicateVersion creates the next version of the agreement owning sourceID,
// copying sourceID's section and placeholder instances verbatim. Empty copied
// values are seeded from the dossier. The new version becomes current.
func (s *VersionService) DuplicateVersion(ctx context.Context, sourceID uuid.UUID) (*domain.Version, error) {
	source, err := s.versionRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, notFoundOr(err, ErrVersionNotFound, "failed to get version")
	}
	return s.createNextVersion(ctx, source.AgreementID, &sourceID, domain.VersionSourceManual, nil)
}

// DuplicateLatest duplicates the agreement's latest version
func (s *VersionService) DuplicateLatest(ctx context.Context, agreementID uuid.UUID) (*domain.Version, error) {
	return s.createNextVersion(ctx, agreementID, nil, domain.VersionSourceManual, nil)
}

// CreateUploadVersion registers an uploaded file as the agreement's next
// version. Its content is filled later from the file, so no instances are created.
func (s *VersionService) CreateUploadVersion(ctx context.Context, agreementID uuid.UUID, filePath string) (*domain.Version, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrInvalidInput)
	}
	return s.createNextVersion(ctx, agreementID, nil, domain.VersionSourceUpload, &filePath)
}

// createNextVersion numbers the new version from the latest one and flips the
// current flag. Content is copied from sourceID, or from the latest version when
// sourceID is nil; upload versions start empty.
func (s *VersionService) createNextVersion(ctx context.Context, agreementID uuid.UUID, sourceID *uuid.UUID, source domain.VersionSource, filePath *string) (*domain.Version, error) {
	agreement, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return nil, notFoundOr(err, ErrAgreementNotFound, "failed to get agreement")
	}

	var created *domain.Version
	err = s.withLock(ctx, lock.AgreementKey(agreementID), func(tx *gorm.DB) error {
		versionRepo := s.versionRepo.WithTx(tx)

		latest, err := versionRepo.GetLatest(ctx, agreementID)
		if err != nil {
			return notFoundOr(err, ErrVersionNotFound, "failed to get latest version")
		}

		copyFrom := latest.ID
		if sourceID != nil {
			copyFrom = *sourceID
		}

		if err := versionRepo.ClearCurrent(ctx, agreementID); err != nil {
			return fmt.Errorf("failed to clear current version: %w", err)
		}

		created = &domain.Version{
			AgreementID:   agreementID,
			VersionNumber: domain.FormatVersionNumber(latest.Major, latest.Minor+1),
			Major:         latest.Major,
			Minor:         latest.Minor + 1,
			Source:        source,
			IsCurrent:     true,
			FilePath:      filePath,
		}
		if err := versionRepo.Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		if source == domain.VersionSourceUpload {
			return nil
		}
		return s.copyContent(ctx, tx, agreement.DossierID, copyFrom, created.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("version created",
		zap.String("agreement_id", agreementID.String()),
		zap.String("version_id", created.ID.String()),
		zap.String("version_number", created.VersionNumber),
		zap.String("source", string(source)),
	)
	s.events.recordQuietly(ctx, agreement.DossierID, EventVersionCreated,
		fmt.Sprintf("Versie %s van overeenkomst %d aangemaakt", created.VersionNumber, agreement.Index),
		auth.ActorFromContext(ctx))

	return created, nil
}

// copyContent duplicates the section and placeholder instances of fromID into toID
func (s *VersionService) copyContent(ctx context.Context, tx *gorm.DB, dossierID, fromID, toID uuid.UUID) error {
	sectionRepo := s.sectionRepo.WithTx(tx)
	instanceRepo := s.instanceRepo.WithTx(tx)
	definitionRepo := s.definitionRepo.WithTx(tx)

	sections, err := sectionRepo.ListByVersion(ctx, fromID)
	if err != nil {
		return fmt.Errorf("failed to list section instances: %w", err)
	}

	defKeys := map[uuid.UUID]string{}
	for _, src := range sections {
		copied := &domain.SectionInstance{
			VersionID:         toID,
			TemplateSectionID: src.TemplateSectionID,
			Order:             src.Order,
			Title:             src.Title,
			Content:           src.Content,
			ValidationStatus:  src.ValidationStatus,
		}
		if err := sectionRepo.Create(ctx, copied); err != nil {
			return fmt.Errorf("failed to copy section instance: %w", err)
		}

		placeholders := make([]domain.PlaceholderInstance, 0, len(src.Placeholders))
		for _, p := range src.Placeholders {
			value := p.Value
			if value == "" {
				key, ok := defKeys[p.PlaceholderDefinitionID]
				if !ok {
					def, err := definitionRepo.GetByID(ctx, p.PlaceholderDefinitionID)
					if err != nil {
						return fmt.Errorf("failed to get placeholder definition: %w", err)
					}
					key = def.Key
					defKeys[p.PlaceholderDefinitionID] = key
				}
				if value, err = s.masterData.seedValueTx(ctx, tx, dossierID, key); err != nil {
					return err
				}
			}

			copiedID := copied.ID
			placeholders = append(placeholders, domain.PlaceholderInstance{
				DossierID:               dossierID,
				PlaceholderDefinitionID: p.PlaceholderDefinitionID,
				SectionInstanceID:       &copiedID,
				Value:                   value,
				ConfidenceScore:         p.ConfidenceScore,
				ValidationStatus:        p.ValidationStatus,
			})
		}
		if err := instanceRepo.CreateBatch(ctx, placeholders); err != nil {
			return fmt.Errorf("failed to copy placeholder instances: %w", err)
		}
	}
	return nil
}

// DeleteVersion removes a version with its instances. Deleting the last
// version deletes the agreement; deleting the current one promotes the most
// recently created remaining version. It reports whether the agreement was deleted.
func (s *VersionService) DeleteVersion(ctx context.Context, versionID uuid.UUID) (bool, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return false, notFoundOr(err, ErrVersionNotFound, "failed to get version")
	}
	agreement, err := s.agreementRepo.GetByID(ctx, version.AgreementID)
	if err != nil {
		return false, notFoundOr(err, ErrAgreementNotFound, "failed to get agreement")
	}

	agreementDeleted := false
	var promoted *domain.Version
	err = s.withLock(ctx, lock.AgreementKey(agreement.ID), func(tx *gorm.DB) error {
		versionRepo := s.versionRepo.WithTx(tx)

		// Re-read under the lock; the current flag may have moved
		current, err := versionRepo.GetByID(ctx, versionID)
		if err != nil {
			return notFoundOr(err, ErrVersionNotFound, "failed to get version")
		}

		if err := versionRepo.DeleteCascade(ctx, versionID); err != nil {
			return fmt.Errorf("failed to delete version: %w", err)
		}

		remaining, err := versionRepo.CountByAgreement(ctx, agreement.ID)
		if err != nil {
			return fmt.Errorf("failed to count versions: %w", err)
		}
		if remaining == 0 {
			agreementDeleted = true
			return s.agreementRepo.WithTx(tx).Delete(ctx, agreement.ID)
		}

		if current.IsCurrent {
			promoted, err = versionRepo.GetMostRecentlyCreated(ctx, agreement.ID)
			if err != nil {
				return fmt.Errorf("failed to find version to promote: %w", err)
			}
			return versionRepo.SetCurrent(ctx, agreement.ID, promoted.ID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	fields := []zap.Field{
		zap.String("agreement_id", agreement.ID.String()),
		zap.String("version_id", versionID.String()),
		zap.Bool("agreement_deleted", agreementDeleted),
	}
	if promoted != nil {
		fields = append(fields, zap.String("promoted_version_id", promoted.ID.String()))
	}
	s.logger.Info("version deleted", fields...)

	description := fmt.Sprintf("Versie %s van overeenkomst %d verwijderd", version.VersionNumber, agreement.Index)
	if agreementDeleted {
		description += "; overeenkomst verwijderd"
	}
	s.events.recordQuietly(ctx, agreement.DossierID, EventVersionDeleted, description, auth.ActorFromContext(ctx))

	return agreementDeleted, nil
}

// RenameVersion sets the version's display label. The numeric lineage is
// unaffected; the next version still increments from the internal minor.
func (s *VersionService) RenameVersion(ctx context.Context, versionID uuid.UUID, label string) (*domain.Version, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: version number is required", ErrInvalidInput)
	}

	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, notFoundOr(err, ErrVersionNotFound, "failed to get version")
	}
	previous := version.VersionNumber

	if err := s.versionRepo.UpdateLabel(ctx, versionID, label); err != nil {
		return nil, fmt.Errorf("failed to rename version: %w", err)
	}
	version.VersionNumber = label

	if agreement, err := s.agreementRepo.GetByID(ctx, version.AgreementID); err == nil {
		s.events.recordQuietly(ctx, agreement.DossierID, EventVersionRenamed,
			fmt.Sprintf("Versie %s hernoemd naar %s", previous, label),
			auth.ActorFromContext(ctx))
	}
	return version, nil
}

// Promote makes versionID the agreement's only current version
func (s *VersionService) Promote(ctx context.Context, versionID uuid.UUID) (*domain.Version, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, notFoundOr(err, ErrVersionNotFound, "failed to get version")
	}

	err = s.withLock(ctx, lock.AgreementKey(version.AgreementID), func(tx *gorm.DB) error {
		return s.versionRepo.WithTx(tx).SetCurrent(ctx, version.AgreementID, versionID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to promote version: %w", err)
	}
	version.IsCurrent = true

	if agreement, err := s.agreementRepo.GetByID(ctx, version.AgreementID); err == nil {
		s.events.recordQuietly(ctx, agreement.DossierID, EventVersionPromoted,
			fmt.Sprintf("Versie %s van overeenkomst %d is nu actief", version.VersionNumber, agreement.Index),
			auth.ActorFromContext(ctx))
	}
	return version, nil
}

// GetAgreement returns an agreement with its versions
func (s *VersionService) GetAgreement(ctx context.Context, id uuid.UUID) (*domain.Agreement, error) {
	agreement, err := s.agreementRepo.GetWithVersions(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrAgreementNotFound, "failed to get agreement")
	}
	return agreement, nil
}

// ListAgreements returns a dossier's agreements in index order
func (s *VersionService) ListAgreements(ctx context.Context, dossierID uuid.UUID) ([]domain.Agreement, error) {
	exists, err := s.dossierRepo.Exists(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dossier: %w", err)
	}
	if !exists {
		return nil, ErrDossierNotFound
	}
	agreements, err := s.agreementRepo.ListByDossier(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	return agreements, nil
}

// GetVersion returns a version with its sections and placeholders
func (s *VersionService) GetVersion(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
	version, err := s.versionRepo.GetWithContent(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, ErrVersionNotFound, "failed to get version")
	}
	return version, nil
}

// GetVersionWithValues returns a version with its content and the dossier's
// master values, which fill markers the sections hold no value for
func (s *VersionService) GetVersionWithValues(ctx context.Context, id uuid.UUID) (*domain.Version, map[string]string, error) {
	version, err := s.GetVersion(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	agreement, err := s.agreementRepo.GetByID(ctx, version.AgreementID)
	if err != nil {
		return nil, nil, notFoundOr(err, ErrAgreementNotFound, "failed to get agreement")
	}
	values, err := s.masterData.MasterValues(ctx, agreement.DossierID)
	if err != nil {
		return nil, nil, err
	}
	return version, values, nil
}

// ListVersions returns an agreement's versions in lineage order
func (s *VersionService) ListVersions(ctx context.Context, agreementID uuid.UUID) ([]domain.Version, error) {
	if _, err := s.agreementRepo.GetByID(ctx, agreementID); err != nil {
		return nil, notFoundOr(err, ErrAgreementNotFound, "failed to get agreement")
	}
	versions, err := s.versionRepo.ListByAgreement(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

// IsNotFound reports whether err is any of the service's not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

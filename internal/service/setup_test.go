package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/straye-as/dossier-api/internal/extraction"
	"github.com/straye-as/dossier-api/internal/jobs"
	"github.com/straye-as/dossier-api/internal/lock"
	"github.com/straye-as/dossier-api/internal/repository"
	"github.com/straye-as/dossier-api/internal/service"
	"github.com/straye-as/dossier-api/internal/storage"
	"github.com/straye-as/dossier-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// services bundles every service wired against one test database
type services struct {
	db           *gorm.DB
	events       *service.EventService
	registry     *service.PlaceholderRegistryService
	masterData   *service.MasterDataService
	dossiers     *service.DossierService
	templates    *service.TemplateService
	versions     *service.VersionService
	placeholders *service.PlaceholderService
	analysis     *service.AnalysisService
	store        storage.Storage
	extractor    *fakeExtractor
	tasks        *syncSubmitter
}

func setupServices(t *testing.T) *services {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	dossierRepo := repository.NewDossierRepository(db)
	agreementRepo := repository.NewAgreementRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	sectionRepo := repository.NewSectionInstanceRepository(db)
	instanceRepo := repository.NewPlaceholderInstanceRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	definitionRepo := repository.NewPlaceholderDefinitionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	eventRepo := repository.NewEventRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	s := &services{
		db:        db,
		store:     store,
		extractor: &fakeExtractor{},
		tasks:     &syncSubmitter{},
	}
	s.events = service.NewEventService(eventRepo, log)
	s.registry = service.NewPlaceholderRegistryService(definitionRepo, log)
	s.masterData = service.NewMasterDataService(db, dossierRepo, definitionRepo, instanceRepo, log)
	s.dossiers = service.NewDossierService(dossierRepo, s.events, log)
	s.templates = service.NewTemplateService(db, templateRepo, definitionRepo, s.registry, log)
	s.versions = service.NewVersionService(
		db, lock.NewMemoryLocker(),
		dossierRepo, agreementRepo, versionRepo, sectionRepo, instanceRepo, templateRepo, definitionRepo,
		s.registry, s.masterData, s.events, log,
	)
	s.placeholders = service.NewPlaceholderService(sectionRepo, instanceRepo, s.masterData, s.events, log)
	s.analysis = service.NewAnalysisService(
		dossierRepo, documentRepo, s.registry, s.masterData, s.events,
		s.store, extraction.NewStorageTextLoader(s.store), s.extractor, s.tasks, log,
	)
	return s
}

// fakeExtractor returns canned values and records the requests it saw
type fakeExtractor struct {
	mu       sync.Mutex
	values   map[string]string
	err      error
	requests []extraction.Request
}

func (f *fakeExtractor) Extract(ctx context.Context, req extraction.Request) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

// syncSubmitter runs tasks inline, or rejects them with err
type syncSubmitter struct {
	err       error
	submitted []string
}

func (s *syncSubmitter) Submit(name string, task jobs.Task) error {
	if s.err != nil {
		return s.err
	}
	s.submitted = append(s.submitted, name)
	task(context.Background())
	return nil
}

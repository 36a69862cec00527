package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/dossier-api/internal/extraction"
	"github.com/straye-as/dossier-api/internal/http/handler"
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

type testHandlers struct {
	db           *gorm.DB
	versions     *service.VersionService
	masterData   *service.MasterDataService
	dossiers     *handler.DossierHandler
	agreements   *handler.AgreementHandler
	templates    *handler.TemplateHandler
	placeholders *handler.PlaceholderHandler
	documents    *handler.DocumentHandler
	extracted    map[string]string
}

func setupHandlers(t *testing.T) *testHandlers {
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

	h := &testHandlers{db: db, extracted: map[string]string{}}

	events := service.NewEventService(eventRepo, log)
	registry := service.NewPlaceholderRegistryService(definitionRepo, log)
	h.masterData = service.NewMasterDataService(db, dossierRepo, definitionRepo, instanceRepo, log)
	dossierService := service.NewDossierService(dossierRepo, events, log)
	templateService := service.NewTemplateService(db, templateRepo, definitionRepo, registry, log)
	h.versions = service.NewVersionService(
		db, lock.NewMemoryLocker(),
		dossierRepo, agreementRepo, versionRepo, sectionRepo, instanceRepo, templateRepo, definitionRepo,
		registry, h.masterData, events, log,
	)
	placeholderService := service.NewPlaceholderService(sectionRepo, instanceRepo, h.masterData, events, log)
	analysisService := service.NewAnalysisService(
		dossierRepo, documentRepo, registry, h.masterData, events,
		store, extraction.NewStorageTextLoader(store), staticExtractor{values: h.extracted}, inlineSubmitter{}, log,
	)

	h.dossiers = handler.NewDossierHandler(dossierService, events, log)
	h.agreements = handler.NewAgreementHandler(h.versions, log)
	h.templates = handler.NewTemplateHandler(templateService, log)
	h.placeholders = handler.NewPlaceholderHandler(registry, h.masterData, placeholderService, log)
	h.documents = handler.NewDocumentHandler(analysisService, log, 1)
	return h
}

// staticExtractor answers every request with the same values
type staticExtractor struct {
	values map[string]string
}

func (e staticExtractor) Extract(ctx context.Context, req extraction.Request) (map[string]string, error) {
	return e.values, nil
}

// inlineSubmitter runs tasks before Submit returns
type inlineSubmitter struct{}

func (inlineSubmitter) Submit(name string, task jobs.Task) error {
	task(context.Background())
	return nil
}

// newRequest builds a request carrying a test user and the given chi URL
// parameters as name/value pairs
func newRequest(t *testing.T, method, target string, body interface{}, params ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(testutil.UserContext(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), target), rr.Body.String())
}

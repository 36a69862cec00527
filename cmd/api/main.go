package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/config"
	"github.com/straye-as/dossier-api/internal/database"
	"github.com/straye-as/dossier-api/internal/extraction"
	"github.com/straye-as/dossier-api/internal/http/handler"
	"github.com/straye-as/dossier-api/internal/http/middleware"
	"github.com/straye-as/dossier-api/internal/http/router"
	"github.com/straye-as/dossier-api/internal/jobs"
	"github.com/straye-as/dossier-api/internal/lock"
	"github.com/straye-as/dossier-api/internal/logger"
	"github.com/straye-as/dossier-api/internal/repository"
	"github.com/straye-as/dossier-api/internal/service"
	"github.com/straye-as/dossier-api/internal/storage"
	"go.uber.org/zap"
)

// @title Straye Dossier API
// @version 1.0
// @description Agreement dossiers with versioned, template-based sections and AI-assisted data extraction
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In development secrets come from the environment,
	// in staging/production from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated")
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	locker, err := lock.NewLocker(&cfg.Locking, log)
	if err != nil {
		return fmt.Errorf("failed to initialize locking: %w", err)
	}
	log.Info("Locking initialized", zap.String("mode", cfg.Locking.Mode))

	extractor, err := extraction.NewExtractor(&cfg.Extraction, log)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction client: %w", err)
	}

	pool := jobs.NewWorkerPool(cfg.Analysis.Workers, cfg.Analysis.QueueSize, cfg.Analysis.RunTimeoutDuration(), log)
	pool.Start()

	// Repositories
	dossierRepo := repository.NewDossierRepository(db)
	agreementRepo := repository.NewAgreementRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	sectionRepo := repository.NewSectionInstanceRepository(db)
	instanceRepo := repository.NewPlaceholderInstanceRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	definitionRepo := repository.NewPlaceholderDefinitionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Services
	eventService := service.NewEventService(eventRepo, log)
	registry := service.NewPlaceholderRegistryService(definitionRepo, log)
	masterData := service.NewMasterDataService(db, dossierRepo, definitionRepo, instanceRepo, log)
	dossierService := service.NewDossierService(dossierRepo, eventService, log)
	templateService := service.NewTemplateService(db, templateRepo, definitionRepo, registry, log)
	versionService := service.NewVersionService(
		db, locker,
		dossierRepo, agreementRepo, versionRepo, sectionRepo, instanceRepo, templateRepo, definitionRepo,
		registry, masterData, eventService, log,
	)
	placeholderService := service.NewPlaceholderService(sectionRepo, instanceRepo, masterData, eventService, log)
	analysisService := service.NewAnalysisService(
		dossierRepo, documentRepo, registry, masterData, eventService,
		fileStorage, extraction.NewStorageTextLoader(fileStorage), extractor, pool, log,
	)

	// Handlers
	dossierHandler := handler.NewDossierHandler(dossierService, eventService, log)
	templateHandler := handler.NewTemplateHandler(templateService, log)
	agreementHandler := handler.NewAgreementHandler(versionService, log)
	placeholderHandler := handler.NewPlaceholderHandler(registry, masterData, placeholderService, log)
	documentHandler := handler.NewDocumentHandler(analysisService, log, cfg.Storage.MaxUploadSizeMB)

	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg, log, db,
		authMiddleware, rateLimiter,
		dossierHandler, templateHandler, agreementHandler, placeholderHandler, documentHandler,
	)
	if pinger, ok := locker.(router.Pinger); ok {
		rt.AddReadinessCheck("locking", pinger)
	}

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		err := jobs.RegisterMaintenanceJobs(scheduler, templateService, analysisService, log,
			cfg.Jobs.RetiredSectionCleanupCron,
			cfg.Jobs.StuckAnalysisCron,
			cfg.Jobs.StuckAnalysisMaxAgeDuration(),
		)
		if err != nil {
			return fmt.Errorf("failed to register maintenance jobs: %w", err)
		}
		scheduler.Start()
		log.Info("Maintenance jobs scheduled", zap.Strings("jobs", scheduler.JobNames()))
	} else {
		log.Info("Maintenance jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			stopped := scheduler.Stop()
			<-stopped.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Running extraction batches finish within the remaining shutdown window
		if err := pool.Stop(ctx); err != nil {
			log.Warn("Analysis workers did not drain", zap.Error(err), zap.Int("pending", pool.Pending()))
		}

		if closer, ok := locker.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.Warn("Error closing lock backend", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

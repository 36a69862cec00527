package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/config"
	"github.com/straye-as/dossier-api/internal/database"
	"github.com/straye-as/dossier-api/internal/http/handler"
	"github.com/straye-as/dossier-api/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pinger is a dependency the readiness probe checks besides the database
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg                *config.Config
	logger             *zap.Logger
	db                 *gorm.DB
	authMiddleware     *auth.Middleware
	rateLimiter        *middleware.RateLimiter
	dossierHandler     *handler.DossierHandler
	templateHandler    *handler.TemplateHandler
	agreementHandler   *handler.AgreementHandler
	placeholderHandler *handler.PlaceholderHandler
	documentHandler    *handler.DocumentHandler
	dependencies       map[string]Pinger
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	dossierHandler *handler.DossierHandler,
	templateHandler *handler.TemplateHandler,
	agreementHandler *handler.AgreementHandler,
	placeholderHandler *handler.PlaceholderHandler,
	documentHandler *handler.DocumentHandler,
) *Router {
	return &Router{
		cfg:                cfg,
		logger:             logger,
		db:                 db,
		authMiddleware:     authMiddleware,
		rateLimiter:        rateLimiter,
		dossierHandler:     dossierHandler,
		templateHandler:    templateHandler,
		agreementHandler:   agreementHandler,
		placeholderHandler: placeholderHandler,
		documentHandler:    documentHandler,
		dependencies:       map[string]Pinger{},
	}
}

// AddReadinessCheck registers a dependency reported by /health/ready
func (rt *Router) AddReadinessCheck(name string, p Pinger) {
	rt.dependencies[name] = p
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.LimitByUser)

		reviewers := rt.authMiddleware.RequireRole(auth.RoleReviewer, auth.RoleAdmin, auth.RoleAPIService)

		r.Route("/dossiers", func(r chi.Router) {
			r.Get("/", rt.dossierHandler.List)
			r.Post("/", rt.dossierHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.dossierHandler.Get)
				r.Get("/events", rt.dossierHandler.ListEvents)

				r.Get("/agreements", rt.agreementHandler.ListByDossier)
				r.Post("/agreements", rt.agreementHandler.Create)

				r.Get("/values", rt.placeholderHandler.ListMasterValues)
				r.Put("/values", rt.placeholderHandler.RecordValue)

				r.Get("/documents", rt.documentHandler.List)
				r.Post("/documents", rt.documentHandler.Upload)
				r.Get("/analysis", rt.documentHandler.AnalysisStatus)
				r.Post("/analysis", rt.documentHandler.StartAnalysis)
			})
		})

		r.Route("/agreements/{agreementId}", func(r chi.Router) {
			r.Get("/", rt.agreementHandler.Get)
			r.Get("/versions", rt.agreementHandler.ListVersions)
			r.Post("/versions", rt.agreementHandler.DuplicateLatest)
			r.Post("/versions/upload", rt.agreementHandler.CreateUploadVersion)
		})

		r.Route("/versions/{versionId}", func(r chi.Router) {
			r.Get("/", rt.agreementHandler.GetVersion)
			r.Patch("/", rt.agreementHandler.RenameVersion)
			r.Delete("/", rt.agreementHandler.DeleteVersion)
			r.Post("/duplicate", rt.agreementHandler.DuplicateVersion)
			r.Post("/promote", rt.agreementHandler.Promote)
		})

		r.Route("/sections/{sectionId}", func(r chi.Router) {
			r.Get("/", rt.placeholderHandler.GetSection)
			r.Patch("/", rt.placeholderHandler.UpdateSectionContent)
			r.With(reviewers).Put("/validation", rt.placeholderHandler.SetSectionValidation)
		})

		r.Route("/placeholder-instances/{instanceId}", func(r chi.Router) {
			r.Patch("/", rt.placeholderHandler.UpdateInstanceValue)
			r.With(reviewers).Put("/validation", rt.placeholderHandler.SetInstanceValidation)
		})

		r.Route("/placeholders", func(r chi.Router) {
			r.Get("/", rt.placeholderHandler.ListDefinitions)
			r.With(rt.authMiddleware.RequireAdmin).Patch("/{key}", rt.placeholderHandler.UpdateDefinition)
		})

		// Template authoring is restricted to administrators
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", rt.templateHandler.List)
			r.Get("/{id}", rt.templateHandler.Get)
			r.Get("/{id}/sections", rt.templateHandler.ListSections)

			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireAdmin)
				r.Post("/", rt.templateHandler.Create)
				r.Delete("/{id}", rt.templateHandler.Delete)
				r.Put("/{id}/sections", rt.templateHandler.ReplaceSections)
				r.Delete("/sections/{sectionId}", rt.templateHandler.DeleteSection)
			})
		})
	})

	return r
}

// databaseHealth is the readiness probe with detailed pool stats
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			"max_idle_closed":      stats.MaxIdleClosed,
			"max_lifetime_closed":  stats.MaxLifetimeClosed,
		},
	})
}

// readiness checks the database and every registered dependency
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	for name, dep := range rt.dependencies {
		if err := dep.Ping(r.Context()); err != nil {
			rt.logger.Error("Dependency health check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
			continue
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	status, label := http.StatusOK, "healthy"
	if !allHealthy {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	writeHealth(w, status, map[string]interface{}{"status": label, "checks": checks})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/mapper"
	"github.com/straye-as/dossier-api/internal/repository"
	"github.com/straye-as/dossier-api/internal/service"
	"go.uber.org/zap"
)

// defaultEventLimit is the number of timeline entries returned without ?limit
const defaultEventLimit = 50

// DossierHandler handles HTTP requests for dossiers and their timeline
type DossierHandler struct {
	dossierService *service.DossierService
	eventService   *service.EventService
	logger         *zap.Logger
}

// NewDossierHandler creates a new DossierHandler
func NewDossierHandler(dossierService *service.DossierService, eventService *service.EventService, logger *zap.Logger) *DossierHandler {
	return &DossierHandler{
		dossierService: dossierService,
		eventService:   eventService,
		logger:         logger,
	}
}

// List godoc
// @Summary List dossiers
// @Tags Dossiers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page" default(20)
// @Param search query string false "Search by name or reference"
// @Param sortBy query string false "Sort field" Enums(name, reference, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse
// @Router /dossiers [get]
func (h *DossierHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	sort := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}

	dossiers, total, err := h.dossierService.List(r.Context(), page, pageSize, r.URL.Query().Get("search"), sort)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list dossiers")
		return
	}

	respondJSON(w, http.StatusOK, domain.PaginatedResponse{
		Data:       mapper.ToDossierDTOs(dossiers),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

// Create godoc
// @Summary Create dossier
// @Tags Dossiers
// @Accept json
// @Produce json
// @Param request body domain.CreateDossierRequest true "Dossier"
// @Success 201 {object} domain.DossierDTO
// @Router /dossiers [post]
func (h *DossierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDossierRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dossier, err := h.dossierService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create dossier")
		return
	}

	w.Header().Set("Location", "/api/v1/dossiers/"+dossier.ID.String())
	respondJSON(w, http.StatusCreated, mapper.ToDossierDTO(dossier))
}

// Get godoc
// @Summary Get dossier
// @Description Get a dossier with its agreements and version headers
// @Tags Dossiers
// @Produce json
// @Param id path string true "Dossier ID"
// @Success 200 {object} domain.DossierDTO
// @Router /dossiers/{id} [get]
func (h *DossierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	dossier, err := h.dossierService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get dossier")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToDossierDTO(dossier))
}

// ListEvents godoc
// @Summary Dossier timeline
// @Tags Dossiers
// @Produce json
// @Param id path string true "Dossier ID"
// @Param limit query int false "Maximum number of events" default(50)
// @Success 200 {array} domain.DossierEventDTO
// @Router /dossiers/{id}/events [get]
func (h *DossierHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultEventLimit
	}
	if limit > repository.MaxPageSize {
		limit = repository.MaxPageSize
	}

	if _, err := h.dossierService.GetByID(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to get dossier")
		return
	}
	events, err := h.eventService.List(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToEventDTOs(events))
}

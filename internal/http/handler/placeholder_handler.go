package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/mapper"
	"github.com/straye-as/dossier-api/internal/service"
	"go.uber.org/zap"
)

// PlaceholderHandler handles the placeholder catalog, dossier master values
// and manual edits of section and placeholder instances
type PlaceholderHandler struct {
	registry           *service.PlaceholderRegistryService
	masterData         *service.MasterDataService
	placeholderService *service.PlaceholderService
	logger             *zap.Logger
}

// NewPlaceholderHandler creates a new PlaceholderHandler
func NewPlaceholderHandler(
	registry *service.PlaceholderRegistryService,
	masterData *service.MasterDataService,
	placeholderService *service.PlaceholderService,
	logger *zap.Logger,
) *PlaceholderHandler {
	return &PlaceholderHandler{
		registry:           registry,
		masterData:         masterData,
		placeholderService: placeholderService,
		logger:             logger,
	}
}

// ListDefinitions godoc
// @Summary List placeholder definitions
// @Tags Placeholders
// @Produce json
// @Success 200 {array} domain.PlaceholderDefinitionDTO
// @Router /placeholders [get]
func (h *PlaceholderHandler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.registry.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list placeholder definitions")
		return
	}

	dtos := make([]domain.PlaceholderDefinitionDTO, 0, len(defs))
	for i := range defs {
		dtos = append(dtos, mapper.ToPlaceholderDefinitionDTO(&defs[i]))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// UpdateDefinition godoc
// @Summary Correct a definition's label or value type
// @Description The key itself is immutable
// @Tags Placeholders
// @Accept json
// @Produce json
// @Param key path string true "Placeholder key"
// @Param request body domain.UpdateDefinitionRequest true "Changes"
// @Success 200 {object} domain.PlaceholderDefinitionDTO
// @Router /placeholders/{key} [patch]
func (h *PlaceholderHandler) UpdateDefinition(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	var req domain.UpdateDefinitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	def, err := h.registry.UpdateDefinition(r.Context(), key, req.Label, req.ValueType)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update placeholder definition")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToPlaceholderDefinitionDTO(def))
}

// ListMasterValues godoc
// @Summary List a dossier's master values
// @Tags Placeholders
// @Produce json
// @Param id path string true "Dossier ID"
// @Success 200 {array} domain.PlaceholderInstanceDTO
// @Router /dossiers/{id}/values [get]
func (h *PlaceholderHandler) ListMasterValues(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	masters, err := h.masterData.ListMasters(r.Context(), dossierID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list master values")
		return
	}

	dtos := make([]domain.PlaceholderInstanceDTO, 0, len(masters))
	for i := range masters {
		dtos = append(dtos, mapper.ToPlaceholderInstanceDTO(&masters[i]))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// RecordValue godoc
// @Summary Record a dossier value
// @Description Stores the value on the master instance and in every current version. Unknown keys are ignored.
// @Tags Placeholders
// @Accept json
// @Param id path string true "Dossier ID"
// @Param request body domain.RecordValueRequest true "Value"
// @Success 204
// @Router /dossiers/{id}/values [put]
func (h *PlaceholderHandler) RecordValue(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}
	var req domain.RecordValueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.masterData.RecordValue(r.Context(), dossierID, strings.TrimSpace(req.Key), req.Value); err != nil {
		respondServiceError(w, h.logger, err, "Failed to record value")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateInstanceValue godoc
// @Summary Edit a placeholder instance
// @Tags Placeholders
// @Accept json
// @Produce json
// @Param instanceId path string true "Placeholder instance ID"
// @Param request body domain.UpdatePlaceholderValueRequest true "Value"
// @Success 200 {object} domain.PlaceholderInstanceDTO
// @Router /placeholder-instances/{instanceId} [patch]
func (h *PlaceholderHandler) UpdateInstanceValue(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "instanceId", "placeholder instance")
	if !ok {
		return
	}
	var req domain.UpdatePlaceholderValueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	instance, err := h.placeholderService.UpdateInstanceValue(r.Context(), id, req.Value)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update placeholder value")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToPlaceholderInstanceDTO(instance))
}

// SetInstanceValidation godoc
// @Summary Review a placeholder instance
// @Tags Placeholders
// @Accept json
// @Produce json
// @Param instanceId path string true "Placeholder instance ID"
// @Param request body domain.SetValidationStatusRequest true "Status"
// @Success 200 {object} domain.PlaceholderInstanceDTO
// @Router /placeholder-instances/{instanceId}/validation [put]
func (h *PlaceholderHandler) SetInstanceValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "instanceId", "placeholder instance")
	if !ok {
		return
	}
	var req domain.SetValidationStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	instance, err := h.placeholderService.SetPlaceholderValidation(r.Context(), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update validation status")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToPlaceholderInstanceDTO(instance))
}

// GetSection godoc
// @Summary Get a section instance
// @Tags Sections
// @Produce json
// @Param sectionId path string true "Section instance ID"
// @Success 200 {object} domain.SectionInstanceDTO
// @Router /sections/{sectionId} [get]
func (h *PlaceholderHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "sectionId", "section")
	if !ok {
		return
	}
	h.respondSection(w, r, id)
}

// UpdateSectionContent godoc
// @Summary Edit a section instance's text
// @Tags Sections
// @Accept json
// @Produce json
// @Param sectionId path string true "Section instance ID"
// @Param request body domain.UpdateSectionContentRequest true "Content"
// @Success 200 {object} domain.SectionInstanceDTO
// @Router /sections/{sectionId} [patch]
func (h *PlaceholderHandler) UpdateSectionContent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "sectionId", "section")
	if !ok {
		return
	}
	var req domain.UpdateSectionContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.placeholderService.UpdateSectionContent(r.Context(), id, req.Content); err != nil {
		respondServiceError(w, h.logger, err, "Failed to update section content")
		return
	}
	h.respondSection(w, r, id)
}

// SetSectionValidation godoc
// @Summary Review a section instance
// @Tags Sections
// @Accept json
// @Produce json
// @Param sectionId path string true "Section instance ID"
// @Param request body domain.SetValidationStatusRequest true "Status"
// @Success 200 {object} domain.SectionInstanceDTO
// @Router /sections/{sectionId}/validation [put]
func (h *PlaceholderHandler) SetSectionValidation(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "sectionId", "section")
	if !ok {
		return
	}
	var req domain.SetValidationStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.placeholderService.SetSectionValidation(r.Context(), id, req.Status); err != nil {
		respondServiceError(w, h.logger, err, "Failed to update validation status")
		return
	}
	h.respondSection(w, r, id)
}

func (h *PlaceholderHandler) respondSection(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	section, err := h.placeholderService.GetSection(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get section")
		return
	}
	rendered, err := h.placeholderService.RenderSection(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to render section")
		return
	}

	dto := mapper.ToSectionInstanceDTO(section, nil)
	dto.RenderedContent = rendered
	respondJSON(w, http.StatusOK, dto)
}

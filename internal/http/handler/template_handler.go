package handler

import (
	"net/http"

	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/mapper"
	"github.com/straye-as/dossier-api/internal/service"
	"go.uber.org/zap"
)

// TemplateHandler handles HTTP requests for templates and template sections
type TemplateHandler struct {
	templateService *service.TemplateService
	logger          *zap.Logger
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(templateService *service.TemplateService, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		logger:          logger,
	}
}

// List godoc
// @Summary List templates
// @Tags Templates
// @Produce json
// @Success 200 {array} domain.TemplateDTO
// @Router /templates [get]
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list templates")
		return
	}

	dtos := make([]domain.TemplateDTO, 0, len(templates))
	for i := range templates {
		dtos = append(dtos, mapper.ToTemplateDTO(&templates[i]))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// Create godoc
// @Summary Create template
// @Tags Templates
// @Accept json
// @Produce json
// @Param request body domain.CreateTemplateRequest true "Template"
// @Success 201 {object} domain.TemplateDTO
// @Router /templates [post]
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	template, err := h.templateService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create template")
		return
	}

	respondJSON(w, http.StatusCreated, mapper.ToTemplateDTO(template))
}

// Get godoc
// @Summary Get template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} domain.TemplateDTO
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "template")
	if !ok {
		return
	}

	template, err := h.templateService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get template")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToTemplateDTO(template))
}

// Delete godoc
// @Summary Delete template
// @Description Sections still used by agreements are retired instead of deleted
// @Tags Templates
// @Param id path string true "Template ID"
// @Success 204
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "template")
	if !ok {
		return
	}

	if err := h.templateService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete template")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSections godoc
// @Summary List template sections
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {array} domain.TemplateSectionDTO
// @Router /templates/{id}/sections [get]
func (h *TemplateHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "template")
	if !ok {
		return
	}

	sections, err := h.templateService.ListSections(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list template sections")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToTemplateSectionDTOs(sections))
}

// ReplaceSections godoc
// @Summary Replace template sections
// @Description Full replacement: sections without id are created, missing ones removed or retired
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body domain.ReplaceSectionsRequest true "Sections"
// @Success 200 {array} domain.TemplateSectionDTO
// @Router /templates/{id}/sections [put]
func (h *TemplateHandler) ReplaceSections(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "template")
	if !ok {
		return
	}
	var req domain.ReplaceSectionsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sections, err := h.templateService.ReplaceSections(r.Context(), id, req.Sections)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to replace template sections")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToTemplateSectionDTOs(sections))
}

// DeleteSection godoc
// @Summary Delete template section
// @Tags Templates
// @Param sectionId path string true "Template section ID"
// @Success 204
// @Failure 409 {object} domain.APIError "Section still used by agreements"
// @Router /templates/sections/{sectionId} [delete]
func (h *TemplateHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "sectionId", "template section")
	if !ok {
		return
	}

	if err := h.templateService.DeleteSection(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete template section")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/mapper"
	"github.com/straye-as/dossier-api/internal/service"
	"go.uber.org/zap"
)

// AgreementHandler handles HTTP requests for agreements and their versions
type AgreementHandler struct {
	versionService *service.VersionService
	logger         *zap.Logger
}

// NewAgreementHandler creates a new AgreementHandler
func NewAgreementHandler(versionService *service.VersionService, logger *zap.Logger) *AgreementHandler {
	return &AgreementHandler{
		versionService: versionService,
		logger:         logger,
	}
}

// Create godoc
// @Summary Create agreement
// @Description Creates the next agreement of a dossier with version <index>.0, seeded from the template
// @Tags Agreements
// @Accept json
// @Produce json
// @Param id path string true "Dossier ID"
// @Param request body domain.CreateAgreementRequest true "Agreement"
// @Success 201 {object} domain.AgreementDTO
// @Router /dossiers/{id}/agreements [post]
func (h *AgreementHandler) Create(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}
	var req domain.CreateAgreementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	agreement, err := h.versionService.CreateAgreement(r.Context(), dossierID, req.TemplateID, req.Title)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create agreement")
		return
	}

	respondJSON(w, http.StatusCreated, mapper.ToAgreementDTO(agreement))
}

// ListByDossier godoc
// @Summary List a dossier's agreements
// @Tags Agreements
// @Produce json
// @Param id path string true "Dossier ID"
// @Success 200 {array} domain.AgreementDTO
// @Router /dossiers/{id}/agreements [get]
func (h *AgreementHandler) ListByDossier(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	agreements, err := h.versionService.ListAgreements(r.Context(), dossierID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list agreements")
		return
	}

	dtos := make([]domain.AgreementDTO, 0, len(agreements))
	for i := range agreements {
		dtos = append(dtos, mapper.ToAgreementDTO(&agreements[i]))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// Get godoc
// @Summary Get agreement
// @Tags Agreements
// @Produce json
// @Param agreementId path string true "Agreement ID"
// @Success 200 {object} domain.AgreementDTO
// @Router /agreements/{agreementId} [get]
func (h *AgreementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "agreementId", "agreement")
	if !ok {
		return
	}

	agreement, err := h.versionService.GetAgreement(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get agreement")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToAgreementDTO(agreement))
}

// ListVersions godoc
// @Summary List versions
// @Tags Versions
// @Produce json
// @Param agreementId path string true "Agreement ID"
// @Success 200 {array} domain.VersionDTO
// @Router /agreements/{agreementId}/versions [get]
func (h *AgreementHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "agreementId", "agreement")
	if !ok {
		return
	}

	versions, err := h.versionService.ListVersions(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list versions")
		return
	}

	dtos := make([]domain.VersionDTO, 0, len(versions))
	for i := range versions {
		dtos = append(dtos, mapper.ToVersionHeaderDTO(&versions[i]))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// DuplicateLatest godoc
// @Summary Create next version from the latest
// @Tags Versions
// @Produce json
// @Param agreementId path string true "Agreement ID"
// @Success 201 {object} domain.VersionDTO
// @Router /agreements/{agreementId}/versions [post]
func (h *AgreementHandler) DuplicateLatest(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "agreementId", "agreement")
	if !ok {
		return
	}

	version, err := h.versionService.DuplicateLatest(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create version")
		return
	}

	h.respondVersion(w, r, http.StatusCreated, version.ID)
}

// CreateUploadVersion godoc
// @Summary Register an uploaded file as the next version
// @Tags Versions
// @Accept json
// @Produce json
// @Param agreementId path string true "Agreement ID"
// @Param request body domain.CreateUploadVersionRequest true "Uploaded file"
// @Success 201 {object} domain.VersionDTO
// @Router /agreements/{agreementId}/versions/upload [post]
func (h *AgreementHandler) CreateUploadVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "agreementId", "agreement")
	if !ok {
		return
	}
	var req domain.CreateUploadVersionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	version, err := h.versionService.CreateUploadVersion(r.Context(), id, req.FilePath)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create upload version")
		return
	}

	h.respondVersion(w, r, http.StatusCreated, version.ID)
}

// GetVersion godoc
// @Summary Get version with content
// @Tags Versions
// @Produce json
// @Param versionId path string true "Version ID"
// @Success 200 {object} domain.VersionDTO
// @Router /versions/{versionId} [get]
func (h *AgreementHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "versionId", "version")
	if !ok {
		return
	}
	h.respondVersion(w, r, http.StatusOK, id)
}

// DuplicateVersion godoc
// @Summary Duplicate a version
// @Description Copies the given version's content into the agreement's next version
// @Tags Versions
// @Produce json
// @Param versionId path string true "Version ID"
// @Success 201 {object} domain.VersionDTO
// @Router /versions/{versionId}/duplicate [post]
func (h *AgreementHandler) DuplicateVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "versionId", "version")
	if !ok {
		return
	}

	version, err := h.versionService.DuplicateVersion(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to duplicate version")
		return
	}

	h.respondVersion(w, r, http.StatusCreated, version.ID)
}

// RenameVersion godoc
// @Summary Rename a version's display label
// @Tags Versions
// @Accept json
// @Produce json
// @Param versionId path string true "Version ID"
// @Param request body domain.RenameVersionRequest true "Label"
// @Success 200 {object} domain.VersionDTO
// @Router /versions/{versionId} [patch]
func (h *AgreementHandler) RenameVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "versionId", "version")
	if !ok {
		return
	}
	var req domain.RenameVersionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	version, err := h.versionService.RenameVersion(r.Context(), id, req.VersionNumber)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to rename version")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToVersionHeaderDTO(version))
}

// Promote godoc
// @Summary Make a version current
// @Tags Versions
// @Produce json
// @Param versionId path string true "Version ID"
// @Success 200 {object} domain.VersionDTO
// @Router /versions/{versionId}/promote [post]
func (h *AgreementHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "versionId", "version")
	if !ok {
		return
	}

	version, err := h.versionService.Promote(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to promote version")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToVersionHeaderDTO(version))
}

// DeleteVersion godoc
// @Summary Delete a version
// @Description Deleting the last version deletes the agreement; deleting the current version promotes the most recent remaining one
// @Tags Versions
// @Produce json
// @Param versionId path string true "Version ID"
// @Success 200 {object} domain.DeleteVersionResponse
// @Router /versions/{versionId} [delete]
func (h *AgreementHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "versionId", "version")
	if !ok {
		return
	}

	agreementDeleted, err := h.versionService.DeleteVersion(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete version")
		return
	}

	respondJSON(w, http.StatusOK, domain.DeleteVersionResponse{AgreementDeleted: agreementDeleted})
}

// respondVersion writes the version with rendered section content
func (h *AgreementHandler) respondVersion(w http.ResponseWriter, r *http.Request, status int, versionID uuid.UUID) {
	version, values, err := h.versionService.GetVersionWithValues(r.Context(), versionID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get version")
		return
	}
	respondJSON(w, status, mapper.ToVersionDTO(version, values))
}

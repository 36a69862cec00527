package handler

import (
	"fmt"
	"net/http"

	"github.com/straye-as/dossier-api/internal/domain"
	"github.com/straye-as/dossier-api/internal/mapper"
	"github.com/straye-as/dossier-api/internal/service"
	"go.uber.org/zap"
)

// DocumentHandler handles source documents and their extraction runs
type DocumentHandler struct {
	analysisService *service.AnalysisService
	logger          *zap.Logger
	maxUploadMB     int64
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(analysisService *service.AnalysisService, logger *zap.Logger, maxUploadMB int64) *DocumentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &DocumentHandler{
		analysisService: analysisService,
		logger:          logger,
		maxUploadMB:     maxUploadMB,
	}
}

// Upload godoc
// @Summary Upload a source document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Dossier ID"
// @Param file formData file true "Document"
// @Success 201 {object} domain.DossierDocumentDTO
// @Failure 413 {object} domain.APIError
// @Router /dossiers/{id}/documents [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	doc, err := h.analysisService.UploadDocument(r.Context(), dossierID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to upload document")
		return
	}

	respondJSON(w, http.StatusCreated, mapper.ToDocumentDTO(doc))
}

// List godoc
// @Summary List a dossier's documents
// @Tags Documents
// @Produce json
// @Param id path string true "Dossier ID"
// @Success 200 {array} domain.DossierDocumentDTO
// @Router /dossiers/{id}/documents [get]
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	docs, err := h.analysisService.ListDocuments(r.Context(), dossierID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list documents")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToDocumentDTOs(docs))
}

// StartAnalysis godoc
// @Summary Start an extraction run
// @Description Queues the given documents, or every pending and failed document when none are given. Progress is reported on the timeline.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Dossier ID"
// @Param request body domain.StartAnalysisRequest false "Run options"
// @Success 202 {array} domain.DossierDocumentDTO
// @Failure 409 {object} domain.APIError "A run is already in progress"
// @Router /dossiers/{id}/analysis [post]
func (h *DocumentHandler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	var req domain.StartAnalysisRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	docs, err := h.analysisService.StartAnalysis(r.Context(), dossierID, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to start analysis")
		return
	}

	respondJSON(w, http.StatusAccepted, mapper.ToDocumentDTOs(docs))
}

// AnalysisStatus godoc
// @Summary Get the state of the latest extraction run
// @Tags Documents
// @Produce json
// @Param id path string true "Dossier ID"
// @Success 200 {object} domain.AnalysisStatusDTO
// @Router /dossiers/{id}/analysis [get]
func (h *DocumentHandler) AnalysisStatus(w http.ResponseWriter, r *http.Request) {
	dossierID, ok := uuidParam(w, r, "id", "dossier")
	if !ok {
		return
	}

	status, err := h.analysisService.Status(r.Context(), dossierID)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get analysis status")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

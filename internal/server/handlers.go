package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/common"
	"github.com/averros/invopipe/internal/export"
	"github.com/averros/invopipe/internal/service"
)

// Handler serves the HTTP surface for one document kind.
type Handler struct {
	docType  constants.DocumentType
	service  *service.DocumentService
	exporter *export.Service
}

func NewHandler(docType constants.DocumentType, svc *service.DocumentService, exporter *export.Service) *Handler {
	return &Handler{docType: docType, service: svc, exporter: exporter}
}

func (h *Handler) HandleUpload(c *gin.Context) {
	partnerID := partnerFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "file is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "failed to read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(constants.MaxFileSize)+1))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "failed to read uploaded file")
		return
	}

	skipAnalysis, _ := strconv.ParseBool(c.PostForm("skipAnalysis"))

	resp, err := h.service.Upload(c.Request.Context(), service.UploadRequest{
		PartnerID:    partnerID,
		Filename:     fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Data:         data,
		Password:     c.PostForm("password"),
		SkipAnalysis: skipAnalysis,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) HandleGetStatus(c *gin.Context) {
	id, ok := h.authorizedID(c)
	if !ok {
		return
	}
	resp, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleGetDocument(c *gin.Context) {
	id, ok := h.authorizedID(c)
	if !ok {
		return
	}
	resp, err := h.service.GetDocument(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleDelete(c *gin.Context) {
	id, ok := h.authorizedID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) HandleExport(c *gin.Context) {
	partnerID := partnerFromContext(c)
	data, err := h.exporter.ExportXLSX(c.Request.Context(), h.docType, partnerID)
	if err != nil {
		writeError(c, err)
		return
	}
	filename := string(h.docType) + "s.xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// authorizedID parses the path id and verifies the requesting partner owns
// the document. A foreign document reads as not found rather than forbidden,
// so callers cannot probe for other partners' ids.
func (h *Handler) authorizedID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid document id")
		return uuid.Nil, false
	}
	owner, err := h.service.GetPartnerID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return uuid.Nil, false
	}
	if owner != partnerFromContext(c) {
		writeError(c, common.NotFoundErrorf("%s %s not found", h.docType, id))
		return uuid.Nil, false
	}
	return id, true
}

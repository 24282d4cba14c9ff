package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/internal/service"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
	"github.com/manpowerhq/compliance-api/pkg/response"
)

// DocumentHandler wires document lifecycle endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param employee_id query string false "Filter by employee"
// @Param type query string false "Filter by document type key"
// @Param active query bool false "Only the active instance per type"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := models.DocumentFilter{
		EmployeeID: strings.TrimSpace(c.Query("employee_id")),
		TypeKey:    strings.TrimSpace(c.Query("type")),
		ActiveOnly: strings.EqualFold(c.Query("active"), "true"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	documents, pagination, err := h.documents.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, documents, pagination)
}

// Get godoc
// @Summary Get document detail
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	document, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, document, nil)
}

// Capture godoc
// @Summary Capture document data
// @Description Records issue/expiry dates and fields for a document. Accepts JSON or multipart with a scan attachment.
// @Tags Documents
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param payload body service.CaptureDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Capture(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CaptureDocumentRequest
	upload, err := bindDocumentPayload(c, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	document, err := h.documents.Capture(c.Request.Context(), req, upload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, document)
}

// Renew godoc
// @Summary Renew document
// @Description Supersedes the active instance with a fresh one carrying new dates
// @Tags Documents
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body service.RenewDocumentRequest true "Renewal payload"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/renew [post]
func (h *DocumentHandler) Renew(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RenewDocumentRequest
	upload, err := bindDocumentPayload(c, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	document, err := h.documents.Renew(c.Request.Context(), c.Param("id"), req, upload, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, document)
}

// Deactivate godoc
// @Summary Deactivate document
// @Description Removes the document from compliance evaluation without deleting history
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.documents.Deactivate(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// bindDocumentPayload decodes the request body into dest. Multipart requests
// carry the JSON payload in the "payload" form field and the scan in "file".
func bindDocumentPayload(c *gin.Context, dest interface{}) (*service.FileUpload, error) {
	contentType := c.ContentType()
	if !strings.HasPrefix(contentType, "multipart/") {
		if err := c.ShouldBindJSON(dest); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload")
		}
		return nil, nil
	}

	payload := c.PostForm("payload")
	if payload == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payload form field is required")
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file upload")
	}
	return readUpload(fileHeader)
}

func readUpload(fileHeader *multipart.FileHeader) (*service.FileUpload, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer src.Close() //nolint:errcheck

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file")
	}
	return &service.FileUpload{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

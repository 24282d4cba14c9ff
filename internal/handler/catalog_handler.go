package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manpowerhq/compliance-api/internal/service"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
	"github.com/manpowerhq/compliance-api/pkg/response"
)

// CatalogHandler wires document type catalog endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List godoc
// @Summary List document types
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /document-types [get]
func (h *CatalogHandler) List(c *gin.Context) {
	types, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Upsert godoc
// @Summary Create or replace a document type
// @Tags Documents
// @Accept json
// @Produce json
// @Param key path string true "Document type key"
// @Param payload body service.UpsertDocumentTypeRequest true "Document type payload"
// @Success 200 {object} response.Envelope
// @Router /document-types/{key} [put]
func (h *CatalogHandler) Upsert(c *gin.Context) {
	var req service.UpsertDocumentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document type payload"))
		return
	}
	docType, err := h.catalog.Upsert(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docType, nil)
}

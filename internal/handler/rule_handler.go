package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/internal/service"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
	"github.com/manpowerhq/compliance-api/pkg/response"
)

// RuleHandler wires compliance rule endpoints.
type RuleHandler struct {
	rules *service.RuleService
}

// NewRuleHandler constructs a rule handler.
func NewRuleHandler(rules *service.RuleService) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// List godoc
// @Summary List compliance rules
// @Tags Rules
// @Produce json
// @Param company_id query string false "Company scope; omit for all, use 'global' for the default tier"
// @Param type query string false "Document type key"
// @Success 200 {object} response.Envelope
// @Router /rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	filter := models.RuleFilter{
		TypeKey: strings.TrimSpace(c.Query("type")),
	}
	if companyID := strings.TrimSpace(c.Query("company_id")); companyID != "" {
		if strings.EqualFold(companyID, "global") {
			empty := ""
			filter.CompanyID = &empty
		} else {
			filter.CompanyID = &companyID
		}
	}

	rules, err := h.rules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Get godoc
// @Summary Get rule detail
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Effective godoc
// @Summary Resolve the effective rule for a company and document type
// @Description Merges the company override onto the global rule field by field
// @Tags Rules
// @Produce json
// @Param company_id query string true "Company ID"
// @Param type query string true "Document type key"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /rules/effective [get]
func (h *RuleHandler) Effective(c *gin.Context) {
	companyID := strings.TrimSpace(c.Query("company_id"))
	typeKey := strings.TrimSpace(c.Query("type"))
	if companyID == "" || typeKey == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "company_id and type required"))
		return
	}

	effective, err := h.rules.Effective(c.Request.Context(), companyID, typeKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, effective, nil)
}

// Create godoc
// @Summary Create compliance rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body service.WriteRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.WriteRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}

	rule, err := h.rules.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Update godoc
// @Summary Update compliance rule
// @Description Scope fields (company, type) are immutable after creation
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body service.WriteRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /rules/{id} [put]
func (h *RuleHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.WriteRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}

	rule, err := h.rules.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete compliance rule
// @Description Affected documents fall back to the global rule, or rule_missing when none exists
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 204
// @Router /rules/{id} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.rules.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

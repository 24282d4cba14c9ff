package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manpowerhq/compliance-api/internal/service"
	"github.com/manpowerhq/compliance-api/pkg/response"
)

// ComplianceHandler wires compliance evaluation endpoints.
type ComplianceHandler struct {
	compliance *service.ComplianceService
}

// NewComplianceHandler constructs a compliance handler.
func NewComplianceHandler(compliance *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

// EmployeeView godoc
// @Summary Employee compliance view
// @Description Evaluates every active document of the employee at the given date
// @Tags Compliance
// @Produce json
// @Param id path string true "Employee ID"
// @Param as_of query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /compliance/employees/{id} [get]
func (h *ComplianceHandler) EmployeeView(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.compliance.EmployeeView(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// CompanyView godoc
// @Summary Company compliance aggregate
// @Description Totals fines, burn rate and status counts across the company roster
// @Tags Compliance
// @Produce json
// @Param id path string true "Company ID"
// @Param as_of query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /compliance/companies/{id} [get]
func (h *ComplianceHandler) CompanyView(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.compliance.CompanyView(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// GlobalSummary godoc
// @Summary Global compliance summary
// @Description Aggregates exposure across all companies
// @Tags Compliance
// @Produce json
// @Param as_of query string false "Evaluation date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /compliance/summary [get]
func (h *ComplianceHandler) GlobalSummary(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.compliance.GlobalSummary(c.Request.Context(), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
